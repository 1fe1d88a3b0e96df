package main

import "github.com/fieldops/gearscan/cmd"

func main() {
	cmd.Execute()
}
