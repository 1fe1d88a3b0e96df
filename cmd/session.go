package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldops/gearscan/pkg/capture"
	"github.com/fieldops/gearscan/pkg/scan"
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive scan session against a directory of frames",
	Long: `Starts an operator loop: each "scan" captures the next frame from the
frames directory and submits it to the detection engine. The session keeps
the usual bounded history and state machine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		framesDir, _ := cmd.Flags().GetString("frames")

		sess, err := buildSession(cmd)
		if err != nil {
			return err
		}
		source := &capture.DirSource{Dir: framesDir}
		states := sess.Subscribe()

		fmt.Printf("Session %s started. Commands: scan, reset, result, history, status, quit\n", sess.ID())

		in := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !in.Scan() {
				return in.Err()
			}

			switch strings.TrimSpace(strings.ToLower(in.Text())) {
			case "scan":
				drainStates(states)
				sess.StartScan(context.Background(), source)
				for state := range states {
					if state.Kind == scan.StateScanning {
						continue
					}
					text, _ := state.Status()
					fmt.Println(text)
					break
				}
				if result, ok := sess.Result(); ok && sess.State().Kind == scan.StateIdle {
					printResult(result)
				}
			case "reset":
				sess.Reset()
				fmt.Println("Session reset")
			case "result":
				if result, ok := sess.Result(); ok {
					printResult(result)
				} else {
					fmt.Println("No result yet")
				}
			case "history":
				printHistory(sess.History())
			case "status":
				text, tone := sess.State().Status()
				fmt.Printf("[%s] %s\n", tone, text)
			case "quit", "exit":
				return nil
			case "":
			default:
				fmt.Println("Unknown command")
			}
		}
	},
}

// drainStates discards notifications buffered by earlier commands so the
// scan wait loop only sees states from the attempt it just started.
func drainStates(ch <-chan scan.State) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().String("frames", ".", "Directory of frame images to cycle through")
	sessionCmd.Flags().String("engine", "", "Detection engine URL (default from config: engine.endpoint)")
	sessionCmd.Flags().String("catalog", "", "Equipment JSON catalog file (default from config: catalog.file)")
	sessionCmd.Flags().String("db", "", "Catalog database path; used when no catalog file is given")
}
