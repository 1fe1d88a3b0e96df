package storage

import "github.com/fieldops/gearscan/pkg/catalog"

// Item is a single stored catalog row.
type Item struct {
	// LabelNormalized is the lookup identity; LabelRaw keeps the label as it
	// appeared in the imported file.
	LabelNormalized string
	LabelRaw        string

	Record catalog.Record
}

// ImportStats summarizes what an import run did.
type ImportStats struct {
	Added     int
	Updated   int
	Unchanged int
}
