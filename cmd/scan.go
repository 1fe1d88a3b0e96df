package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldops/gearscan/internal/utils"
	"github.com/fieldops/gearscan/pkg/capture"
	"github.com/fieldops/gearscan/pkg/catalog"
	"github.com/fieldops/gearscan/pkg/inference"
	"github.com/fieldops/gearscan/pkg/scan"
	"github.com/fieldops/gearscan/pkg/storage"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan of an image file",
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath, _ := cmd.Flags().GetString("image")
		if imagePath == "" {
			return fmt.Errorf("an input image is required (-i)")
		}

		sess, err := buildSession(cmd)
		if err != nil {
			return err
		}

		states := sess.Subscribe()
		sess.StartScan(context.Background(), capture.FileSource{Path: imagePath})

		for state := range states {
			if state.Kind == scan.StateScanning {
				continue
			}
			if state.Kind == scan.StateError {
				return fmt.Errorf("%s", state.Message)
			}
			break
		}

		result, _ := sess.Result()
		printResult(result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("image", "i", "", "Image file to scan")
	scanCmd.Flags().String("engine", "", "Detection engine URL (default from config: engine.endpoint)")
	scanCmd.Flags().String("catalog", "", "Equipment JSON catalog file (default from config: catalog.file)")
	scanCmd.Flags().String("db", "", "Catalog database path; used when no catalog file is given")
}

// buildSession wires a scan session from the shared engine/catalog flags.
func buildSession(cmd *cobra.Command) (*scan.Session, error) {
	engineURL, _ := cmd.Flags().GetString("engine")
	if engineURL == "" {
		engineURL = viper.GetString("engine.endpoint")
	}

	lookup, err := loadLookup(cmd)
	if err != nil {
		return nil, err
	}

	return scan.NewSession(scan.SessionConfig{
		Inferrer: inference.NewClient(inference.Config{Endpoint: engineURL}),
		Catalog:  lookup,
		Log:      utils.Log,
	}), nil
}

// loadLookup prefers an explicit catalog file, then the sqlite store, then no
// enrichment at all. Enrichment is optional by design, never blocking.
func loadLookup(cmd *cobra.Command) (scan.Lookup, error) {
	catalogFile, _ := cmd.Flags().GetString("catalog")
	if catalogFile == "" {
		catalogFile = viper.GetString("catalog.file")
	}
	if catalogFile != "" {
		return catalog.LoadFile(catalogFile)
	}

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = viper.GetString("catalog.db")
	}
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			db, err := storage.Open(dbPath)
			if err != nil {
				return nil, err
			}
			defer db.Close()
			return db.LoadCatalog(context.Background())
		}
	}

	utils.Log.Debugf("no catalog configured, detections will not be enriched")
	return nil, nil
}

func printResult(result scan.Result) {
	if len(result) == 0 {
		fmt.Println("No equipment detected")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tCONFIDENCE\tNAME\tSTATUS\tLOCATION")
	for _, d := range result {
		name, status, location := "-", "-", "-"
		if d.Details != nil {
			name, status, location = orDash(d.Details.Name), orDash(d.Details.Status), orDash(d.Details.Location)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\t%s\n", d.Label, d.Confidence, name, status, location)
	}
	w.Flush()
}

func printHistory(entries []scan.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Println("No scans yet")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tLABEL\tCONFIDENCE\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.At.Format("15:04:05"), e.Label, e.Confidence, e.Status)
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
