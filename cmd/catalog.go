package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldops/gearscan/pkg/catalog"
	"github.com/fieldops/gearscan/pkg/storage"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the equipment catalog database",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an equipment.json file into the catalog database",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		var raw map[string]catalog.Record
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}

		labels := make([]string, 0, len(raw))
		for label := range raw {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		items := make([]storage.Item, 0, len(labels))
		for _, label := range labels {
			items = append(items, storage.Item{
				LabelNormalized: catalog.Normalize(label),
				LabelRaw:        label,
				Record:          raw[label],
			})
		}

		db, err := storage.Open(catalogDBPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.ImportItems(context.Background(), items)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d labels: %d added, %d updated, %d unchanged\n",
			len(items), stats.Added, stats.Updated, stats.Unchanged)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")

		db, err := storage.Open(catalogDBPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListItems(context.Background(), storage.ListOptions{Category: category, Search: search})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "LABEL\tCODE\tNAME\tCATEGORY\tLOCATION\tSTATUS")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				it.LabelNormalized, it.Record.Code, it.Record.Name, it.Record.Category, it.Record.Location, it.Record.Status)
		}
		return w.Flush()
	},
}

var catalogLookupCmd = &cobra.Command{
	Use:   "lookup <label>",
	Short: "Look up one catalog entry by label (case-insensitive)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := storage.Open(catalogDBPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		item, found, err := db.GetByLabel(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no catalog entry for %q", args[0])
		}

		out, err := json.MarshalIndent(item, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func catalogDBPath(cmd *cobra.Command) string {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = viper.GetString("catalog.db")
	}
	if dbPath == "" {
		dbPath = "gearscan.sqlite"
	}
	return dbPath
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.PersistentFlags().String("db", "", "Catalog database path (default from config: catalog.db)")

	catalogImportCmd.Flags().String("file", "equipment.json", "Equipment JSON file to import")
	catalogCmd.AddCommand(catalogImportCmd)

	catalogListCmd.Flags().String("category", "", "Filter by category")
	catalogListCmd.Flags().String("search", "", "Filter by label or name substring")
	catalogCmd.AddCommand(catalogListCmd)

	catalogCmd.AddCommand(catalogLookupCmd)
}
