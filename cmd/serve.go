package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldops/gearscan/internal/server"
	"github.com/fieldops/gearscan/pkg/inference"
	"github.com/fieldops/gearscan/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scan API server",
	Long: `Exposes POST /api/scan (forwarding frames to the upstream detection
engine) and GET /api/equipment (the catalog database).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		if listenAddr == "" {
			listenAddr = viper.GetString("server.listen")
		}
		engineURL, _ := cmd.Flags().GetString("engine")
		if engineURL == "" {
			engineURL = viper.GetString("engine.endpoint")
		}
		dbPath, _ := cmd.Flags().GetString("db")

		var db *storage.DB
		if dbPath != "" {
			var err error
			db, err = storage.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
		}

		engine := inference.NewClient(inference.Config{Endpoint: engineURL})
		srv := server.New(engine, db, viper.GetString("server.username"), viper.GetString("server.password"))
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from config: server.listen)")
	serveCmd.Flags().String("engine", "", "Upstream detection engine URL (default from config: engine.endpoint)")
	serveCmd.Flags().String("db", "", "Catalog database path (empty disables /api/equipment)")
}
