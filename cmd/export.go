package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/state-atlas/internal/db"
	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/tiger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load the per-state GeoJSON into PostGIS",
	Long: `Creates <export.schema>.<export.table> if needed and, for every state with a
counties.geojson, replaces that state's rows using COPY.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pool, err := db.Connect(ctx, cfg.Export.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		ecfg := tiger.ExportConfig{
			Schema:    cfg.Export.Schema,
			Table:     cfg.Export.Table,
			BatchSize: cfg.Export.BatchSize,
		}
		if v, _ := cmd.Flags().GetString("table"); v != "" {
			ecfg.Table = v
		}

		statesDir := cfg.StatesDir()
		sum, err := runJob(ctx, stdout, cfg.LedgerPath(), "export", func(ctx context.Context, sink report.Sink) (report.Summary, error) {
			return tiger.Export(ctx, pool, statesDir, ecfg, sink)
		})
		if err != nil {
			return err
		}
		printSummary(stdout, sum)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("table", "", "target table (default: from config)")
	rootCmd.AddCommand(exportCmd)
}
