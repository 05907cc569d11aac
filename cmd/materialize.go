package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/tables"
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Write counties.csv from each state's county list",
	Long: `Reads states/<State>/counties.yaml (or .yml / .json) and writes counties.csv.
States without a list are skipped; malformed lists are reported and the run continues.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := materializeOptions(cmd)
		if err != nil {
			return err
		}

		sum, err := runJob(ctx, stdout, cfg.LedgerPath(), "materialize", materializeJob(cfg.StatesDir(), opts))
		if err != nil {
			return err
		}
		printSummary(stdout, sum)
		return nil
	},
}

func materializeOptions(cmd *cobra.Command) (tables.Options, error) {
	schema := cfg.Materialize.Schema
	if v, _ := cmd.Flags().GetString("schema"); v != "" {
		schema = v
	}
	mode, err := tables.ParseSchemaMode(schema)
	if err != nil {
		return tables.Options{}, err
	}

	workbook := cfg.Materialize.Workbook
	if v, _ := cmd.Flags().GetString("workbook"); v != "" {
		workbook = v
	}
	return tables.Options{Schema: mode, Workbook: workbook}, nil
}

func materializeJob(statesDir string, opts tables.Options) jobFunc {
	return func(ctx context.Context, sink report.Sink) (report.Summary, error) {
		res, err := tables.Materialize(ctx, statesDir, opts, sink)
		return res.Summary, err
	}
}

func init() {
	materializeCmd.Flags().String("schema", "", "column policy: union, strict or first (default: from config)")
	materializeCmd.Flags().String("workbook", "", "also write an .xlsx workbook with one sheet per state")
	rootCmd.AddCommand(materializeCmd)
}
