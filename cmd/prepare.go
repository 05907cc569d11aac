package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/states"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Run scaffold, materialize and partition in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := materializeOptions(cmd)
		if err != nil {
			return err
		}

		statesDir := cfg.StatesDir()
		steps := []struct {
			name string
			fn   jobFunc
		}{
			{"scaffold", scaffoldJob(statesDir, states.Names())},
			{"materialize", materializeJob(statesDir, opts)},
			{"partition", partitionJob(partitionOptions(cmd))},
		}

		var total report.Summary
		for _, s := range steps {
			sum, err := runJob(ctx, stdout, cfg.LedgerPath(), s.name, s.fn)
			total.Merge(sum)
			if err != nil {
				return eris.Wrap(err, "prepare")
			}
		}
		printSummary(stdout, total)
		return nil
	},
}

func init() {
	prepareCmd.Flags().String("schema", "", "column policy: union, strict or first (default: from config)")
	prepareCmd.Flags().String("workbook", "", "also write an .xlsx workbook with one sheet per state")
	prepareCmd.Flags().String("shapefile", "", "path to the county .shp (default: derived from tiger.data_dir and tiger.year)")
	prepareCmd.Flags().String("source-crs", "", "override the source CRS (EPSG code or .prj path)")
	rootCmd.AddCommand(prepareCmd)
}
