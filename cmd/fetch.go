package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/tiger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the nationwide TIGER/Line county shapefile",
	Long: `Downloads tl_<year>_us_county.zip from the Census Bureau into tiger.data_dir
and extracts it. An existing archive is reused.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = cfg.Tiger.Year
		}

		zap.L().Info("fetching county shapefile",
			zap.Int("year", year),
			zap.String("data_dir", cfg.DataDir()),
		)

		shpPath, err := tiger.Fetch(ctx, year, cfg.DataDir())
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		fmt.Fprintln(stdout, shpPath) //nolint:errcheck
		return nil
	},
}

func init() {
	fetchCmd.Flags().Int("year", 0, "TIGER/Line year (default: from config or 2023)")
	rootCmd.AddCommand(fetchCmd)
}
