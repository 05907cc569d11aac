package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/state-atlas/internal/partition"
	"github.com/sells-group/state-atlas/internal/report"
)

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Split the nationwide county shapefile into per-state GeoJSON",
	Long: `Loads tl_<year>_us_county.shp, reprojects it to WGS84 and writes
states/<State>/counties.geojson for every state whose counties.csv carries a
state FIPS code. Existing GeoJSON files are never overwritten.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := partitionOptions(cmd)
		_, err := runJob(ctx, stdout, cfg.LedgerPath(), "partition", partitionJob(opts))
		return err
	},
}

func partitionOptions(cmd *cobra.Command) partition.Options {
	opts := partition.Options{
		StatesDir:  cfg.StatesDir(),
		Shapefile:  shapefilePath(),
		SourceCRS:  cfg.Tiger.SourceCRS,
		CodeColumn: cfg.Partition.CodeColumn,
	}
	if v, _ := cmd.Flags().GetString("shapefile"); v != "" {
		opts.Shapefile = v
	}
	if v, _ := cmd.Flags().GetString("source-crs"); v != "" {
		opts.SourceCRS = v
	}
	return opts
}

func partitionJob(opts partition.Options) jobFunc {
	return func(ctx context.Context, sink report.Sink) (report.Summary, error) {
		return partition.Run(ctx, opts, sink)
	}
}

func init() {
	partitionCmd.Flags().String("shapefile", "", "path to the county .shp (default: derived from tiger.data_dir and tiger.year)")
	partitionCmd.Flags().String("source-crs", "", "override the source CRS (EPSG code or .prj path)")
	rootCmd.AddCommand(partitionCmd)
}
