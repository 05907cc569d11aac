package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/scaffold"
	"github.com/sells-group/state-atlas/internal/states"
)

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Create the per-state directories and placeholder files",
	Long: `Makes sure states/<State>/ exists for each of the 50 states with info.json,
cities.csv and counties.csv. Files that already exist are left untouched.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		statesStr, _ := cmd.Flags().GetString("states")
		names, err := states.Resolve(splitAndTrim(statesStr))
		if err != nil {
			return err
		}

		_, err = runJob(ctx, stdout, cfg.LedgerPath(), "scaffold", scaffoldJob(cfg.StatesDir(), names))
		return err
	},
}

func scaffoldJob(statesDir string, names []string) jobFunc {
	return func(ctx context.Context, sink report.Sink) (report.Summary, error) {
		return scaffold.Scaffold(ctx, statesDir, names, sink)
	}
}

func init() {
	scaffoldCmd.Flags().String("states", "", "comma-separated state names or abbreviations (default: all 50)")
	rootCmd.AddCommand(scaffoldCmd)
}
