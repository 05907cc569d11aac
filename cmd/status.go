package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/state-atlas/internal/ledger"
	"github.com/sells-group/state-atlas/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent runs from the local ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path := cfg.LedgerPath()
		if path == "" {
			fmt.Fprintln(stdout, "Ledger is disabled") //nolint:errcheck
			return nil
		}

		l, err := ledger.Open(ctx, path)
		if err != nil {
			return err
		}
		defer l.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := l.Latest(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		printRuns(stdout, runs)

		runID, _ := cmd.Flags().GetString("run")
		if runID == "" {
			return nil
		}
		items, err := l.Items(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		_, _ = fmt.Fprintln(stdout)
		for _, it := range items {
			_, _ = fmt.Fprintln(stdout, report.Line(it))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 20, "number of runs to show")
	statusCmd.Flags().String("run", "", "also list the per-state items of this run id")
	rootCmd.AddCommand(statusCmd)
}

// printRuns displays ledger runs newest first.
func printRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded yet")
		return
	}

	_, _ = fmt.Fprintf(w, "%-36s %-12s %-16s %9s %7s %7s %5s %6s %6s %s\n",
		"ID", "Job", "Started At", "Duration", "Created", "Skipped", "Empty", "Failed", "Warned", "Error")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, r := range runs {
		dur := "running"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		_, _ = fmt.Fprintf(w, "%-36s %-12s %-16s %9s %7d %7d %5d %6d %6d %s\n",
			r.ID, r.Job, r.StartedAt.Local().Format("2006-01-02 15:04"), dur,
			r.Summary.Created, r.Summary.Skipped, r.Summary.Empty, r.Summary.Failed, r.Summary.Warned,
			truncate(r.Error, 60))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
