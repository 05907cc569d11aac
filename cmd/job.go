package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/ledger"
	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/tiger"
)

// jobFunc runs one batch job, reporting every state to sink.
type jobFunc func(ctx context.Context, sink report.Sink) (report.Summary, error)

// runJob runs fn with a console sink and, when the ledger is enabled, records
// the run and its items. A ledger that cannot be opened is logged and skipped.
func runJob(ctx context.Context, out io.Writer, ledgerPath, job string, fn jobFunc) (report.Summary, error) {
	log := zap.L().With(zap.String("command", job))

	sinks := report.Multi{report.Console{W: out}}
	var rec *ledger.Recorder
	if ledgerPath != "" {
		l, err := ledger.Open(ctx, ledgerPath)
		if err != nil {
			log.Warn("ledger unavailable, run will not be recorded", zap.Error(err))
		} else {
			defer l.Close() //nolint:errcheck
			rec, err = l.Start(ctx, job)
			if err != nil {
				log.Warn("ledger: start run", zap.Error(err))
			} else {
				sinks = append(sinks, rec)
			}
		}
	}

	sum, err := fn(ctx, sinks)
	if rec != nil {
		if ferr := rec.Finish(sum, err); ferr != nil {
			log.Warn("ledger: finish run", zap.String("run_id", rec.ID()), zap.Error(ferr))
		}
	}
	if err != nil {
		return sum, eris.Wrap(err, job)
	}

	log.Info("job complete",
		zap.Int("created", sum.Created),
		zap.Int("skipped", sum.Skipped),
		zap.Int("empty", sum.Empty),
		zap.Int("failed", sum.Failed),
		zap.Int("warned", sum.Warned),
	)
	return sum, nil
}

// printSummary writes the end-of-run counters.
func printSummary(w io.Writer, sum report.Summary) {
	_, _ = fmt.Fprintln(w, "\nSummary:")
	_, _ = fmt.Fprintf(w, "  created : %d\n", sum.Created)
	_, _ = fmt.Fprintf(w, "  skipped : %d\n", sum.Skipped)
	_, _ = fmt.Fprintf(w, "  empty   : %d\n", sum.Empty)
	_, _ = fmt.Fprintf(w, "  failed  : %d\n", sum.Failed)
	if sum.Warned > 0 {
		_, _ = fmt.Fprintf(w, "  warned  : %d\n", sum.Warned)
	}
}

// shapefilePath resolves the nationwide county shapefile from config.
func shapefilePath() string {
	if cfg.Tiger.Shapefile != "" {
		return cfg.Tiger.Shapefile
	}
	return tiger.ShapefilePath(cfg.DataDir(), cfg.Tiger.Year)
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var stdout io.Writer = os.Stdout
