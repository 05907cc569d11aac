// Package partition splits the nationwide county geometry into one GeoJSON
// file per state directory.
package partition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/crs"
	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/tiger"
)

// Options configure a full partition run.
type Options struct {
	StatesDir  string
	Shapefile  string
	SourceCRS  string // authority code or .prj path; empty = sidecar .prj, then NAD83
	CodeColumn string
}

// Run loads the shapefile, builds the lookup and writes the per-state files.
// An unreadable shapefile or unsupported CRS aborts the run.
func Run(ctx context.Context, opts Options, sink report.Sink) (report.Summary, error) {
	if sink == nil {
		sink = report.Discard
	}

	proj, err := crs.ForShapefile(opts.Shapefile, opts.SourceCRS)
	if err != nil {
		return report.Summary{}, eris.Wrap(err, "partition: source CRS")
	}
	counties, err := tiger.ReadCounties(opts.Shapefile, proj)
	if err != nil {
		return report.Summary{}, err
	}

	var sum report.Summary
	counting := sinkFunc(func(it report.Item) {
		sum.Add(it)
		sink.Record(it)
	})
	lookup, err := BuildLookup(opts.StatesDir, opts.CodeColumn, counting)
	if err != nil {
		return sum, err
	}

	part, err := Partition(ctx, opts.StatesDir, counties, lookup, sink)
	sum.Merge(part)
	return sum, err
}

// Partition writes <statesDir>/<state>/counties.geojson for every lookup
// entry in ascending code order. Existing files are left untouched. A code
// with no matching features is warned and gets no file.
func Partition(ctx context.Context, statesDir string, counties []tiger.County, lookup Lookup, sink report.Sink) (report.Summary, error) {
	if sink == nil {
		sink = report.Discard
	}
	log := zap.L().With(zap.String("component", "partition"))

	var sum report.Summary
	emit := func(it report.Item) {
		sum.Add(it)
		sink.Record(it)
	}

	byCode := make(map[string][]tiger.County)
	for _, c := range counties {
		byCode[c.StateFP] = append(byCode[c.StateFP], c)
	}

	for _, code := range lookup.Codes() {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "partition: cancelled")
		}
		state := lookup[code]
		path := filepath.Join(statesDir, state, tiger.GeoJSONFile)

		if _, err := os.Stat(path); err == nil {
			emit(report.Item{State: state, Status: report.StatusSkipped, Detail: tiger.GeoJSONFile + " exists"})
			continue
		}

		matches := byCode[code]
		if len(matches) == 0 {
			log.Warn("no features for state", zap.String("state", state), zap.String("code", code))
			emit(report.Item{State: state, Status: report.StatusWarned, Detail: fmt.Sprintf("no features with STATEFP=%s", code)})
			continue
		}

		if err := tiger.WriteGeoJSON(path, matches); err != nil {
			log.Error("write failed", zap.String("state", state), zap.Error(err))
			emit(report.Item{State: state, Status: report.StatusFailed, Detail: err.Error()})
			continue
		}
		emit(report.Item{
			State:  state,
			Status: report.StatusCreated,
			Detail: fmt.Sprintf("%s (%d features)", tiger.GeoJSONFile, len(matches)),
			Count:  len(matches),
		})
	}

	return sum, nil
}

type sinkFunc func(report.Item)

func (f sinkFunc) Record(it report.Item) { f(it) }
