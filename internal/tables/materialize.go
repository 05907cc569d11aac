package tables

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/report"
)

// OutputFile is the table written into each state directory.
const OutputFile = "counties.csv"

// Options configures a materializer run.
type Options struct {
	Schema   SchemaMode
	Workbook string // optional .xlsx path with one sheet per written state
}

// Result is the outcome of a materializer run.
type Result struct {
	Summary report.Summary
	Columns []string // columns used for the written tables
}

type loaded struct {
	state   string
	dir     string
	records []Record
}

// Materialize converts every statesDir/<State>/counties.{yaml,yml,json} into
// counties.csv. Per-state problems are reported through sink and never abort
// the run; only an unreadable statesDir or a write failure is returned.
func Materialize(ctx context.Context, statesDir string, opts Options, sink report.Sink) (Result, error) {
	if sink == nil {
		sink = report.Discard
	}
	if opts.Schema == "" {
		opts.Schema = SchemaUnion
	}
	log := zap.L().With(
		zap.String("component", "tables.materialize"),
		zap.String("schema", string(opts.Schema)),
	)

	var res Result
	emit := func(it report.Item) {
		res.Summary.Add(it)
		sink.Record(it)
	}

	dirs, err := StateDirs(statesDir)
	if err != nil {
		return res, err
	}

	var states []loaded
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "tables: cancelled")
		}
		name := filepath.Base(dir)

		src, err := FindSource(dir)
		if errors.Is(err, ErrNoSource) {
			emit(report.Item{State: name, Status: report.StatusSkipped, Detail: "no county list"})
			continue
		}
		if err != nil {
			emit(report.Item{State: name, Status: report.StatusFailed, Detail: err.Error()})
			continue
		}

		records, err := LoadSource(src)
		if err != nil {
			log.Warn("county list failed to load", zap.String("state", name), zap.Error(err))
			emit(report.Item{State: name, Status: report.StatusFailed, Detail: "load error: " + err.Error()})
			continue
		}
		if len(records) == 0 {
			emit(report.Item{State: name, Status: report.StatusEmpty, Detail: "county list is empty"})
			continue
		}
		states = append(states, loaded{state: name, dir: dir, records: records})
	}

	if len(states) == 0 {
		return res, nil
	}

	switch opts.Schema {
	case SchemaUnion:
		all := make([][]Record, len(states))
		for i, s := range states {
			all[i] = s.records
		}
		res.Columns = UnionColumns(all...)
	default:
		res.Columns = append([]string(nil), states[0].records[0].Keys...)
	}

	var written []loaded
	for _, s := range states {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "tables: cancelled")
		}

		if opts.Schema == SchemaStrict {
			if err := checkStrict(s.records, res.Columns); err != nil {
				emit(report.Item{State: s.state, Status: report.StatusFailed, Detail: "schema mismatch: " + err.Error()})
				continue
			}
		}

		detail := fmt.Sprintf("%s (%d rows)", OutputFile, len(s.records))
		if opts.Schema == SchemaFirst && divergent(s.records, res.Columns) {
			log.Warn("records padded or truncated to first schema", zap.String("state", s.state), zap.Strings("columns", res.Columns))
			detail = fmt.Sprintf("%s (%d rows; padded/truncated to first schema)", OutputFile, len(s.records))
		}

		path := filepath.Join(s.dir, OutputFile)
		if err := WriteCSV(path, res.Columns, Rows(s.records, res.Columns)); err != nil {
			return res, err
		}
		written = append(written, s)
		emit(report.Item{
			State:  s.state,
			Status: report.StatusCreated,
			Detail: detail,
			Count:  len(s.records),
		})
	}

	if opts.Workbook != "" && len(written) > 0 {
		sheets := make([]Sheet, len(written))
		for i, s := range written {
			sheets[i] = Sheet{Name: s.state, Columns: res.Columns, Rows: Rows(s.records, res.Columns)}
		}
		if err := WriteWorkbook(opts.Workbook, sheets); err != nil {
			return res, err
		}
		log.Info("workbook written", zap.String("path", opts.Workbook), zap.Int("sheets", len(sheets)))
	}

	return res, nil
}

// StateDirs lists the subdirectories of statesDir in sorted order.
func StateDirs(statesDir string) ([]string, error) {
	entries, err := os.ReadDir(statesDir)
	if err != nil {
		return nil, eris.Wrapf(err, "tables: read %s", statesDir)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(statesDir, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// WriteCSV writes a header row followed by rows, replacing path.
func WriteCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "tables: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "tables: write header %s", path)
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrapf(err, "tables: write rows %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "tables: close %s", path)
	}
	return nil
}
