// Package scaffold creates the per-state directory tree with placeholder files.
package scaffold

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/report"
)

// File names written into every state directory.
const (
	InfoFile     = "info.json"
	CitiesFile   = "cities.csv"
	CountiesFile = "counties.csv"
)

// Header rows for the placeholder tables.
var (
	CitiesHeader   = []string{"city", "latitude", "longitude", "population"}
	CountiesHeader = []string{"county", "fips", "seat", "population"}
)

// Info is the placeholder metadata record for a state. Unset numeric fields
// are written as null.
type Info struct {
	State      string   `json:"state"`
	Capital    string   `json:"capital"`
	Population *int64   `json:"population"`
	AreaSqMi   *float64 `json:"area_sq_mi"`
	FIPS       string   `json:"fips"`
}

// Scaffold makes sure statesDir/<name>/ exists for every name and writes the
// placeholder files that are missing. Existing files are never touched.
// Any filesystem error aborts the run.
func Scaffold(ctx context.Context, statesDir string, names []string, sink report.Sink) (report.Summary, error) {
	if sink == nil {
		sink = report.Discard
	}
	log := zap.L().With(zap.String("component", "scaffold"))

	var sum report.Summary
	if err := os.MkdirAll(statesDir, 0o755); err != nil {
		return sum, eris.Wrapf(err, "scaffold: create %s", statesDir)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "scaffold: cancelled")
		}

		dir := filepath.Join(statesDir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sum, eris.Wrapf(err, "scaffold: create %s", dir)
		}

		written, err := scaffoldState(dir, name)
		if err != nil {
			return sum, err
		}

		var it report.Item
		if len(written) == 0 {
			it = report.Item{State: name, Status: report.StatusSkipped, Detail: "already scaffolded"}
		} else {
			it = report.Item{State: name, Status: report.StatusCreated, Detail: strings.Join(written, ", "), Count: len(written)}
		}
		sum.Add(it)
		sink.Record(it)
		log.Debug("state scaffolded", zap.String("state", name), zap.Strings("written", written))
	}

	return sum, nil
}

// scaffoldState writes the missing placeholder files and returns their names.
func scaffoldState(dir, name string) ([]string, error) {
	var written []string

	ok, err := writeIfAbsent(filepath.Join(dir, InfoFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(Info{State: name})
	})
	if err != nil {
		return nil, err
	}
	if ok {
		written = append(written, InfoFile)
	}

	for _, tbl := range []struct {
		file   string
		header []string
	}{
		{CitiesFile, CitiesHeader},
		{CountiesFile, CountiesHeader},
	} {
		ok, err := writeIfAbsent(filepath.Join(dir, tbl.file), func(f *os.File) error {
			w := csv.NewWriter(f)
			if err := w.Write(tbl.header); err != nil {
				return err
			}
			w.Flush()
			return w.Error()
		})
		if err != nil {
			return nil, err
		}
		if ok {
			written = append(written, tbl.file)
		}
	}

	return written, nil
}

// writeIfAbsent creates path exclusively and fills it with fill. It returns
// false without error when the file already exists.
func writeIfAbsent(path string, fill func(*os.File) error) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "scaffold: create %s", path)
	}

	if err := fill(f); err != nil {
		_ = f.Close()
		return false, eris.Wrapf(err, "scaffold: write %s", path)
	}
	if err := f.Close(); err != nil {
		return false, eris.Wrapf(err, "scaffold: close %s", path)
	}
	return true, nil
}
