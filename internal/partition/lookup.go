package partition

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/tables"
)

// DefaultCodeColumn is the counties.csv column holding the state code.
const DefaultCodeColumn = "state_fips"

// Lookup maps a state code (2-digit FIPS) to a state directory name.
type Lookup map[string]string

// Codes returns the codes in ascending order.
func (l Lookup) Codes() []string {
	codes := make([]string, 0, len(l))
	for c := range l {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// BuildLookup reads the first data row of each state's counties.csv and
// takes its code from codeColumn, falling back to state_fips, statefp and
// finally the 2-digit prefix of a 5-digit fips. States whose table is
// missing, empty, or has no usable code are left out. When two states
// yield the same code the first in directory order wins and the other is
// reported as warned to sink.
func BuildLookup(statesDir, codeColumn string, sink report.Sink) (Lookup, error) {
	if sink == nil {
		sink = report.Discard
	}
	log := zap.L().With(zap.String("component", "partition.lookup"))

	dirs, err := tables.StateDirs(statesDir)
	if err != nil {
		return nil, err
	}

	lookup := make(Lookup, len(dirs))
	for _, dir := range dirs {
		state := filepath.Base(dir)
		code, ok := stateCode(filepath.Join(dir, tables.OutputFile), codeColumn)
		if !ok {
			log.Debug("state has no code", zap.String("state", state))
			continue
		}
		if prev, dup := lookup[code]; dup {
			log.Warn("duplicate state code", zap.String("code", code), zap.String("kept", prev), zap.String("dropped", state))
			sink.Record(report.Item{State: state, Status: report.StatusWarned, Detail: "code " + code + " already used by " + prev})
			continue
		}
		lookup[code] = state
	}
	return lookup, nil
}

func stateCode(path, codeColumn string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.L().Debug("partition: open table", zap.String("path", path), zap.Error(err))
		}
		return "", false
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return "", false
	}
	row, err := r.Read()
	if err != nil {
		return "", false
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := col[h]; !seen {
			col[h] = i
		}
	}
	value := func(name string) string {
		i, ok := col[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for _, name := range []string{codeColumn, DefaultCodeColumn, "statefp"} {
		if name == "" {
			continue
		}
		if v := value(name); v != "" {
			return normalizeCode(v), true
		}
	}
	if v := value("fips"); len(v) == 5 && digits(v) {
		return v[:2], true
	}
	return "", false
}

// normalizeCode left-pads a one-digit numeric code ("1" → "01").
func normalizeCode(v string) string {
	if len(v) == 1 && digits(v) {
		return "0" + v
	}
	return v
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
