package tables

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/state-atlas/internal/report"
)

const alabamaYAML = `
- county: Autauga
  fips: "01001"
  seat: Prattville
  population: 58805
- county: Baldwin
  fips: "01003"
  seat: Bay Minette
  population: 231767
- county: Barbour
  fips: "01005"
  seat: Clayton
  population: 25223
`

func writeState(t *testing.T, root, state, file, body string) string {
	t.Helper()
	dir := filepath.Join(root, state)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if file != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0o644))
	}
	return dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestMaterialize_UniformRecords(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "Alabama", "counties.yaml", alabamaYAML)

	res, err := Materialize(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Created)
	assert.Equal(t, []string{"county", "fips", "seat", "population"}, res.Columns)

	rows := readCSV(t, filepath.Join(root, "Alabama", OutputFile))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"county", "fips", "seat", "population"}, rows[0])
	assert.Equal(t, []string{"Autauga", "01001", "Prattville", "58805"}, rows[1])
}

func TestMaterialize_SkipEmptyAndFailed(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "Alabama", "counties.yaml", alabamaYAML)
	writeState(t, root, "Alaska", "counties.json", "[]")
	writeState(t, root, "Arizona", "counties.yaml", "- county: [broken")
	writeState(t, root, "Arkansas", "", "")
	writeState(t, root, "California", "counties.yaml", alabamaYAML)
	// Loose files next to state directories are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	c := &report.Collector{}
	res, err := Materialize(context.Background(), root, Options{}, c)
	require.NoError(t, err)

	assert.Equal(t, report.Summary{Created: 2, Skipped: 1, Empty: 1, Failed: 1}, res.Summary)

	assert.NoFileExists(t, filepath.Join(root, "Alaska", OutputFile))
	assert.NoFileExists(t, filepath.Join(root, "Arizona", OutputFile))
	assert.NoFileExists(t, filepath.Join(root, "Arkansas", OutputFile))
	assert.FileExists(t, filepath.Join(root, "California", OutputFile))

	it, ok := c.ByState("Arizona")
	require.True(t, ok)
	assert.Equal(t, report.StatusFailed, it.Status)
	it, ok = c.ByState("Alaska")
	require.True(t, ok)
	assert.Equal(t, report.StatusEmpty, it.Status)
}

func TestMaterialize_EmptyListKeepsScaffoldedTable(t *testing.T) {
	root := t.TempDir()
	dir := writeState(t, root, "Alaska", "counties.yaml", "counties: []")
	header := "county,fips,seat,population\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, OutputFile), []byte(header), 0o644))

	writeState(t, root, "Hawaii", "counties.yaml", "counties: null\n")

	res, err := Materialize(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Summary.Created)
	assert.Equal(t, 0, res.Summary.Failed)
	assert.Equal(t, 2, res.Summary.Empty)
	assert.NoFileExists(t, filepath.Join(root, "Hawaii", OutputFile))

	data, err := os.ReadFile(filepath.Join(dir, OutputFile))
	require.NoError(t, err)
	assert.Equal(t, header, string(data))
}

func TestMaterialize_UnionSchema(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "Alabama", "counties.yaml", "- county: A\n  fips: '01001'\n")
	writeState(t, root, "Alaska", "counties.yaml", "- county: B\n  borough_seat: C\n")

	res, err := Materialize(context.Background(), root, Options{Schema: SchemaUnion}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"county", "fips", "borough_seat"}, res.Columns)

	assert.Equal(t, [][]string{
		{"county", "fips", "borough_seat"},
		{"A", "01001", ""},
	}, readCSV(t, filepath.Join(root, "Alabama", OutputFile)))
	assert.Equal(t, [][]string{
		{"county", "fips", "borough_seat"},
		{"B", "", "C"},
	}, readCSV(t, filepath.Join(root, "Alaska", OutputFile)))
}

func TestMaterialize_StrictSchema(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "Alabama", "counties.yaml", "- county: A\n  fips: '01001'\n")
	writeState(t, root, "Alaska", "counties.yaml", "- county: B\n  borough_seat: C\n")
	writeState(t, root, "Arizona", "counties.yaml", "- fips: '04001'\n  county: Apache\n")

	c := &report.Collector{}
	res, err := Materialize(context.Background(), root, Options{Schema: SchemaStrict}, c)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.Created)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.NoFileExists(t, filepath.Join(root, "Alaska", OutputFile))

	// Same key set in a different order is accepted and written in reference order.
	assert.Equal(t, [][]string{
		{"county", "fips"},
		{"Apache", "04001"},
	}, readCSV(t, filepath.Join(root, "Arizona", OutputFile)))
}

func TestMaterialize_FirstSchemaPadsAndTruncates(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "Alabama", "counties.yaml", "- county: A\n  fips: '01001'\n")
	writeState(t, root, "Alaska", "counties.yaml", "- county: B\n  borough_seat: C\n")

	c := &report.Collector{}
	res, err := Materialize(context.Background(), root, Options{Schema: SchemaFirst}, c)
	require.NoError(t, err)
	// One state, one outcome: the divergence rides on the created item.
	assert.Equal(t, 2, res.Summary.Created)
	assert.Equal(t, 0, res.Summary.Warned)
	require.Len(t, c.Items, 2)

	alabama, _ := c.ByState("Alabama")
	assert.NotContains(t, alabama.Detail, "padded")
	alaska, ok := c.ByState("Alaska")
	require.True(t, ok)
	assert.Equal(t, report.StatusCreated, alaska.Status)
	assert.Contains(t, alaska.Detail, "padded/truncated")

	assert.Equal(t, [][]string{
		{"county", "fips"},
		{"B", ""},
	}, readCSV(t, filepath.Join(root, "Alaska", OutputFile)))
}

func TestMaterialize_Workbook(t *testing.T) {
	root := t.TempDir()
	writeState(t, root, "Alabama", "counties.yaml", alabamaYAML)
	writeState(t, root, "Alaska", "counties.yaml", "- county: Juneau\n  fips: '02110'\n  seat: Juneau\n  population: 32255\n")

	book := filepath.Join(t.TempDir(), "counties.xlsx")
	_, err := Materialize(context.Background(), root, Options{Workbook: book}, nil)
	require.NoError(t, err)

	f, err := xlsx.OpenFile(book)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Alabama", f.Sheets[0].Name)
	assert.Len(t, f.Sheets[0].Rows, 4)
	assert.Equal(t, "02110", f.Sheets[1].Rows[1].Cells[1].String())
}

func TestMaterialize_MissingRoot(t *testing.T) {
	_, err := Materialize(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}, nil)
	assert.Error(t, err)
}

func TestParseSchemaMode(t *testing.T) {
	m, err := ParseSchemaMode("")
	require.NoError(t, err)
	assert.Equal(t, SchemaUnion, m)

	m, err = ParseSchemaMode("strict")
	require.NoError(t, err)
	assert.Equal(t, SchemaStrict, m)

	_, err = ParseSchemaMode("loose")
	assert.Error(t, err)
}
