package partition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/state-atlas/internal/report"
)

func writeTable(t *testing.T, root, state, body string) {
	t.Helper()
	dir := filepath.Join(root, state)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if body != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "counties.csv"), []byte(body), 0o644))
	}
}

func TestBuildLookup(t *testing.T) {
	root := t.TempDir()
	writeTable(t, root, "Alabama", "county,fips,seat,population\nAutauga,01001,Prattville,58805\n")
	writeTable(t, root, "Alaska", "county,state_fips\nJuneau,02\n")
	writeTable(t, root, "Arizona", "county,fips,seat,population\n")
	writeTable(t, root, "Arkansas", "")
	writeTable(t, root, "California", "county,STATEFP\nAlameda,6\n")
	writeTable(t, root, "Colorado", "county,seat\nAdams,Brighton\n")

	lookup, err := BuildLookup(root, "", nil)
	require.NoError(t, err)
	assert.Equal(t, Lookup{"01": "Alabama", "02": "Alaska", "06": "California"}, lookup)
	assert.Equal(t, []string{"01", "02", "06"}, lookup.Codes())
}

func TestBuildLookup_CustomColumn(t *testing.T) {
	root := t.TempDir()
	writeTable(t, root, "Alabama", "county,region_code,fips\nAutauga,AL,01001\n")

	lookup, err := BuildLookup(root, "region_code", nil)
	require.NoError(t, err)
	assert.Equal(t, Lookup{"AL": "Alabama"}, lookup)
}

func TestBuildLookup_DuplicateKeepsFirst(t *testing.T) {
	root := t.TempDir()
	writeTable(t, root, "Alabama", "county,fips\nAutauga,01001\n")
	writeTable(t, root, "Alabama Copy", "county,fips\nBaldwin,01003\n")

	c := &report.Collector{}
	lookup, err := BuildLookup(root, "", c)
	require.NoError(t, err)
	assert.Equal(t, Lookup{"01": "Alabama"}, lookup)

	it, ok := c.ByState("Alabama Copy")
	require.True(t, ok)
	assert.Equal(t, report.StatusWarned, it.Status)
}

func TestBuildLookup_MissingRoot(t *testing.T) {
	_, err := BuildLookup(filepath.Join(t.TempDir(), "nope"), "", nil)
	assert.Error(t, err)
}
