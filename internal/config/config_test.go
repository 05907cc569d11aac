package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Atlas.Root)
	assert.Equal(t, 2023, cfg.Tiger.Year)
	assert.Equal(t, "union", cfg.Materialize.Schema)
	assert.Equal(t, "state_fips", cfg.Partition.CodeColumn)
	assert.Equal(t, "atlas", cfg.Export.Schema)
	assert.Equal(t, "counties", cfg.Export.Table)
	assert.Equal(t, 5000, cfg.Export.BatchSize)
	assert.True(t, cfg.Ledger.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yamlContent := `
atlas:
  root: /data/atlas
tiger:
  year: 2022
  source_crs: EPSG:5070
materialize:
  schema: strict
  workbook: out/counties.xlsx
export:
  database_url: postgres://localhost/atlas
  table: county_shapes
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/atlas", cfg.Atlas.Root)
	assert.Equal(t, 2022, cfg.Tiger.Year)
	assert.Equal(t, "EPSG:5070", cfg.Tiger.SourceCRS)
	assert.Equal(t, "strict", cfg.Materialize.Schema)
	assert.Equal(t, "out/counties.xlsx", cfg.Materialize.Workbook)
	assert.Equal(t, "postgres://localhost/atlas", cfg.Export.DatabaseURL)
	assert.Equal(t, "county_shapes", cfg.Export.Table)
	assert.Equal(t, "atlas", cfg.Export.Schema)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ATLAS_ATLAS_ROOT", "/srv/atlas")
	t.Setenv("ATLAS_TIGER_YEAR", "2021")
	t.Setenv("ATLAS_EXPORT_DATABASE_URL", "postgres://env/atlas")
	t.Setenv("ATLAS_LEDGER_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/atlas", cfg.Atlas.Root)
	assert.Equal(t, 2021, cfg.Tiger.Year)
	assert.Equal(t, "postgres://env/atlas", cfg.Export.DatabaseURL)
	assert.False(t, cfg.Ledger.Enabled)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("atlas: [unterminated"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_Paths(t *testing.T) {
	cfg := &Config{Atlas: AtlasConfig{Root: "/atlas"}, Ledger: LedgerConfig{Enabled: true}}

	assert.Equal(t, filepath.Join("/atlas", "states"), cfg.StatesDir())
	assert.Equal(t, filepath.Join("/atlas", "scripts", "data", "geo"), cfg.DataDir())
	assert.Equal(t, filepath.Join("/atlas", ".atlas", "ledger.db"), cfg.LedgerPath())

	cfg.Atlas.StatesDir = "/elsewhere/states"
	cfg.Tiger.DataDir = "/cache/geo"
	cfg.Ledger.Path = "/tmp/ledger.db"
	assert.Equal(t, "/elsewhere/states", cfg.StatesDir())
	assert.Equal(t, "/cache/geo", cfg.DataDir())
	assert.Equal(t, "/tmp/ledger.db", cfg.LedgerPath())

	cfg.Ledger.Enabled = false
	assert.Empty(t, cfg.LedgerPath())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Tiger:       TigerConfig{Year: 2023},
			Materialize: MaterializeConfig{Schema: "union"},
			Export:      ExportConfig{DatabaseURL: "postgres://localhost/atlas"},
		}
	}

	for _, mode := range []string{"scaffold", "status", "materialize", "partition", "fetch", "prepare", "export"} {
		assert.NoError(t, valid().Validate(mode), mode)
	}

	cfg := valid()
	cfg.Materialize.Schema = "loose"
	assert.Error(t, cfg.Validate("materialize"))
	assert.Error(t, cfg.Validate("prepare"))

	cfg = valid()
	cfg.Tiger.Year = 1990
	assert.Error(t, cfg.Validate("fetch"))
	// An explicit shapefile makes the year irrelevant.
	cfg.Tiger.Shapefile = "/data/counties.shp"
	assert.NoError(t, cfg.Validate("partition"))

	cfg = valid()
	cfg.Export.DatabaseURL = ""
	err := cfg.Validate("export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	cfg = valid()
	cfg.Export.BatchSize = -1
	assert.Error(t, cfg.Validate("export"))

	assert.NoError(t, (&Config{}).Validate("help"))
}

func TestInitLogger_JSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
