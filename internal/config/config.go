package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Atlas       AtlasConfig       `yaml:"atlas" mapstructure:"atlas"`
	Tiger       TigerConfig       `yaml:"tiger" mapstructure:"tiger"`
	Materialize MaterializeConfig `yaml:"materialize" mapstructure:"materialize"`
	Partition   PartitionConfig   `yaml:"partition" mapstructure:"partition"`
	Export      ExportConfig      `yaml:"export" mapstructure:"export"`
	Ledger      LedgerConfig      `yaml:"ledger" mapstructure:"ledger"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// AtlasConfig locates the dataset on disk.
type AtlasConfig struct {
	Root      string `yaml:"root" mapstructure:"root"`
	StatesDir string `yaml:"states_dir" mapstructure:"states_dir"` // empty = <root>/states
}

// TigerConfig configures the nationwide county shapefile.
type TigerConfig struct {
	Year      int    `yaml:"year" mapstructure:"year"`
	Shapefile string `yaml:"shapefile" mapstructure:"shapefile"` // empty = derived from data_dir and year
	DataDir   string `yaml:"data_dir" mapstructure:"data_dir"`   // empty = <root>/scripts/data/geo
	SourceCRS string `yaml:"source_crs" mapstructure:"source_crs"`
}

// MaterializeConfig configures the county table materializer.
type MaterializeConfig struct {
	Schema   string `yaml:"schema" mapstructure:"schema"`
	Workbook string `yaml:"workbook" mapstructure:"workbook"`
}

// PartitionConfig configures the geometry partitioner.
type PartitionConfig struct {
	CodeColumn string `yaml:"code_column" mapstructure:"code_column"`
}

// ExportConfig configures the PostGIS export.
type ExportConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	Table       string `yaml:"table" mapstructure:"table"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// LedgerConfig configures the local run ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // empty = <root>/.atlas/ledger.db
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("atlas.root", ".")
	v.SetDefault("atlas.states_dir", "")
	v.SetDefault("tiger.year", 2023)
	v.SetDefault("tiger.shapefile", "")
	v.SetDefault("tiger.data_dir", "")
	v.SetDefault("tiger.source_crs", "")
	v.SetDefault("materialize.schema", "union")
	v.SetDefault("materialize.workbook", "")
	v.SetDefault("partition.code_column", "state_fips")
	v.SetDefault("export.database_url", "")
	v.SetDefault("export.schema", "atlas")
	v.SetDefault("export.table", "counties")
	v.SetDefault("export.batch_size", 5000)
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// StatesDir returns the directory holding one subdirectory per state.
func (c *Config) StatesDir() string {
	if c.Atlas.StatesDir != "" {
		return c.Atlas.StatesDir
	}
	return filepath.Join(c.Atlas.Root, "states")
}

// DataDir returns where the TIGER/Line download is kept.
func (c *Config) DataDir() string {
	if c.Tiger.DataDir != "" {
		return c.Tiger.DataDir
	}
	return filepath.Join(c.Atlas.Root, "scripts", "data", "geo")
}

// LedgerPath returns the SQLite ledger file, or "" when the ledger is off.
func (c *Config) LedgerPath() string {
	if !c.Ledger.Enabled {
		return ""
	}
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(c.Atlas.Root, ".atlas", "ledger.db")
}

// Validate checks the settings a command needs before it touches anything.
// Commands without requirements always pass.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "materialize":
		return c.validateSchema()
	case "partition", "fetch":
		return c.validateYear()
	case "prepare":
		if err := c.validateSchema(); err != nil {
			return err
		}
		return c.validateYear()
	case "export":
		if c.Export.DatabaseURL == "" {
			return eris.New("config: export.database_url is required")
		}
		if c.Export.BatchSize < 0 {
			return eris.Errorf("config: export.batch_size must be >= 0, got %d", c.Export.BatchSize)
		}
	}
	return nil
}

func (c *Config) validateSchema() error {
	switch c.Materialize.Schema {
	case "", "union", "strict", "first":
		return nil
	default:
		return eris.Errorf("config: materialize.schema must be union, strict or first, got %q", c.Materialize.Schema)
	}
}

func (c *Config) validateYear() error {
	if c.Tiger.Shapefile != "" {
		return nil
	}
	// Nationwide county shapefiles are published from 2007 on.
	if c.Tiger.Year < 2007 || c.Tiger.Year > 2100 {
		return eris.Errorf("config: tiger.year %d is out of range", c.Tiger.Year)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
