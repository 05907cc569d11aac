package tiger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/state-atlas/internal/db"
	"github.com/sells-group/state-atlas/internal/report"
	"github.com/sells-group/state-atlas/internal/tables"
)

// ExportColumns are the COPY columns of the export table, in order.
var ExportColumns = []string{"state_name", "statefp", "geoid", "name", "the_geom"}

// ExportConfig names the PostGIS target of an export.
type ExportConfig struct {
	Schema    string
	Table     string
	BatchSize int // 0 = db.DefaultBatchSize
}

func (c ExportConfig) withDefaults() ExportConfig {
	if c.Schema == "" {
		c.Schema = "atlas"
	}
	if c.Table == "" {
		c.Table = "counties"
	}
	return c
}

func (c ExportConfig) qualified() string {
	return pgx.Identifier{c.Schema, c.Table}.Sanitize()
}

// EnsureTable creates the export schema, table and geometry index if missing.
func EnsureTable(ctx context.Context, pool db.Pool, cfg ExportConfig) error {
	cfg = cfg.withDefaults()
	stmts := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{cfg.Schema}.Sanitize()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	state_name TEXT NOT NULL,
	statefp    TEXT NOT NULL,
	geoid      TEXT NOT NULL,
	name       TEXT NOT NULL,
	the_geom   geometry(MultiPolygon, %d) NOT NULL,
	PRIMARY KEY (geoid)
)`, cfg.qualified(), SRID),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (the_geom)",
			pgx.Identifier{cfg.Table + "_the_geom_idx"}.Sanitize(), cfg.qualified()),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (state_name)",
			pgx.Identifier{cfg.Table + "_state_name_idx"}.Sanitize(), cfg.qualified()),
	}
	for _, sql := range stmts {
		if _, err := pool.Exec(ctx, sql); err != nil {
			return eris.Wrapf(err, "tiger: ensure %s.%s", cfg.Schema, cfg.Table)
		}
	}
	return nil
}

// LoadCounties replaces the rows of one state in a single transaction:
// DELETE by state_name, then COPY in batches.
func LoadCounties(ctx context.Context, pool db.Pool, cfg ExportConfig, state string, counties []County) (int64, error) {
	cfg = cfg.withDefaults()

	rows := make([][]any, 0, len(counties))
	for _, c := range counties {
		wkb, err := EncodeWKB(c.Geometry)
		if err != nil {
			return 0, eris.Wrapf(err, "tiger: county %s", c.GEOID)
		}
		if wkb == nil {
			continue
		}
		rows = append(rows, []any{state, c.StateFP, c.GEOID, c.Name, wkb})
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "tiger: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	del := fmt.Sprintf("DELETE FROM %s WHERE state_name = $1", cfg.qualified())
	if _, err := tx.Exec(ctx, del, state); err != nil {
		return 0, eris.Wrapf(err, "tiger: delete %s rows", state)
	}

	n, err := db.CopyBatches(ctx, tx, cfg.Schema, cfg.Table, ExportColumns, rows, cfg.BatchSize)
	if err != nil {
		return 0, eris.Wrapf(err, "tiger: load %s", state)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "tiger: commit")
	}
	return n, nil
}

// Export loads every state's counties.geojson under statesDir into PostGIS.
// States without the file are skipped; unreadable files fail that state.
// Database errors abort the run.
func Export(ctx context.Context, pool db.Pool, statesDir string, cfg ExportConfig, sink report.Sink) (report.Summary, error) {
	if sink == nil {
		sink = report.Discard
	}
	cfg = cfg.withDefaults()
	log := zap.L().With(
		zap.String("component", "tiger.export"),
		zap.String("table", cfg.Schema+"."+cfg.Table),
	)

	var sum report.Summary
	emit := func(it report.Item) {
		sum.Add(it)
		sink.Record(it)
	}

	dirs, err := tables.StateDirs(statesDir)
	if err != nil {
		return sum, err
	}

	if err := EnsureTable(ctx, pool, cfg); err != nil {
		return sum, err
	}

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "tiger: export interrupted")
		}

		state := filepath.Base(dir)
		path := filepath.Join(dir, GeoJSONFile)
		if _, err := os.Stat(path); err != nil {
			emit(report.Item{State: state, Status: report.StatusSkipped, Detail: "no " + GeoJSONFile})
			continue
		}

		counties, err := ReadGeoJSON(path)
		if err != nil {
			log.Warn("unreadable geojson", zap.String("state", state), zap.Error(err))
			emit(report.Item{State: state, Status: report.StatusFailed, Detail: err.Error()})
			continue
		}

		n, err := LoadCounties(ctx, pool, cfg, state, counties)
		if err != nil {
			return sum, err
		}
		log.Debug("state exported", zap.String("state", state), zap.Int64("rows", n))
		emit(report.Item{
			State:  state,
			Status: report.StatusCreated,
			Detail: fmt.Sprintf("%s.%s (%d rows)", cfg.Schema, cfg.Table, n),
			Count:  int(n),
		})
	}

	return sum, nil
}
