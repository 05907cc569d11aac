// Package ledger records job runs and their per-state outcomes in a local
// SQLite database.
package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/state-atlas/internal/report"
)

// Ledger is a SQLite-backed run history.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path, configures WAL mode and migrates.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "ledger: create dir")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "ledger: exec %s", pragma)
		}
	}

	l := &Ledger{db: db}
	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME,
	created     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	empty       INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	warned      INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS run_items (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	state  TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	count  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_items_run_id ON run_items(run_id);
`

func (l *Ledger) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "ledger: migrate")
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Run is one recorded job execution.
type Run struct {
	ID         string
	Job        string
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    report.Summary
	Error      string
}

// Start inserts a new run for job and returns a Recorder that appends its items.
func (l *Ledger) Start(ctx context.Context, job string) (*Recorder, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, job, started_at) VALUES (?, ?, ?)`,
		id, job, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: insert run")
	}
	// Items and the final summary must land even after the job is cancelled.
	return &Recorder{l: l, ctx: context.WithoutCancel(ctx), id: id}, nil
}

// Latest returns up to limit runs, newest first.
func (l *Ledger) Latest(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, job, started_at, finished_at, created, skipped, empty, failed, warned, error
		FROM runs ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Job, &r.StartedAt, &finished,
			&r.Summary.Created, &r.Summary.Skipped, &r.Summary.Empty, &r.Summary.Failed, &r.Summary.Warned,
			&r.Error); err != nil {
			return nil, eris.Wrap(err, "ledger: scan run")
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "ledger: iterate runs")
}

// Items returns the items of a run in insertion order.
func (l *Ledger) Items(ctx context.Context, runID string) ([]report.Item, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT state, status, detail, count FROM run_items WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: query items %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var items []report.Item
	for rows.Next() {
		var it report.Item
		var status string
		if err := rows.Scan(&it.State, &status, &it.Detail, &it.Count); err != nil {
			return nil, eris.Wrap(err, "ledger: scan item")
		}
		it.Status = report.Status(status)
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "ledger: iterate items")
}

// Recorder is a report.Sink bound to one run.
type Recorder struct {
	l   *Ledger
	ctx context.Context
	id  string
	err error
}

// ID returns the run id.
func (r *Recorder) ID() string { return r.id }

// Record implements report.Sink. Write failures are logged and surfaced by Finish.
func (r *Recorder) Record(it report.Item) {
	_, err := r.l.db.ExecContext(r.ctx,
		`INSERT INTO run_items (run_id, state, status, detail, count) VALUES (?, ?, ?, ?, ?)`,
		r.id, it.State, string(it.Status), it.Detail, it.Count,
	)
	if err != nil && r.err == nil {
		r.err = eris.Wrap(err, "ledger: insert item")
		zap.L().Warn("ledger: item not recorded", zap.String("run_id", r.id), zap.Error(err))
	}
}

// Finish stores the summary and the job error, if any.
func (r *Recorder) Finish(sum report.Summary, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	_, err := r.l.db.ExecContext(r.ctx, `
		UPDATE runs SET finished_at = ?, created = ?, skipped = ?, empty = ?, failed = ?, warned = ?, error = ?
		WHERE id = ?`,
		time.Now().UTC(), sum.Created, sum.Skipped, sum.Empty, sum.Failed, sum.Warned, msg, r.id,
	)
	if err != nil {
		return eris.Wrapf(err, "ledger: finish run %s", r.id)
	}
	return r.err
}
