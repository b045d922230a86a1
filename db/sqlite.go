// Package db holds the SQLite access of the harness: the EWLD genre table
// read by the label extractor and the log of classification runs.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"symfeat/data"
)

const busyTimeout = 5 * time.Second

// open opens an existing database file. A missing file is data.ErrNotFound.
func open(path string, readOnly bool) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("database %s: %w", path, data.ErrNotFound)
		}
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeout.Milliseconds())
	if readOnly {
		dsn += "&mode=ro"
	}
	return sql.Open("sqlite3", dsn)
}

const runsSchema = `
    CREATE TABLE IF NOT EXISTS classification_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        task TEXT NOT NULL,
        group_key TEXT NOT NULL,
        rows INTEGER NOT NULL,
        columns INTEGER NOT NULL,
        best_score REAL NOT NULL,
        dummy_score REAL NOT NULL,
        elapsed_ms INTEGER NOT NULL,
        finished_at DATETIME NOT NULL,
        UNIQUE(run_id, task)
    );
    `

// Run is one classifier search over one task.
type Run struct {
	RunID      string
	Task       string
	Group      string
	Rows       int
	Columns    int
	BestScore  float64
	DummyScore float64
	Elapsed    time.Duration
	FinishedAt time.Time
}

// RunStore appends classification results to a SQLite file, creating it if
// needed.
type RunStore struct {
	db *sql.DB
}

func OpenRunStore(path string) (*RunStore, error) {
	database, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeout.Milliseconds()))
	if err != nil {
		return nil, err
	}
	if _, err := database.Exec(runsSchema); err != nil {
		database.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}
	return &RunStore{db: database}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) Save(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO classification_runs (
            run_id, task, group_key, rows, columns, best_score, dummy_score, elapsed_ms, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Task, run.Group, run.Rows, run.Columns,
		run.BestScore, run.DummyScore, run.Elapsed.Milliseconds(), run.FinishedAt.UTC(),
	)
	return err
}

// Runs returns every stored run of runID, in insertion order. An empty runID
// returns all runs.
func (s *RunStore) Runs(ctx context.Context, runID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT run_id, task, group_key, rows, columns, best_score, dummy_score, elapsed_ms, finished_at
        FROM classification_runs
        WHERE ? = '' OR run_id = ?
        ORDER BY id`, runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		var elapsed int64
		if err := rows.Scan(&r.RunID, &r.Task, &r.Group, &r.Rows, &r.Columns,
			&r.BestScore, &r.DummyScore, &elapsed, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.Elapsed = time.Duration(elapsed) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
