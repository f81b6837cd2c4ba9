// Package history records run summaries in a local SQLite database so
// past runs can be compared from the CLI. It sits outside the execution
// engine; the engine itself never persists anything.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/restflow/packages/output"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	errored INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	testset TEXT NOT NULL,
	testcase TEXT NOT NULL,
	success INTEGER NOT NULL,
	status INTEGER,
	duration_ms INTEGER NOT NULL,
	error TEXT
);
`

// Store is a run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores one run report and returns its id.
func (s *Store) RecordRun(report *output.Report) (int64, error) {
	passed, failed, errored := report.Counts()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, duration_ms, passed, failed, errored) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), report.Duration.Milliseconds(), passed, failed, errored,
	)
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, set := range report.Sets {
		for _, r := range set.Results {
			var status any
			if r.Response != nil {
				status = r.Response.StatusCode
			}
			var errText any
			if r.Err != nil {
				errText = r.Err.Error()
			}
			_, err := tx.Exec(
				`INSERT INTO results (run_id, testset, testcase, success, status, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, set.Name, r.Name, r.Success, status, r.Duration.Milliseconds(), errText,
			)
			if err != nil {
				return 0, fmt.Errorf("recording result: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID        int64
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Errored   int
}

// RecentRuns returns the latest n runs, newest first.
func (s *Store) RecentRuns(n int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, passed, failed, errored FROM runs ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var startedAt string
		var durationMs int64
		if err := rows.Scan(&run.ID, &startedAt, &durationMs, &run.Passed, &run.Failed, &run.Errored); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
