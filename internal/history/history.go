// Package history keeps an optional SQLite ledger of remediation runs. The
// engine never reads it; it only serves the history command.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dshills/cimedic/internal/engine"
)

// Entry is one recorded run.
type Entry struct {
	RunID        string    `json:"runId"`
	RecordedAt   time.Time `json:"recordedAt"`
	Kind         string    `json:"kind"`
	Primary      string    `json:"primary,omitempty"`
	Status       string    `json:"status"`
	Strategy     string    `json:"strategy,omitempty"`
	FilesTouched []string  `json:"filesTouched"`
	Explanation  string    `json:"explanation"`
	DryRun       bool      `json:"dryRun,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL UNIQUE,
	recorded_at DATETIME NOT NULL,
	kind TEXT NOT NULL,
	primary_name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	strategy TEXT NOT NULL DEFAULT '',
	files_touched TEXT NOT NULL DEFAULT '[]',
	explanation TEXT NOT NULL DEFAULT '',
	dry_run INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_recorded_at ON runs(recorded_at);
`

// Store is the run ledger.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores res.
func (s *Store) Record(ctx context.Context, res engine.Result) error {
	files := res.FilesTouched
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("history: encode files: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, recorded_at, kind, primary_name, status, strategy, files_touched, explanation, dry_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, s.now().UTC(), string(res.Diagnosis.Kind), res.Diagnosis.Primary,
		string(res.Status), res.Strategy, string(filesJSON), res.Explanation, res.DryRun,
	)
	if err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// List returns the latest runs, newest first. A non-positive limit means 20.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, recorded_at, kind, primary_name, status, strategy, files_touched, explanation, dry_run
		 FROM runs ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e     Entry
			files string
		)
		if err := rows.Scan(&e.RunID, &e.RecordedAt, &e.Kind, &e.Primary, &e.Status, &e.Strategy, &files, &e.Explanation, &e.DryRun); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &e.FilesTouched); err != nil {
			return nil, fmt.Errorf("history: decode files of %s: %w", e.RunID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return entries, nil
}
