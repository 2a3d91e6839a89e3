// Package journal records submission runs in SQLite so that remote resources
// left behind by a failed run can be found later.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Resource is one remote record created during a run.
type Resource struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

// Run is the journal entry of one submission.
type Run struct {
	ID          string     `json:"id"`
	EventName   string     `json:"event_name"`
	EventID     string     `json:"event_id,omitempty"`
	State       string     `json:"state"`
	FailureKind string     `json:"failure_kind,omitempty"`
	Message     string     `json:"message,omitempty"`
	Resources   []Resource `json:"resources"`
	Compensated bool       `json:"compensated"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  time.Time  `json:"finished_at"`
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// Open opens the journal at path and creates its schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or replaces run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	resources := run.Resources
	if resources == nil {
		resources = []Resource{}
	}
	raw, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO submission_runs (
		   run_id, event_name, event_id, state, failure_kind, message,
		   resources, compensated, started_at, finished_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.EventName, run.EventID, run.State, run.FailureKind, run.Message,
		string(raw), run.Compensated, toMillis(run.StartedAt), toMillis(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, event_name, event_id, state, failure_kind, message,
		        resources, compensated, started_at, finished_at
		   FROM submission_runs WHERE run_id = ?`, id)
	run, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

// Failed returns up to limit failed, uncompensated runs, newest first.
func (s *Store) Failed(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, event_name, event_id, state, failure_kind, message,
		        resources, compensated, started_at, finished_at
		   FROM submission_runs
		  WHERE state = 'Failed' AND compensated = 0
		  ORDER BY started_at DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Run, error) {
	var (
		run               Run
		raw               string
		started, finished int64
	)
	if err := sc.Scan(&run.ID, &run.EventName, &run.EventID, &run.State, &run.FailureKind, &run.Message,
		&raw, &run.Compensated, &started, &finished); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(raw), &run.Resources); err != nil {
		return Run{}, fmt.Errorf("decode resources of run %s: %w", run.ID, err)
	}
	run.StartedAt = fromMillis(started)
	run.FinishedAt = fromMillis(finished)
	return run, nil
}
