// Package transcript records model exchanges in a local SQLite database.
package transcript

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is an append-only log of runs and their exchanges.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the transcript database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			command     TEXT NOT NULL,
			provider    TEXT NOT NULL,
			model       TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS exchanges (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			stage       TEXT NOT NULL,
			system      TEXT,
			messages    TEXT,
			response    TEXT,
			error       TEXT,
			latency_ms  INTEGER NOT NULL,
			input_tok   INTEGER NOT NULL DEFAULT 0,
			output_tok  INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_exchanges_run ON exchanges(run_id);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun creates a run with a fresh id.
func (s *Store) StartRun(command, provider, model string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &Run{
		ID:        uuid.NewString(),
		Command:   command,
		Provider:  provider,
		Model:     model,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, command, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Command, run.Provider, run.Model, run.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	return run, nil
}

// RecordExchange appends ex and sets its ID and CreatedAt.
func (s *Store) RecordExchange(ex *Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex.CreatedAt = time.Now()
	result, err := s.db.Exec(`
		INSERT INTO exchanges (run_id, stage, system, messages, response, error, latency_ms, input_tok, output_tok, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ex.RunID, ex.Stage, ex.System, toJSON(ex.Messages), ex.Response, ex.Error,
		ex.LatencyMS, ex.InputTok, ex.OutputTok, ex.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record exchange: %w", err)
	}
	ex.ID, err = result.LastInsertId()
	return err
}

// ListExchanges returns the exchanges of a run in the order they happened.
func (s *Store) ListExchanges(runID string) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, run_id, stage, system, messages, response, error, latency_ms, input_tok, output_tok, created_at
		FROM exchanges
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var system, messages, response, errText sql.NullString
		var createdAt string

		err := rows.Scan(&ex.ID, &ex.RunID, &ex.Stage, &system, &messages, &response, &errText,
			&ex.LatencyMS, &ex.InputTok, &ex.OutputTok, &createdAt)
		if err != nil {
			return nil, err
		}
		ex.System = system.String
		ex.Response = response.String
		ex.Error = errText.String
		if messages.Valid {
			_ = fromJSON(messages.String, &ex.Messages)
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			ex.CreatedAt = t
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, command, provider, model, created_at
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Command, &r.Provider, &r.Model, &createdAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
