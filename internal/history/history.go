// Package history records annotation runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/glyphmark/core/errors"
	"github.com/FocuswithJustin/glyphmark/core/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	markers    INTEGER NOT NULL,
	zero_width INTEGER NOT NULL,
	digest     TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// Run is one recorded annotation.
type Run struct {
	ID        string `json:"id" yaml:"id"`
	Source    string `json:"source" yaml:"source"`
	Markers   int    `json:"markers" yaml:"markers"`
	ZeroWidth int    `json:"zero_width" yaml:"zero_width"`
	Digest    string `json:"digest" yaml:"digest"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

// Store is a run history backed by one database file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.NewValidation("history.path", "path is required")
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("create schema", path, err)
	}
	return &Store{db: db}, nil
}

// Record stores run, filling in ID and CreatedAt when empty, and returns the
// stored run.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, markers, zero_width, digest, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Markers, run.ZeroWidth, run.Digest, run.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, source, markers, zero_width, digest, created_at FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Markers, &r.ZeroWidth, &r.Digest, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, markers, zero_width, digest, created_at FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Source, &r.Markers, &r.ZeroWidth, &r.Digest, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, errors.NewNotFound("run", id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("reading run: %w", err)
	}
	return r, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
