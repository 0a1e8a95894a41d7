// Package store keeps a SQLite index of tasks so past runs can be listed and
// replayed without scanning the filesystem. The task state itself lives in
// each task's work directory; the index holds only identity and location.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const dbName = "tasks.db"

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	instruction TEXT NOT NULL,
	path        TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
`

// TaskRecord is one row of the task index.
type TaskRecord struct {
	ID          string
	Instruction string
	Path        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the task index.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the index under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open task index: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", filepath.Join(dir, dbName))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open task index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init task index: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert records a task, updating instruction/path/updated_at on conflict.
func (s *Store) Upsert(rec TaskRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, instruction, path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			instruction = excluded.instruction,
			path        = excluded.path,
			updated_at  = excluded.updated_at`,
		rec.ID, rec.Instruction, rec.Path, rec.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("record task %s: %w", rec.ID, err)
	}
	return nil
}

// List returns tasks newest-first.
func (s *Store) List() ([]TaskRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, instruction, path, created_at, updated_at
		FROM tasks ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		if err := rows.Scan(&rec.ID, &rec.Instruction, &rec.Path, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns one task by id.
func (s *Store) Get(id string) (*TaskRecord, error) {
	var rec TaskRecord
	err := s.db.QueryRow(`
		SELECT id, instruction, path, created_at, updated_at
		FROM tasks WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Instruction, &rec.Path, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &rec, nil
}

// Delete removes a task from the index. The work directory is untouched.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}
