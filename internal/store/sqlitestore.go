package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Mavwarf/acoustic/internal/capture"
	"github.com/Mavwarf/acoustic/internal/paths"
)

// tsLayout is fixed width so timestamps sort lexically in SQL.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at path and creates
// tables and indexes.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DirPerm); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection; one connection keeps foreign_keys in force.
	db.SetMaxOpenConns(1)

	// Set PRAGMAs before any DDL.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	ddl := `
CREATE TABLE IF NOT EXISTS captures (
    id          TEXT    PRIMARY KEY,
    captured_at TEXT    NOT NULL,
    port        TEXT    NOT NULL DEFAULT '',
    count       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
    capture_id TEXT    NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    value      INTEGER NOT NULL,
    PRIMARY KEY (capture_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_captures_time ON captures(captured_at DESC);
`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores the frame and its samples in one transaction and returns
// the frame ID, or a fresh one if the frame has none.
func (s *SQLiteStore) Save(f *capture.Frame) (string, error) {
	id := f.ID.String()
	if f.ID == uuid.Nil {
		id = uuid.NewString()
	}
	at := f.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO captures (id, captured_at, port, count) VALUES (?, ?, ?, ?)`,
		id, at.UTC().Format(tsLayout), f.Port, len(f.Samples),
	); err != nil {
		return "", fmt.Errorf("store: insert capture: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO samples (capture_id, seq, value) VALUES (?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, v := range f.Samples {
		if _, err := stmt.Exec(id, i, v); err != nil {
			return "", fmt.Errorf("store: insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// List returns stored captures, newest first.
func (s *SQLiteStore) List(limit int) ([]Record, error) {
	query := `SELECT id, captured_at, port, count FROM captures ORDER BY captured_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.Name, &ts, &r.Port, &r.Count); err != nil {
			return nil, err
		}
		t, err := time.Parse(tsLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("store: capture %s: bad timestamp %q: %w", r.Name, ts, err)
		}
		r.CapturedAt = t.Local()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Samples returns the samples of the capture with the given ID, in
// arrival order.
func (s *SQLiteStore) Samples(id string) ([]int64, error) {
	var count int
	err := s.db.QueryRow(`SELECT count FROM captures WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT value FROM samples WHERE capture_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0, count)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Clean removes captures older than days along with their samples.
func (s *SQLiteStore) Clean(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UTC().Format(tsLayout)
	res, err := s.db.Exec(`DELETE FROM captures WHERE captured_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Path() string {
	return s.path
}
