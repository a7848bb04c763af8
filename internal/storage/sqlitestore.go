package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Compile-time assertion: *SQLiteStore satisfies Adapter.
var _ Adapter = (*SQLiteStore)(nil)

// sqliteSchema is the single table backing SQLiteStore.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
    category   TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      BLOB NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
    PRIMARY KEY (category, key)
) WITHOUT ROWID;
`

// SQLiteStore implements Adapter on an embedded SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put upserts the record.
func (s *SQLiteStore) Put(ctx context.Context, category, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (category, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (category, key) DO UPDATE
		 SET value = excluded.value, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		category, key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: put %s/%s: %w", category, key, err)
	}
	return nil
}

// Get returns the stored value, or nil if the row does not exist.
func (s *SQLiteStore) Get(ctx context.Context, category, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE category = ? AND key = ?`,
		category, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s/%s: %w", category, key, err)
	}
	return value, nil
}

// GetAll returns every row in category ordered by key.
func (s *SQLiteStore) GetAll(ctx context.Context, category string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM records WHERE category = ? ORDER BY key`,
		category,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan %s: %w", category, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", category, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
