package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Compile-time assertion: *PostgresStore satisfies Adapter.
var _ Adapter = (*PostgresStore)(nil)

// PostgresStore implements Adapter backed by a single Postgres table.
// Values are the engine's JSON documents and are stored as jsonb.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to Postgres using dsn and ensures the schema exists.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	store, err := NewPostgresStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB reuses an existing *sql.DB.
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres: db is required")
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS lineage_records (
  category   text NOT NULL,
  key        text NOT NULL,
  value      jsonb NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (category, key)
);
`
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put upserts the record.
func (s *PostgresStore) Put(ctx context.Context, category, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lineage_records (category, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		category, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("postgres: put %s/%s: %w", category, key, err)
	}
	return nil
}

// Get returns the stored value, or nil if the row does not exist.
func (s *PostgresStore) Get(ctx context.Context, category, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM lineage_records WHERE category = $1 AND key = $2`,
		category, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s/%s: %w", category, key, err)
	}
	return value, nil
}

// GetAll returns every row in category ordered by key.
func (s *PostgresStore) GetAll(ctx context.Context, category string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM lineage_records WHERE category = $1 ORDER BY key COLLATE "C"`,
		category,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan %s: %w", category, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", category, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
