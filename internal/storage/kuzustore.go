//go:build cgo

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Adapter on a KuzuDB node table. Every record is a
// Record node whose primary key joins category and key.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
// KuzuDB admits a single writer, so all statements share one connection
// guarded by mu.
type KuzuStore struct {
	mu   sync.Mutex
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Adapter.
var _ Adapter = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzuDatabase(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzuDatabase(dbPath)
}

func openKuzuDatabase(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	s := &KuzuStore{db: db, conn: conn}
	if err := s.initSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// openKuzu is the cgo entry point used by Open.
func openKuzu(path string) (Adapter, error) {
	if path == "" {
		return NewKuzuStore()
	}
	return NewKuzuFileStore(path)
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed when the store opens.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Record(
		id STRING,
		category STRING,
		record_key STRING,
		payload STRING,
		PRIMARY KEY(id)
	)`,
}

func (s *KuzuStore) initSchema() error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Adapter ----------

// Put merges the Record node, overwriting the payload of an existing one.
func (s *KuzuStore) Put(_ context.Context, category, key string, value []byte) error {
	return s.exec(
		`MERGE (r:Record {id: $id})
		 ON CREATE SET r.category = $category, r.record_key = $key, r.payload = $payload
		 ON MATCH SET r.payload = $payload`,
		map[string]any{
			"id":       recordID(category, key),
			"category": category,
			"key":      key,
			"payload":  string(value),
		},
	)
}

// Get retrieves a single record payload, or returns nil if not found.
func (s *KuzuStore) Get(_ context.Context, category, key string) ([]byte, error) {
	rows, err := s.query(
		"MATCH (r:Record {id: $id}) RETURN r.payload",
		map[string]any{"id": recordID(category, key)},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return []byte(toString(rows[0][0])), nil
}

// GetAll returns every record in category ordered by key.
func (s *KuzuStore) GetAll(_ context.Context, category string) ([]Entry, error) {
	rows, err := s.query(
		`MATCH (r:Record) WHERE r.category = $category
		 RETURN r.record_key, r.payload ORDER BY r.record_key`,
		map[string]any{"category": category},
	)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{Key: toString(r[0]), Value: []byte(toString(r[1]))})
	}
	return out, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return nil, fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// recordID produces the primary key for a record. Categories never contain
// '|', so the join is unambiguous.
func recordID(category, key string) string {
	return category + "|" + key
}

// KuzuDB returns typed Go values; payloads are always STRING columns.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
