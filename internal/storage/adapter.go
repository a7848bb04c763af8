// Package storage defines the key/value contract the knowledge engine
// persists through, and the backends that satisfy it.
package storage

import (
	"context"
	"io"
)

// Adapter is the generic persistent key/value store the engine consumes.
// Records are addressed by (category, key); values are opaque bytes.
// Implementations: MemStore (testing), BadgerStore, SQLiteStore,
// PostgresStore and KuzuStore (cgo builds only).
//
// Adapters never interpret values and offer no multi-key transactions.
type Adapter interface {
	io.Closer

	// Put writes value under (category, key), replacing any previous value.
	Put(ctx context.Context, category, key string, value []byte) error

	// Get returns the value stored under (category, key), or nil if absent.
	Get(ctx context.Context, category, key string) ([]byte, error)

	// GetAll returns every entry in category, sorted by key.
	GetAll(ctx context.Context, category string) ([]Entry, error)
}

// Entry is one (key, value) pair returned by GetAll.
type Entry struct {
	Key   string
	Value []byte
}
