package storage

import (
	"fmt"
	"log/slog"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendKuzu     = "kuzu"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend string
	// Path is the on-disk location for badger, sqlite and kuzu. An empty
	// path gives an in-memory badger or kuzu database.
	Path string
	// DSN is the connection string for postgres.
	DSN    string
	Logger *slog.Logger
}

// Open returns the Adapter named by opts.Backend. An empty backend means
// memory.
func Open(opts Options) (Adapter, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemStore(), nil
	case BackendBadger:
		return OpenBadger(BadgerConfig{
			Path:       opts.Path,
			InMemory:   opts.Path == "",
			SyncWrites: opts.Path != "",
			Logger:     opts.Logger,
		})
	case BackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite: path is required")
		}
		return OpenSQLite(opts.Path)
	case BackendPostgres:
		return OpenPostgres(opts.DSN)
	case BackendKuzu:
		return openKuzu(opts.Path)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
