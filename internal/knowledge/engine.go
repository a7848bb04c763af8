// Package knowledge implements the temporal knowledge versioning and
// dependency-impact engine: immutable artifact versions with point-in-time
// lookup, a typed dependency graph, version comparison, multi-hop impact
// analysis and lifecycle tracking.
//
// All durable state lives behind a storage.Adapter. An Engine holds no
// per-artifact state of its own and is safe for concurrent use, but index
// updates are read-modify-write: concurrent writers to the same artifact
// or adjacency list race and the last write wins. Callers that need strict
// consistency serialize writes per artifact.
package knowledge

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/lineage/internal/metrics"
	"github.com/dusk-indust/lineage/internal/storage"
)

// Engine is the entry point for every knowledge operation.
type Engine struct {
	store   storage.Adapter
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how version and state-change ids are minted.
// Generated ids must sort in creation order.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New returns an Engine persisting through store, which must not be nil.
func New(store storage.Adapter, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  newTimeOrderedID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newTimeOrderedID returns a UUIDv7: unique, and ordered by creation time.
func newTimeOrderedID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// observe is deferred by every public operation with a pointer to its
// named error result.
func (e *Engine) observe(op string, start time.Time, errp *error) {
	err := *errp
	e.metrics.Observe(op, start, err)
	if err != nil {
		e.logger.Debug("knowledge operation failed", "op", op, "err", err)
	}
}
