package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/lineage/internal/storage"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock hands out a fixed instant until moved.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() *storage.MemStore { return storage.NewMemStore() }

func newTestEngine(t *testing.T) (*Engine, *fakeClock, *storage.MemStore) {
	t.Helper()
	store := newTestStore()
	clock := newFakeClock()
	return New(store, WithClock(clock.Now)), clock, store
}

func ref(typ, id string) ArtifactRef { return ArtifactRef{Type: typ, ID: id} }

// createAt creates a version of r with the clock set to at.
func createAt(t *testing.T, e *Engine, clock *fakeClock, r ArtifactRef, at time.Time, content any, opts CreateOptions) *Version {
	t.Helper()
	clock.Set(at)
	v, err := e.CreateVersion(context.Background(), r, content, opts)
	require.NoError(t, err)
	return v
}

var errInjected = errors.New("injected failure")

// flakyStore fails writes to one category on demand.
type flakyStore struct {
	*storage.MemStore
	failPut string
	failGet string
}

func (s *flakyStore) Put(ctx context.Context, category, key string, value []byte) error {
	if category == s.failPut {
		return errInjected
	}
	return s.MemStore.Put(ctx, category, key, value)
}

func (s *flakyStore) Get(ctx context.Context, category, key string) ([]byte, error) {
	if category == s.failGet {
		return nil, errInjected
	}
	return s.MemStore.Get(ctx, category, key)
}
