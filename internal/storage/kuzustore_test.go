//go:build cgo

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestKuzuStore creates a fresh in-memory KuzuStore and closes it when
// the test finishes.
func newTestKuzuStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestKuzuStore_Contract(t *testing.T) {
	runAdapterContract(t, func(t *testing.T) Adapter {
		return newTestKuzuStore(t)
	})
}

func TestKuzuStore_SchemaIsIdempotent(t *testing.T) {
	s := newTestKuzuStore(t)
	require.NoError(t, s.initSchema())
}

func TestKuzuStore_FileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph", "lineage.kuzu")
	ctx := context.Background()

	s, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "version_index", "doc/1", []byte(`{"latestVersionId":"v1"}`)))
	require.NoError(t, s.Close())

	reopened, err := NewKuzuFileStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, "version_index", "doc/1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"latestVersionId":"v1"}`, string(got))
}
