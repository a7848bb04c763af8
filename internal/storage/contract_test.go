package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runAdapterContract exercises the behaviour every Adapter must share.
func runAdapterContract(t *testing.T, open func(t *testing.T) Adapter) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		got, err := s.Get(context.Background(), "versions", "doc/1/v1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "versions", "doc/1/v1", []byte(`{"a":1}`)))

		got, err := s.Get(ctx, "versions", "doc/1/v1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got))
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "version_index", "doc/1", []byte(`{"n":1}`)))
		require.NoError(t, s.Put(ctx, "version_index", "doc/1", []byte(`{"n":2}`)))

		got, err := s.Get(ctx, "version_index", "doc/1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":2}`, string(got))

		all, err := s.GetAll(ctx, "version_index")
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("CategoriesAreIsolated", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "versions", "k", []byte(`"v"`)))

		got, err := s.Get(ctx, "dependencies", "k")
		require.NoError(t, err)
		assert.Nil(t, got)

		all, err := s.GetAll(ctx, "dependencies")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("GetAllSortedByKey", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for _, k := range []string{"c/2", "a/1", "b/9", "a/0"} {
			require.NoError(t, s.Put(ctx, "state_changes", k, []byte(fmt.Sprintf(`%q`, k))))
		}
		require.NoError(t, s.Put(ctx, "versions", "a/00", []byte(`"other"`)))

		all, err := s.GetAll(ctx, "state_changes")
		require.NoError(t, err)
		keys := make([]string, len(all))
		for i, e := range all {
			keys[i] = e.Key
		}
		assert.Equal(t, []string{"a/0", "a/1", "b/9", "c/2"}, keys)
		assert.JSONEq(t, `"b/9"`, string(all[2].Value))
	})

	t.Run("ConcurrentPuts", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Put(ctx, "dependencies", fmt.Sprintf("dep-%02d", i), []byte(`{}`)))
			}(i)
		}
		wg.Wait()

		all, err := s.GetAll(ctx, "dependencies")
		require.NoError(t, err)
		assert.Len(t, all, 16)
	})
}
