package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_Contract(t *testing.T) {
	runAdapterContract(t, func(t *testing.T) Adapter {
		return NewMemStore()
	})
}

func TestMemStore_ValuesAreCopied(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	buf := []byte(`{"x":1}`)
	require.NoError(t, s.Put(ctx, "versions", "k", buf))
	buf[2] = 'y'

	got, err := s.Get(ctx, "versions", "k")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(got))

	got[2] = 'z'
	again, err := s.Get(ctx, "versions", "k")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(again))
	assert.Equal(t, 1, s.Len("versions"))
}

func TestOpen_Backends(t *testing.T) {
	mem, err := Open(Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemStore{}, mem)

	bdg, err := Open(Options{Backend: "badger"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdg.Close() })
	assert.IsType(t, &BadgerStore{}, bdg)

	_, err = Open(Options{Backend: "sqlite"})
	assert.Error(t, err, "sqlite requires a path")

	_, err = Open(Options{Backend: "postgres"})
	assert.Error(t, err, "postgres requires a dsn")

	_, err = Open(Options{Backend: "cassandra"})
	assert.ErrorContains(t, err, "unknown backend")
}
