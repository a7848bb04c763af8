package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPostgresStore_Contract needs a live database; point
// LINEAGE_TEST_POSTGRES_DSN at a scratch schema to run it.
func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("LINEAGE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LINEAGE_TEST_POSTGRES_DSN not set")
	}
	runAdapterContract(t, func(t *testing.T) Adapter {
		s, err := OpenPostgres(dsn)
		require.NoError(t, err)
		_, err = s.db.ExecContext(context.Background(), `TRUNCATE lineage_records`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
