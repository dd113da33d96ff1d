package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

// CreateTempBoltDB creates a temporary BoltDB database for testing purposes.
// It returns the database and its file path; the database is closed when the
// test ends.
func CreateTempBoltDB(t *testing.T) (*bolt.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger.bolt")

	db, err := bolt.Open(dbPath, 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, dbPath
}
