package testutil

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// CreateTempSQLiteDB opens a file-backed SQLite database in a temp directory.
// A file is used rather than :memory: so every pooled connection sees the
// same schema.
func CreateTempSQLiteDB(t *testing.T) (*sqlx.DB, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger.db")

	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, dsn
}
