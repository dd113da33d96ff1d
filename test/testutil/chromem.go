package testutil

import (
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/require"
)

// CreateTempChromemGoClient creates a new, in-memory chromem-go instance
// suitable for isolated testing. The cleanup function is a no-op; the
// instance is garbage collected after the test.
func CreateTempChromemGoClient(t *testing.T) (*chromem.DB, func()) {
	t.Helper()
	return chromem.NewDB(), func() {}
}

// CreateTempChromemGoClientOnDisk creates a persistent chromem-go instance in
// a test-scoped temp directory. It returns the client and its directory so a
// second instance can be opened over the same data.
func CreateTempChromemGoClientOnDisk(t *testing.T) (*chromem.DB, string) {
	t.Helper()
	dir := t.TempDir()
	client, err := chromem.NewPersistentDB(dir, false)
	require.NoError(t, err)
	return client, dir
}
