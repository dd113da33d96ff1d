package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "careercoach version dev\n", out.String())
}

func TestLoadConfigFlags(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := loadConfig("", ":9999", true)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "", false)
	assert.Error(t, err)
}

func TestRunServerShutsDown(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COMPLETION_PROVIDER", "mock")
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("PROFILE_PROVIDER", "mock")
	t.Setenv("CHROMA_DIR", filepath.Join(dir, "chroma"))
	t.Setenv("LTM_TYPE", "chromemgo")
	t.Setenv("LTM_LEDGER", "boltdb")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg, err := loadConfig("", addr, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, cfg) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
