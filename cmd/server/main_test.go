package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearServerEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PG_DSN", "REDIS_ADDR", "KAFKA_BROKERS", "STRIPE_API_KEY", "TZ", "MIGRATE"} {
		t.Setenv(k, "")
	}
}

func TestRunReturnsConfigError(t *testing.T) {
	clearServerEnv(t)
	t.Setenv("HTTP_READ_TIMEOUT", "soon")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}

func TestRunReturnsListenError(t *testing.T) {
	clearServerEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	t.Setenv("HTTP_ADDR", ln.Addr().String())

	err = run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
}

func TestRunMigrationMissingFile(t *testing.T) {
	err := runMigration(context.Background(), nil, filepath.Join(t.TempDir(), "missing.sql"))
	assert.Error(t, err)
}
