package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/id"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.MaxBackoff)
	assert.True(t, cfg.Retry.PreferIncrement)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Second, cfg.Database.LockTimeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	branch := id.New()
	path := writeConfig(t, `
storage:
  driver: postgres
database:
  dsn: postgres://docnum@db:5432/docnum
  lock_timeout: 500ms
retry:
  max_attempts: 8
  max_backoff: 1s
branches:
  `+branch.String()+`: MUM
`)
	t.Setenv("DOCNUM_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("DOCNUM_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://docnum@db:5432/docnum", cfg.Database.DSN)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.LockTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts, "env wins over file")
	assert.Equal(t, time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, "debug", cfg.Log.Level)

	branches, err := cfg.BranchDirectory()
	require.NoError(t, err)
	assert.Equal(t, "MUM", branches[branch])
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown driver", body: "storage:\n  driver: sqlite\n"},
		{name: "postgres without dsn", body: "storage:\n  driver: postgres\n"},
		{name: "zero attempts", body: "retry:\n  max_attempts: 0\n"},
		{name: "bad branch id", body: "branches:\n  not-a-uuid: MUM\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
