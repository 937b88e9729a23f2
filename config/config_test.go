package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"rekit/inject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second, cfg.Snapshot.PollInterval)
	assert.Equal(t, 1<<20, cfg.Snapshot.InitialBufferSize)
	assert.Equal(t, 64*1024, cfg.Scan.ChunkSize)
	assert.Equal(t, inject.MethodAPC, cfg.InjectMethod())
	assert.True(t, cfg.Inject.Preflight)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
snapshot:
  poll_interval: 250ms
scan:
  alignment: 4
inject:
  method: remote-thread
  preflight: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Snapshot.PollInterval)
	assert.Equal(t, 1<<30, cfg.Snapshot.MaxBufferSize)
	assert.Equal(t, uint(4), cfg.Scan.Alignment)
	assert.Equal(t, 64*1024, cfg.Scan.ChunkSize)
	assert.Equal(t, inject.MethodRemoteThread, cfg.InjectMethod())
	assert.False(t, cfg.Inject.Preflight)
}

func TestLoadReportsEveryProblem(t *testing.T) {
	path := writeConfig(t, `
snapshot:
  poll_interval: 0s
  max_buffer_size: 16
scan:
  chunk_size: -1
inject:
  method: hollowing
`)

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inject.method")
	assert.Len(t, multierr.Errors(cfg.Validate()), 4)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "snapshot: [1, 2"))
	assert.Error(t, err)
}
