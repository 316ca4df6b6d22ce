package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.True(t, cfg.Storage.Ephemeral)
	assert.False(t, cfg.TestMode)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9090"
test_mode: true
storage:
  driver: memory
  ephemeral: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.True(t, cfg.TestMode)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.False(t, cfg.Storage.Ephemeral)
	// Unset fields keep their defaults.
	assert.Equal(t, "data/sample_plfs.csv", cfg.DataFile)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9090\"\n"), 0o644))

	t.Setenv("SURVEYSCOPE_LISTEN_ADDR", ":7070")
	t.Setenv("SURVEYSCOPE_STORAGE_DRIVER", "memory")
	t.Setenv("SURVEYSCOPE_TEST_MODE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.True(t, cfg.TestMode)
}

func TestLoadMissingNamedFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateStorageDriver(t *testing.T) {
	t.Setenv("SURVEYSCOPE_STORAGE_DRIVER", "oracle")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidateS3RequiresBucket(t *testing.T) {
	t.Setenv("SURVEYSCOPE_BLOB_DRIVER", "s3")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("SURVEYSCOPE_BLOB_S3_BUCKET", "exports")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "exports", cfg.Blob.S3Bucket)
}
