package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IOTSYNC_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("IOTSYNC_TEST_VALUE") })

	loaded, err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)

	require.NoError(t, err)
	assert.Equal(t, envFile, loaded)
	assert.Equal(t, "from-file", os.Getenv("IOTSYNC_TEST_VALUE"))
}

func TestLoadDotEnv_NoneFound(t *testing.T) {
	loaded, err := LoadDotEnv(filepath.Join(t.TempDir(), "nope"))

	require.NoError(t, err)
	assert.Empty(t, loaded)
}
