package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 30, cfg.Timeout)
	assert.True(t, cfg.FollowRedirects)
	assert.Equal(t, 500, cfg.HistoryLimit)
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "data_dir: /tmp/rd\ntimeout: 5\nhistory_limit: 10\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/rd", cfg.DataDir)
		assert.Equal(t, 5, cfg.Timeout)
		assert.Equal(t, 10, cfg.HistoryLimit)
		assert.Equal(t, filepath.Join("/tmp/rd", "restdeck.db"), cfg.DatabasePath())
	})

	t.Run("malformed file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("timeout: [oops"), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})
}
