package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dayplan", "config.toml")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), DefaultDBName), cfg.DBPath)
	require.Equal(t, filepath.Join(filepath.Dir(path), DefaultSummariesDir), cfg.SummariesDir)
	require.Equal(t, "info", cfg.LogLevel)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadOrCreateReadsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("db_path = \"/data/tasks.db\"\nlog_level = \"debug\"\n"), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.Equal(t, "/data/tasks.db", cfg.DBPath)
	require.Equal(t, "debug", cfg.LogLevel)
	// Unset fields fall back relative to the config file.
	require.Equal(t, filepath.Join(dir, DefaultSummariesDir), cfg.SummariesDir)
}
