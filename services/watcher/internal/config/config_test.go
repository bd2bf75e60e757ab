package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"WATCHER_CONFIG_FILE", "GBFS_BASE_URL", "GBFS_LANGUAGE", "DATA_DIR", "OUTPUT_DIR",
	"WATCHER_REQUEST_TIMEOUT", "ARCHIVE_RAW_FEEDS", "DATABASE_URL", "OPENAI_API_KEY",
	"OPENAI_MODEL", "OPENAI_BASE_URL", "MAP_NAME", "MAP_CLASSES", "DRY_RUN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://gbfs.velobixi.com/gbfs", cfg.GBFSBaseURL)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.ArchiveRaw)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.False(t, cfg.GenAIEnabled())
	assert.False(t, cfg.StorageEnabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GBFS_BASE_URL", "https://gbfs.example.org/gbfs/")
	t.Setenv("GBFS_LANGUAGE", "fr")
	t.Setenv("WATCHER_REQUEST_TIMEOUT", "3s")
	t.Setenv("ARCHIVE_RAW_FEEDS", "false")
	t.Setenv("DATABASE_URL", "postgres://localhost/bixi")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MAP_CLASSES", "7")
	t.Setenv("DRY_RUN", "TRUE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://gbfs.example.org/gbfs", cfg.GBFSBaseURL)
	assert.Equal(t, "fr", cfg.Language)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.ArchiveRaw)
	assert.True(t, cfg.StorageEnabled())
	assert.True(t, cfg.GenAIEnabled())
	assert.Equal(t, 7, cfg.MapClasses)
	assert.True(t, cfg.DryRun)
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "watcher.yml")
	content := []byte("gbfs_base_url: https://gbfs.citibikenyc.com/gbfs\nrequest_timeout: 4s\nmap_name: Citi_Map\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("WATCHER_CONFIG_FILE", path)
	t.Setenv("MAP_NAME", "Env_Map")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://gbfs.citibikenyc.com/gbfs", cfg.GBFSBaseURL)
	assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "Env_Map", cfg.MapName, "environment wins over file")
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad timeout", key: "WATCHER_REQUEST_TIMEOUT", val: "soon"},
		{name: "negative timeout", key: "WATCHER_REQUEST_TIMEOUT", val: "-1s"},
		{name: "bad base url", key: "GBFS_BASE_URL", val: "not a url"},
		{name: "too many classes", key: "MAP_CLASSES", val: "20"},
		{name: "classes not a number", key: "MAP_CLASSES", val: "five"},
		{name: "bad archive flag", key: "ARCHIVE_RAW_FEEDS", val: "maybe"},
		{name: "map name with slash", key: "MAP_NAME", val: "../escape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("WATCHER_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "watcher.yml")
	require.NoError(t, os.WriteFile(path, []byte("invalid: yaml: content: [[["), 0o644))
	t.Setenv("WATCHER_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}
