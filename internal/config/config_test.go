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

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "models/model.json", cfg.Model.Path)
	assert.Equal(t, "models/preprocessor.json", cfg.Model.PreprocessorPath)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 60, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 5, cfg.TopK)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
model:
  path: /opt/models/model.json
history:
  enabled: false
rate_limit:
  requests_per_minute: 120
  burst_multiplier: 3
top_k: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/opt/models/model.json", cfg.Model.Path)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 3, cfg.RateLimit.BurstMultiplier)
	assert.Equal(t, 3, cfg.TopK)
	// Untouched keys keep their defaults.
	assert.Equal(t, "models/preprocessor.json", cfg.Model.PreprocessorPath)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a: map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode config file")
}

func TestLoadRejectsNonPositiveTopK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k: 0"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k must be positive")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("MODEL_PATH", "/tmp/m.json")
	t.Setenv("DATA_DIR", "/var/data")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "/tmp/m.json", cfg.Model.Path)
	assert.Equal(t, "/var/data", cfg.History.DataDir)
}
