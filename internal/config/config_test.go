package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 30*time.Second, cfg.PublicShelf.CacheTTL)
	assert.Equal(t, 256, cfg.PublicShelf.MaxCachedOwners)
	assert.Equal(t, 50, cfg.History.DefaultLimit)
	assert.Equal(t, 5, cfg.Catalog.SearchLimit)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sonar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
public_shelf:
  cache_ttl: 2m
history:
  default_limit: 25
`), 0644))

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))

	cfg := cm.GetConfig()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.PublicShelf.CacheTTL)
	assert.Equal(t, 25, cfg.History.DefaultLimit)
	// Untouched sections keep defaults.
	assert.Equal(t, "sqlite", cfg.Database.Type)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig("/nonexistent/sonar.yaml"))
	assert.Equal(t, 8080, cm.GetConfig().Server.Port)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sonar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("SONAR_PORT", "7070")
	t.Setenv("SONAR_LOG_LEVEL", "debug")
	t.Setenv("SONAR_CATALOG_ENABLED", "false")

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))

	cfg := cm.GetConfig()
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Catalog.Enabled)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sonar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0644))

	cm := NewConfigManager()
	err := cm.LoadConfig(path)
	assert.ErrorContains(t, err, "server.port")

	// The previous configuration survives a failed load.
	assert.Equal(t, 8080, cm.GetConfig().Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"negative history limit", func(c *Config) { c.History.DefaultLimit = 0 }, "default_limit"},
		{"bad search limit", func(c *Config) { c.Catalog.SearchLimit = 100 }, "search_limit"},
		{"bad database type", func(c *Config) { c.Database.Type = "oracle" }, "database.type"},
		{"negative cache ttl", func(c *Config) { c.PublicShelf.CacheTTL = -time.Second }, "cache_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestReloadNotifiesWatchers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sonar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0644))

	cm := NewConfigManager()
	var oldPort, newPort int
	cm.AddWatcher(func(oldConfig, newConfig *Config) {
		oldPort = oldConfig.Server.Port
		newPort = newConfig.Server.Port
	})

	require.NoError(t, cm.LoadConfig(path))
	assert.Equal(t, 8080, oldPort)
	assert.Equal(t, 9090, newPort)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 6060\n"), 0644))
	require.NoError(t, cm.Reload())
	assert.Equal(t, 9090, oldPort)
	assert.Equal(t, 6060, newPort)
}
