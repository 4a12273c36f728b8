package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ServerAddress)
	assert.Equal(t, 30*time.Second, cfg.RenderTimeout)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.UseFallback)
	assert.Equal(t, "https://mermaid.ink", cfg.MermaidInkURL)
	assert.Equal(t, "memory", cfg.RegistryDriver)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MERMAID_VIEW_ADDR", ":9999")
	t.Setenv("MERMAID_VIEW_ENV", "production")
	t.Setenv("MERMAID_VIEW_USE_FALLBACK", "false")
	t.Setenv("MERMAID_VIEW_TIMEOUT", "45s")
	t.Setenv("MERMAID_VIEW_RATE_BURST", "3")
	t.Setenv("MERMAID_VIEW_REGISTRY_DRIVER", "sqlite")
	t.Setenv("MERMAID_VIEW_REGISTRY_PATH", "/tmp/test.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ServerAddress)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.UseFallback)
	assert.Equal(t, 45*time.Second, cfg.RenderTimeout)
	assert.Equal(t, 3, cfg.RateLimitBurst)
	assert.Equal(t, "sqlite", cfg.RegistryDriver)
}

func TestLoadConfig_PlainIntegerTimeoutIsMilliseconds(t *testing.T) {
	t.Setenv("MERMAID_VIEW_TIMEOUT", "15000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.RenderTimeout)
}

func TestLoadConfig_YamlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_address: \":7070\"\nregistry_driver: sqlite\nregistry_path: diagrams.db\n"), 0o644))
	t.Setenv("MERMAID_VIEW_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ServerAddress)
	assert.Equal(t, "sqlite", cfg.RegistryDriver)
}

func TestLoadConfig_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_address: \":7070\"\n"), 0o644))
	t.Setenv("MERMAID_VIEW_CONFIG", path)
	t.Setenv("MERMAID_VIEW_ADDR", ":6060")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.ServerAddress)
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	t.Run("bad registry driver", func(t *testing.T) {
		t.Setenv("MERMAID_VIEW_REGISTRY_DRIVER", "postgres")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("sqlite without path", func(t *testing.T) {
		// Empty env vars fall back to defaults, so the empty path has to
		// come from the config file.
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"registry_driver: sqlite\nregistry_path: \"\"\n"), 0o644))
		t.Setenv("MERMAID_VIEW_CONFIG", path)
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("zero rate limit", func(t *testing.T) {
		t.Setenv("MERMAID_VIEW_RATE_BURST", "0")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
