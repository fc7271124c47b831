package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.NATS.Embedded)
	assert.GreaterOrEqual(t, cfg.Client.SearchDebounce, 250*time.Millisecond)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"missing token path", func(c *Config) { c.Session.TokenPath = "" }},
		{"debounce too small", func(c *Config) { c.Client.SearchDebounce = 100 * time.Millisecond }},
		{"cache enabled without path", func(c *Config) { c.Cache.Enabled = true; c.Cache.Path = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		API:  APIConfig{BaseURL: "https://boards.example.com/api"},
		NATS: NATSConfig{URL: "nats://example.com:4222"},
	})

	assert.Equal(t, "https://boards.example.com/api", base.API.BaseURL)
	assert.Equal(t, "nats://example.com:4222", base.NATS.URL)
	assert.False(t, base.NATS.Embedded, "an explicit NATS URL disables the embedded server")
	assert.NotZero(t, base.API.Timeout, "unset fields keep their defaults")
}

func TestMergeNil(t *testing.T) {
	cfg := DefaultConfig()
	want := *cfg
	cfg.Merge(nil)
	assert.Equal(t, want, *cfg)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boardsync.yaml")
	content := `
api:
  base_url: https://api.example.com
  timeout: 5s
session:
  token_path: /tmp/token
client:
  name: laptop
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "/tmp/token", cfg.Session.TokenPath)
	assert.Equal(t, "laptop", cfg.Client.Name)
	assert.True(t, cfg.Cache.Enabled, "defaults survive partial files")
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Client.Name = "desk"
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "desk", got.Client.Name)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOARDSYNC_API_URL", "https://env.example.com")
	t.Setenv("BOARDSYNC_NATS_URL", "nats://env:4222")
	t.Setenv("BOARDSYNC_API_TIMEOUT", "3s")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
	assert.False(t, cfg.NATS.Embedded)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
}
