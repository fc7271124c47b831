package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/boardsync/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("test-token\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = "http://localhost:8080/api"
	cfg.API.Timeout = 5 * time.Second
	cfg.NATS.Embedded = true
	cfg.Session.TokenPath = tokenPath
	cfg.Cache.Path = filepath.Join(dir, "snapshots.db")
	cfg.Client.Name = "test-client"
	require.NoError(t, cfg.Validate())
	return cfg
}

// The wired app must come up with every component in place: REST client,
// event channel, both controllers, and a running project subscription.
func TestNewAppWithConfigWiresStack(t *testing.T) {
	app, err := newAppWithConfig(testConfig(t), slog.Default())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Token)
	assert.NotNil(t, app.Client)
	assert.NotNil(t, app.Channel)
	assert.NotNil(t, app.Projects)
	assert.NotNil(t, app.Board)
	assert.NotNil(t, app.Metrics)
	assert.NotNil(t, app.snapshots, "cache enabled in config")

	assert.Error(t, app.Projects.Start(), "project controller already started by wiring")

	token, err := app.Token.Token()
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)
}

func TestNewAppWithConfigNoClientName(t *testing.T) {
	cfg := testConfig(t)
	cfg.Client.Name = ""

	app, err := newAppWithConfig(cfg, slog.Default())
	require.NoError(t, err)
	app.Close()
}

func TestAppCloseIsIdempotentOnPartialWiring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = false

	app, err := newAppWithConfig(cfg, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, app.snapshots)
	app.Close()
}
