package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"MARKSYNC_SERVER_URL",
		"MARKSYNC_HTTP_TIMEOUT",
		"MARKSYNC_STATE_PATH",
		"MARKSYNC_FEED_URL",
		"MARKSYNC_IMPORT_DIR",
		"ENABLE_MCP",
		"MCP_LISTEN_ADDR",
		"ENVIRONMENT",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3096/api", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, filepath.Join(home, ".marksync", "state.db"), cfg.StatePath)
	assert.Empty(t, cfg.FeedURL)
	assert.Empty(t, cfg.ImportDir)
	assert.False(t, cfg.EnableMCP)
	assert.Equal(t, ":8091", cfg.MCPListenAddr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoad_AllSet(t *testing.T) {
	clearConfigEnv(t)
	statePath := filepath.Join(t.TempDir(), "custom.db")
	importDir := t.TempDir()

	t.Setenv("MARKSYNC_SERVER_URL", "https://bookmarks.example.com/api")
	t.Setenv("MARKSYNC_HTTP_TIMEOUT", "5s")
	t.Setenv("MARKSYNC_STATE_PATH", statePath)
	t.Setenv("MARKSYNC_FEED_URL", "wss://bookmarks.example.com/feed")
	t.Setenv("MARKSYNC_IMPORT_DIR", importDir)
	t.Setenv("ENABLE_MCP", "true")
	t.Setenv("MCP_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://bookmarks.example.com/api", cfg.ServerURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, statePath, cfg.StatePath)
	assert.Equal(t, "wss://bookmarks.example.com/feed", cfg.FeedURL)
	assert.Equal(t, importDir, cfg.ImportDir)
	assert.True(t, cfg.EnableMCP)
	assert.Equal(t, "127.0.0.1:9000", cfg.MCPListenAddr)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_ResolvesRelativeImportDir(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MARKSYNC_IMPORT_DIR", "drop")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.ImportDir))
	assert.Equal(t, "drop", filepath.Base(cfg.ImportDir))
}

func TestLoad_BadTimeout(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MARKSYNC_HTTP_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoad_InvalidServerURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MARKSYNC_SERVER_URL", "ftp://bookmarks.example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MARKSYNC_SERVER_URL")
}

// --- validate ---

func validConfig() *Config {
	return &Config{
		ServerURL:     "http://localhost:3096/api",
		HTTPTimeout:   30 * time.Second,
		MCPListenAddr: ":8091",
		Environment:   "development",
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing server url", func(c *Config) { c.ServerURL = "" }, "MARKSYNC_SERVER_URL is required"},
		{"relative server url", func(c *Config) { c.ServerURL = "/api" }, "MARKSYNC_SERVER_URL"},
		{"websocket server url", func(c *Config) { c.ServerURL = "ws://localhost/api" }, "http(s)"},
		{"http feed url", func(c *Config) { c.FeedURL = "http://localhost/feed" }, "ws(s)"},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, "MARKSYNC_HTTP_TIMEOUT"},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }, "MARKSYNC_HTTP_TIMEOUT"},
		{"mcp without addr", func(c *Config) { c.EnableMCP = true; c.MCPListenAddr = "" }, "MCP_LISTEN_ADDR"},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_FeedSchemes(t *testing.T) {
	for _, u := range []string{"ws://localhost:3096/feed", "wss://bookmarks.example.com/feed"} {
		cfg := validConfig()
		cfg.FeedURL = u
		assert.NoError(t, cfg.validate(), u)
	}
}

func TestIsProduction(t *testing.T) {
	cfg := &Config{Environment: "production"}
	assert.True(t, cfg.IsProduction())

	cfg.Environment = "development"
	assert.False(t, cfg.IsProduction())
}
