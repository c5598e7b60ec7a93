package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/alexjbarnes/marksync/internal/logging"
	"github.com/alexjbarnes/marksync/internal/state"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for marksync.
type Config struct {
	// Base URL of the bookmark server API.
	ServerURL string `env:"MARKSYNC_SERVER_URL" envDefault:"http://localhost:3096/api"`

	// Per-request timeout for calls to the bookmark server.
	HTTPTimeout time.Duration `env:"MARKSYNC_HTTP_TIMEOUT" envDefault:"30s"`

	// Location of the local state database. Defaults to
	// ~/.marksync/state.db.
	StatePath string `env:"MARKSYNC_STATE_PATH"`

	// Websocket change feed. Empty disables push updates.
	FeedURL string `env:"MARKSYNC_FEED_URL"`

	// Directory watched for bookmark files to import. Empty disables the
	// watcher.
	ImportDir string `env:"MARKSYNC_IMPORT_DIR"`

	// MCP server settings
	EnableMCP     bool   `env:"ENABLE_MCP" envDefault:"false"`
	MCPListenAddr string `env:"MCP_LISTEN_ADDR" envDefault:":8091"`

	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing settings to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.StatePath == "" {
		p, err := state.DefaultPath()
		if err != nil {
			return nil, err
		}

		cfg.StatePath = p
	}

	// The watcher logs and compares absolute paths.
	if cfg.ImportDir != "" {
		absDir, err := filepath.Abs(cfg.ImportDir)
		if err != nil {
			return nil, fmt.Errorf("resolving import dir to absolute path: %w", err)
		}

		cfg.ImportDir = absDir
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if err := checkURL("MARKSYNC_SERVER_URL", c.ServerURL, "http", "https"); err != nil {
		return err
	}

	if c.FeedURL != "" {
		if err := checkURL("MARKSYNC_FEED_URL", c.FeedURL, "ws", "wss"); err != nil {
			return err
		}
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("MARKSYNC_HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}

	if c.EnableMCP && c.MCPListenAddr == "" {
		return fmt.Errorf("MCP_LISTEN_ADDR is required when MCP is enabled")
	}

	if c.LogLevel != "" && !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// checkURL requires raw to be an absolute URL with one of the given
// schemes and a host.
func checkURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}

	return fmt.Errorf("%s must be a %s URL with a host, got %q", name, schemes[0]+"(s)", raw)
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
