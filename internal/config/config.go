// Package config loads tasktree settings from the environment and optional
// dotenv files.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alexanderramin/tasktree/internal/backend"
)

// DefaultEnvFiles are loaded in order when present; later files do not
// override variables set by earlier ones or by the process environment.
var DefaultEnvFiles = []string{".env", ".env.local"}

type Config struct {
	APIURL     string `env:"TASKTREE_API_URL" envDefault:"http://localhost:8080"`
	APIToken   string `env:"TASKTREE_API_TOKEN"`
	TimeoutMs  int    `env:"TASKTREE_TIMEOUT_MS" envDefault:"10000"`
	MaxRetries int    `env:"TASKTREE_MAX_RETRIES" envDefault:"2"`
	LogLevel   string `env:"TASKTREE_LOG_LEVEL" envDefault:"info"`
	LogCalls   bool   `env:"TASKTREE_LOG_CALLS" envDefault:"false"`
	DBPath     string `env:"TASKTREE_DB"`
	Addr       string `env:"TASKTREE_ADDR" envDefault:"localhost:8080"`
}

// LoadEnv loads whichever of files exist and reports how many did.
func LoadEnv(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("loading env files: %w", err)
	}
	return len(existing), nil
}

// Load reads env files, parses the environment and validates the result.
// An unset TASKTREE_DB resolves to ~/.tasktree/tasktree.db.
func Load(files []string) (Config, error) {
	if _, err := LoadEnv(files); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".tasktree", "tasktree.db")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the client or server cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TASKTREE_API_URL must be an absolute http(s) URL, got %q", c.APIURL)
	}
	if c.TimeoutMs <= 0 {
		return fmt.Errorf("TASKTREE_TIMEOUT_MS must be positive, got %d", c.TimeoutMs)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("TASKTREE_MAX_RETRIES must be between 0 and 10, got %d", c.MaxRetries)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("TASKTREE_ADDR must not be empty")
	}
	return nil
}

// Backend returns the client settings.
func (c Config) Backend() backend.Config {
	return backend.Config{
		BaseURL:    strings.TrimRight(c.APIURL, "/"),
		Token:      c.APIToken,
		TimeoutMs:  c.TimeoutMs,
		MaxRetries: c.MaxRetries,
	}
}

// Level returns the configured slog level; Validate guarantees it parses.
func (c Config) Level() slog.Level {
	lvl, _ := ParseLevel(c.LogLevel)
	return lvl
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("TASKTREE_LOG_LEVEL must be debug, info, warn or error, got %q", s)
}
