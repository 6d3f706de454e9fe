// Package config loads the fulfil tool configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DatabaseConfig locates the operations database.
type DatabaseConfig struct {
	Driver    string `toml:"driver"` // "mysql" or "sqlite"
	Host      string `toml:"host"`   // host:port, reached through the tunnel
	User      string `toml:"user"`
	Name      string `toml:"name"`
	LocalPath string `toml:"local_path"` // sqlite database file
}

// TunnelConfig describes the SSH bastion in front of the database.
type TunnelConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	User       string `toml:"user"`
	KeyPath    string `toml:"key_path"`
	KnownHosts string `toml:"known_hosts"`
}

// APIConfig holds the external service endpoints.
type APIConfig struct {
	ShippingEndpoint string `toml:"shipping_endpoint"`
	TicketsEndpoint  string `toml:"tickets_endpoint"`
	OrdersEndpoint   string `toml:"orders_endpoint"`
}

// Config is the full application configuration.
type Config struct {
	PollSeconds int    `toml:"poll_seconds"`
	LogPath     string `toml:"log_path"`
	LogLevel    string `toml:"log_level"`

	Database DatabaseConfig `toml:"database"`
	Tunnel   TunnelConfig   `toml:"tunnel"`
	API      APIConfig      `toml:"api"`
}

const (
	defaultConfigPath  = "~/.config/fulfil/config.toml"
	defaultLogPath     = "~/.local/state/fulfil/fulfil.log"
	defaultLogLevel    = "info"
	defaultPollSeconds = 30
	defaultDBDriver    = "sqlite"
	defaultDBLocalPath = "~/.local/share/fulfil/ops.db"
	defaultKnownHosts  = "~/.ssh/known_hosts"
)

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return finish(cfg)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(bytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return finish(cfg)
}

func defaults() Config {
	return Config{
		PollSeconds: defaultPollSeconds,
		LogPath:     defaultLogPath,
		LogLevel:    defaultLogLevel,
		Database: DatabaseConfig{
			Driver:    defaultDBDriver,
			LocalPath: defaultDBLocalPath,
		},
		Tunnel: TunnelConfig{
			KnownHosts: defaultKnownHosts,
		},
	}
}

// finish trims, re-applies defaults for blanked fields, expands paths and
// validates the result.
func finish(cfg Config) (Config, error) {
	if cfg.PollSeconds <= 0 {
		cfg.PollSeconds = defaultPollSeconds
	}

	cfg.LogPath = strings.TrimSpace(cfg.LogPath)
	if cfg.LogPath == "" {
		cfg.LogPath = defaultLogPath
	}
	cfg.LogPath = mustExpand(cfg.LogPath)

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDBDriver
	}
	switch cfg.Database.Driver {
	case "mysql":
		if strings.TrimSpace(cfg.Database.Host) == "" {
			return Config{}, fmt.Errorf("database.host is required for the mysql driver")
		}
		if strings.TrimSpace(cfg.Database.Name) == "" {
			return Config{}, fmt.Errorf("database.name is required for the mysql driver")
		}
	case "sqlite":
		if strings.TrimSpace(cfg.Database.LocalPath) == "" {
			cfg.Database.LocalPath = defaultDBLocalPath
		}
		cfg.Database.LocalPath = mustExpand(cfg.Database.LocalPath)
	default:
		return Config{}, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Tunnel.Enabled {
		if strings.TrimSpace(cfg.Tunnel.Addr) == "" || strings.TrimSpace(cfg.Tunnel.User) == "" {
			return Config{}, fmt.Errorf("tunnel.addr and tunnel.user are required when the tunnel is enabled")
		}
		cfg.Tunnel.KeyPath = mustExpand(strings.TrimSpace(cfg.Tunnel.KeyPath))
		knownHosts := strings.TrimSpace(cfg.Tunnel.KnownHosts)
		if knownHosts == "" {
			knownHosts = defaultKnownHosts
		}
		cfg.Tunnel.KnownHosts = mustExpand(knownHosts)
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
