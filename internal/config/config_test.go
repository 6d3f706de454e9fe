package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PollSeconds != defaultPollSeconds {
		t.Fatalf("PollSeconds = %d, want %d", cfg.PollSeconds, defaultPollSeconds)
	}
	if cfg.Database.Driver != defaultDBDriver {
		t.Fatalf("Database.Driver = %q, want %q", cfg.Database.Driver, defaultDBDriver)
	}
	if !strings.HasPrefix(cfg.Database.LocalPath, home) {
		t.Fatalf("Database.LocalPath = %q, want it under HOME %q", cfg.Database.LocalPath, home)
	}
	if !strings.HasPrefix(cfg.LogPath, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", cfg.LogPath, home)
	}
}

func TestLoad_ParsesFullConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
poll_seconds = 10
log_level = "DEBUG"

[database]
driver = "mysql"
host = "db.internal:3306"
user = "fulfil"
name = "ops"

[tunnel]
enabled = true
addr = "bastion.example:22"
user = "ops"
key_path = "~/.ssh/id_ed25519"

[api]
shipping_endpoint = "carrier.example"
tickets_endpoint = "helpdesk.example"
orders_endpoint = "commerce.example"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PollSeconds != 10 {
		t.Fatalf("PollSeconds = %d, want 10", cfg.PollSeconds)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Database.Driver != "mysql" {
		t.Fatalf("Database.Driver = %q, want %q", cfg.Database.Driver, "mysql")
	}
	if !strings.HasPrefix(cfg.Tunnel.KeyPath, home) {
		t.Fatalf("Tunnel.KeyPath = %q, want it under HOME %q", cfg.Tunnel.KeyPath, home)
	}
	if !strings.HasPrefix(cfg.Tunnel.KnownHosts, home) {
		t.Fatalf("Tunnel.KnownHosts = %q, want it under HOME %q", cfg.Tunnel.KnownHosts, home)
	}
	if cfg.API.ShippingEndpoint != "carrier.example" {
		t.Fatalf("API.ShippingEndpoint = %q, want %q", cfg.API.ShippingEndpoint, "carrier.example")
	}
}

func TestLoad_MySQLRequiresHostAndName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
[database]
driver = "mysql"
host = "db.internal:3306"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want missing database.name error")
	}
	if !strings.Contains(err.Error(), "database.name") {
		t.Fatalf("Load error = %q, want it to mention database.name", err.Error())
	}
}

func TestLoad_UnknownDriverFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
[database]
driver = "postgres"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want unknown driver error")
	}
}

func TestLoad_TunnelRequiresAddrAndUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
[tunnel]
enabled = true
addr = "bastion.example:22"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want tunnel validation error")
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`poll_seconds = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
