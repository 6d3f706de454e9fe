// Package secrets loads API keys and passphrases from the operator's local
// secrets file. Secrets never live in the main config, which gets checked
// into the team's dotfiles.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrNotFound is returned when the secrets file does not exist.
var ErrNotFound = errors.New("secrets file not found")

// Secrets holds every credential the tool needs.
type Secrets struct {
	DBPassword     string `toml:"db_password"`
	SSHPassphrase  string `toml:"ssh_passphrase"`
	ShippingAPIKey string `toml:"shipping_api_key"`
	TicketsAPIKey  string `toml:"tickets_api_key"`
	OrdersAPIKey   string `toml:"orders_api_key"`
}

const defaultSecretsPath = "~/.config/fulfil/secrets.toml"

// DefaultPath returns the default secrets file path.
func DefaultPath() string {
	return defaultSecretsPath
}

// Load reads the secrets file. A missing file is an explicit error so the
// operator gets told what to create instead of a cryptic auth failure later.
func Load(path string) (Secrets, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Secrets{}, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, fmt.Errorf("%w: create %s (chmod 600)", ErrNotFound, resolved)
		}
		return Secrets{}, fmt.Errorf("stat secrets: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return Secrets{}, fmt.Errorf("secrets file %s is readable by others; chmod 600 it", resolved)
	}

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return Secrets{}, fmt.Errorf("read secrets: %w", err)
	}

	var s Secrets
	if err := toml.Unmarshal(bytes, &s); err != nil {
		return Secrets{}, fmt.Errorf("parse secrets: %w", err)
	}
	return s, nil
}

// Save writes the secrets file with owner-only permissions, creating parent
// directories as needed.
func Save(path string, s Secrets) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	bytes, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = defaultSecretsPath
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
