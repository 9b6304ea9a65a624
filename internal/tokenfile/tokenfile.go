// Package tokenfile persists token records between CLI runs. The client
// library itself keeps tokens in memory only; this package is the
// caller-side persistence the library deliberately leaves out.
package tokenfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/racegrid/racegrid-go/auth"
)

const (
	tokensFileName   = "tokens.json"
	verifierFileName = "code_verifier"

	lockTimeout = 5 * time.Second
)

// ConfigDir returns the directory for persisted state, honouring
// RACEGRID_CONFIG_DIR and defaulting to ~/.racegrid.
func ConfigDir() string {
	if dir := os.Getenv("RACEGRID_CONFIG_DIR"); dir != "" {
		return dir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".racegrid"
	}
	return filepath.Join(homeDir, ".racegrid")
}

func ensureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0700)
}

// Save writes the token record, guarded by an advisory lock so concurrent
// CLI invocations do not interleave writes.
func Save(rec auth.TokenRecord) error {
	if err := ensureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(ConfigDir(), tokensFileName)
	return withLock(path, lockTimeout, func() error {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal token record: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to write token file: %w", err)
		}
		return nil
	})
}

// Load reads the persisted token record. A missing file yields a zero
// record and no error, which the manager treats as expired.
func Load() (auth.TokenRecord, error) {
	path := filepath.Join(ConfigDir(), tokensFileName)

	var rec auth.TokenRecord
	err := withLock(path, lockTimeout, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to read token file: %w", err)
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to parse token file: %w", err)
		}
		return nil
	})

	return rec, err
}

// Delete removes the persisted token record.
func Delete() error {
	path := filepath.Join(ConfigDir(), tokensFileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// SaveVerifier persists the PKCE verifier across the redirect boundary.
func SaveVerifier(verifier string) error {
	if err := ensureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(ConfigDir(), verifierFileName)
	if err := os.WriteFile(path, []byte(verifier), 0600); err != nil {
		return fmt.Errorf("failed to write verifier file: %w", err)
	}
	return nil
}

// LoadVerifier reads a previously saved PKCE verifier. A missing file
// yields an empty string.
func LoadVerifier() (string, error) {
	data, err := os.ReadFile(filepath.Join(ConfigDir(), verifierFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read verifier file: %w", err)
	}
	return string(data), nil
}
