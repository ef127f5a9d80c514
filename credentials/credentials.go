// Package credentials stores the inference provider API key in the system
// keyring (macOS Keychain, Windows Credential Manager, Linux Secret Service).
// The NAMEPLATE_API_KEY environment variable takes precedence, which covers
// CI and headless environments where no keyring is available.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "nameplate"
	keyringUser    = "inference-api-key"

	// EnvAPIKey overrides the keyring when set.
	EnvAPIKey = "NAMEPLATE_API_KEY"
)

// Common errors.
var (
	// ErrNoAPIKey is returned when no API key is stored anywhere.
	ErrNoAPIKey = errors.New("no API key stored")
	// ErrKeyringUnavailable indicates the system keyring is not accessible.
	ErrKeyringUnavailable = errors.New("system keyring unavailable")
)

// APIKey returns the inference API key, preferring the environment variable
// over the keyring.
func APIKey() (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}

	key, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

// SetAPIKey stores the API key in the system keyring.
func SetAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("API key is empty")
	}
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// DeleteAPIKey removes the API key from the system keyring. Deleting a key
// that was never stored is not an error.
func DeleteAPIKey() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
}

// Mask returns a masked version of a credential for display.
func Mask(cred string) string {
	if len(cred) <= 8 {
		return strings.Repeat("*", len(cred))
	}
	return cred[:4] + strings.Repeat("*", len(cred)-8) + cred[len(cred)-4:]
}
