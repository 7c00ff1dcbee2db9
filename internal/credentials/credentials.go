// Package credentials resolves the extraction API key.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// EnvAPIKey is consulted when the config carries no key.
	EnvAPIKey = "OPENAI_API_KEY"

	keyringService = "posteragent"
	keyringUser    = "openai"
)

// ErrNoAPIKey is returned when no source provides a key.
var ErrNoAPIKey = errors.New("no API key configured")

var (
	keyringGet = keyring.Get
	keyringSet = keyring.Set
	lookupEnv  = os.LookupEnv
)

// APIKey returns the first non-empty key from the config value, the
// OPENAI_API_KEY environment variable, and the OS keyring, in that order.
func APIKey(configured string) (string, error) {
	if k := strings.TrimSpace(configured); k != "" {
		return k, nil
	}
	if k, ok := lookupEnv(EnvAPIKey); ok && strings.TrimSpace(k) != "" {
		return strings.TrimSpace(k), nil
	}
	k, err := keyringGet(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoAPIKey
		}
		return "", fmt.Errorf("credentials: keyring lookup: %w", err)
	}
	if strings.TrimSpace(k) == "" {
		return "", ErrNoAPIKey
	}
	return strings.TrimSpace(k), nil
}

// StoreAPIKey saves the key in the OS keyring.
func StoreAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrNoAPIKey
	}
	return keyringSet(keyringService, keyringUser, strings.TrimSpace(key))
}
