package credentials

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func withEnv(t *testing.T, val string, ok bool) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(string) (string, bool) { return val, ok }
	t.Cleanup(func() { lookupEnv = orig })
}

func TestAPIKeyPrefersConfig(t *testing.T) {
	keyring.MockInit()
	withEnv(t, "env-key", true)

	k, err := APIKey("  cfg-key ")
	require.NoError(t, err)
	assert.Equal(t, "cfg-key", k)
}

func TestAPIKeyFallsBackToEnv(t *testing.T) {
	keyring.MockInit()
	withEnv(t, "env-key", true)

	k, err := APIKey("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", k)
}

func TestAPIKeyFallsBackToKeyring(t *testing.T) {
	keyring.MockInit()
	withEnv(t, "", false)
	require.NoError(t, StoreAPIKey("ring-key"))

	k, err := APIKey("")
	require.NoError(t, err)
	assert.Equal(t, "ring-key", k)
}

func TestAPIKeyMissingEverywhere(t *testing.T) {
	keyring.MockInit()
	withEnv(t, "", false)

	_, err := APIKey("")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAPIKeyKeyringFailure(t *testing.T) {
	withEnv(t, "", false)
	orig := keyringGet
	keyringGet = func(string, string) (string, error) { return "", errors.New("dbus down") }
	t.Cleanup(func() { keyringGet = orig })

	_, err := APIKey("")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoAPIKey)
}
