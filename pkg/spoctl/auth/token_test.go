package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	cache := &TokenCache{Tokens: map[string]StoredToken{}}
	token := StoredToken{AccessToken: "abc", RefreshToken: "def", TokenType: "Bearer", Expiry: time.Now().UTC(), Resource: "https://contoso.sharepoint.com"}
	cache.Tokens["identity"] = token

	require.NoError(t, SaveTokenCache(path, cache))

	loaded, err := LoadTokenCache(path)
	require.NoError(t, err)
	require.Equal(t, token.AccessToken, loaded.Tokens["identity"].AccessToken)
	require.Equal(t, token.Resource, loaded.Tokens["identity"].Resource)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadTokenCacheErrors(t *testing.T) {
	_, err := LoadTokenCache(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{bad json"), 0o600))
	_, err = LoadTokenCache(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token cache")
}

func TestSaveTokenCacheNil(t *testing.T) {
	err := SaveTokenCache(filepath.Join(t.TempDir(), "tokens.json"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token cache is nil")
}

func TestSaveTokenCacheInitializesMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, SaveTokenCache(path, &TokenCache{}))

	loaded, err := LoadTokenCache(path)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Tokens)
}

func TestStoredTokenFresh(t *testing.T) {
	assert.False(t, StoredToken{}.Fresh())
	assert.True(t, StoredToken{AccessToken: "a"}.Fresh())
	assert.True(t, StoredToken{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}.Fresh())
	assert.False(t, StoredToken{AccessToken: "a", Expiry: time.Now().Add(time.Minute)}.Fresh())
	assert.False(t, StoredToken{AccessToken: "a", Expiry: time.Now().Add(-time.Minute)}.Fresh())
}
