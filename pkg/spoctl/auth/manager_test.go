package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestTokenManager_GetToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")

	// Cache file does not exist yet
	mgr := &TokenManager{CachePath: path, StorageMode: tokenStoreFile}
	token, found, err := mgr.GetToken("identity")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, token.AccessToken)

	testToken := StoredToken{
		AccessToken:  "test-access",
		RefreshToken: "test-refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	require.NoError(t, mgr.SaveToken("identity", testToken))

	token, found, err = mgr.GetToken("identity")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "test-access", token.AccessToken)
	assert.Equal(t, "test-refresh", token.RefreshToken)
}

func TestTokenManager_SaveTokenKeepsOthers(t *testing.T) {
	mgr := &TokenManager{CachePath: filepath.Join(t.TempDir(), "tokens.json"), StorageMode: tokenStoreFile}

	require.NoError(t, mgr.SaveToken("identity1", StoredToken{AccessToken: "token1"}))
	require.NoError(t, mgr.SaveToken("identity2", StoredToken{AccessToken: "token2"}))

	t1, found, err := mgr.GetToken("identity1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "token1", t1.AccessToken)

	t2, found, err := mgr.GetToken("identity2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "token2", t2.AccessToken)
}

func TestTokenManager_DeleteToken(t *testing.T) {
	mgr := &TokenManager{CachePath: filepath.Join(t.TempDir(), "tokens.json"), StorageMode: tokenStoreFile}

	require.NoError(t, mgr.SaveToken("identity", StoredToken{AccessToken: "to-delete"}))
	require.NoError(t, mgr.DeleteToken("identity"))

	_, found, err := mgr.GetToken("identity")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTokenManager_DeleteIdentity(t *testing.T) {
	mgr := &TokenManager{CachePath: filepath.Join(t.TempDir(), "tokens.json"), StorageMode: tokenStoreFile}

	require.NoError(t, mgr.SaveToken("inline:contoso", StoredToken{AccessToken: "login"}))
	require.NoError(t, mgr.SaveToken(ResourceKey("inline:contoso", "https://contoso.sharepoint.com"), StoredToken{AccessToken: "site"}))
	require.NoError(t, mgr.SaveToken(ResourceKey("inline:contoso", "https://contoso-admin.sharepoint.com"), StoredToken{AccessToken: "admin"}))
	require.NoError(t, mgr.SaveToken("inline:contoso-dev", StoredToken{AccessToken: "other"}))

	removed, err := mgr.DeleteIdentity("inline:contoso")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, found, err := mgr.GetToken("inline:contoso-dev")
	require.NoError(t, err)
	assert.True(t, found, "identities sharing a prefix must survive")

	removed, err = mgr.DeleteIdentity("inline:contoso")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestTokenManager_Keychain(t *testing.T) {
	keyring.MockInit()

	mgr := &TokenManager{StorageMode: tokenStoreKeychain}
	_, found, err := mgr.GetToken("identity")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, mgr.SaveToken("identity", StoredToken{AccessToken: "from-keychain"}))
	token, found, err := mgr.GetToken("identity")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "from-keychain", token.AccessToken)
}

func TestTokenManager_UnsupportedStorage(t *testing.T) {
	mgr := &TokenManager{CachePath: filepath.Join(t.TempDir(), "tokens.json"), StorageMode: "vault"}
	_, _, err := mgr.GetToken("identity")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported token storage")
}

func TestTokenManager_FileModeRequiresPath(t *testing.T) {
	mgr := &TokenManager{}
	_, _, err := mgr.GetToken("identity")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token cache path is required")
}

func TestTokenManager_SaveTokenKeepsUnreadableCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	mgr := &TokenManager{CachePath: path, StorageMode: tokenStoreFile}
	require.Error(t, mgr.SaveToken("identity", StoredToken{AccessToken: "new"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(content))
}

func TestTokenManager_SaveTokenKeychainReadFailure(t *testing.T) {
	keyring.MockInitWithError(errors.New("keychain locked"))
	t.Cleanup(keyring.MockInit)

	mgr := &TokenManager{StorageMode: tokenStoreKeychain}
	err := mgr.SaveToken("identity", StoredToken{AccessToken: "new"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keychain locked")
}
