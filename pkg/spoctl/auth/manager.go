package auth

import (
	"strings"
)

// TokenManager reads and writes cached tokens. Keys are either an identity
// key (the login token) or "<identity>@<resource>".
type TokenManager struct {
	CachePath   string
	StorageMode string
}

func (m *TokenManager) store() (tokenStore, error) {
	return newTokenStore(m.StorageMode, m.CachePath)
}

func (m *TokenManager) GetToken(key string) (StoredToken, bool, error) {
	store, err := m.store()
	if err != nil {
		return StoredToken{}, false, err
	}
	cache, err := store.load()
	if err != nil {
		return StoredToken{}, false, err
	}
	token, ok := cache.Tokens[key]
	return token, ok, nil
}

func (m *TokenManager) SaveToken(key string, token StoredToken) error {
	store, err := m.store()
	if err != nil {
		return err
	}
	cache, err := store.load()
	if err != nil {
		return err
	}
	if cache.Tokens == nil {
		cache.Tokens = map[string]StoredToken{}
	}
	cache.Tokens[key] = token
	return store.save(cache)
}

func (m *TokenManager) DeleteToken(key string) error {
	store, err := m.store()
	if err != nil {
		return err
	}
	cache, err := store.load()
	if err != nil {
		return err
	}
	delete(cache.Tokens, key)
	return store.save(cache)
}

// DeleteIdentity removes the login token of identityKey together with every
// resource token derived from it, returning the number of entries removed.
func (m *TokenManager) DeleteIdentity(identityKey string) (int, error) {
	store, err := m.store()
	if err != nil {
		return 0, err
	}
	cache, err := store.load()
	if err != nil {
		return 0, err
	}
	removed := 0
	for key := range cache.Tokens {
		if key == identityKey || strings.HasPrefix(key, identityKey+"@") {
			delete(cache.Tokens, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, store.save(cache)
}

func ResourceKey(identityKey, resource string) string {
	return identityKey + "@" + resource
}
