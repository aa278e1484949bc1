package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	tokenStoreFile     = "file"
	tokenStoreKeychain = "keychain"

	keychainService = "spoctl"
	keychainUser    = "token-cache"
)

// tokenStore persists the whole token cache as one document.
type tokenStore interface {
	load() (*TokenCache, error)
	save(cache *TokenCache) error
}

type fileStore struct {
	path string
}

func (s fileStore) load() (*TokenCache, error) {
	cache, err := LoadTokenCache(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &TokenCache{Tokens: map[string]StoredToken{}}, nil
		}
		return nil, err
	}
	return cache, nil
}

func (s fileStore) save(cache *TokenCache) error {
	return SaveTokenCache(s.path, cache)
}

type keychainStore struct{}

func (keychainStore) load() (*TokenCache, error) {
	secret, err := keyring.Get(keychainService, keychainUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return &TokenCache{Tokens: map[string]StoredToken{}}, nil
		}
		return nil, fmt.Errorf("failed to read keychain: %w", err)
	}
	return parseTokenCache([]byte(secret))
}

func (keychainStore) save(cache *TokenCache) error {
	content, err := marshalTokenCache(cache)
	if err != nil {
		return err
	}
	if err := keyring.Set(keychainService, keychainUser, string(content)); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

func newTokenStore(mode, path string) (tokenStore, error) {
	switch mode {
	case "", tokenStoreFile:
		if path == "" {
			return nil, errors.New("token cache path is required")
		}
		return fileStore{path: path}, nil
	case tokenStoreKeychain:
		return keychainStore{}, nil
	default:
		return nil, fmt.Errorf("unsupported token storage: %s (expected file or keychain)", mode)
	}
}
