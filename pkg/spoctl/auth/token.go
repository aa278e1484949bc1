package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type StoredToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	Resource     string    `json:"resource,omitempty"`
}

// Fresh reports whether the token can be used for at least another two
// minutes. Tokens without an expiry are treated as fresh.
func (t StoredToken) Fresh() bool {
	if t.AccessToken == "" {
		return false
	}
	return t.Expiry.IsZero() || time.Until(t.Expiry) > 2*time.Minute
}

type TokenCache struct {
	Tokens map[string]StoredToken `json:"tokens"`
}

func parseTokenCache(content []byte) (*TokenCache, error) {
	var cache TokenCache
	if err := json.Unmarshal(content, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	if cache.Tokens == nil {
		cache.Tokens = map[string]StoredToken{}
	}
	return &cache, nil
}

func marshalTokenCache(cache *TokenCache) ([]byte, error) {
	if cache == nil {
		return nil, errors.New("token cache is nil")
	}
	if cache.Tokens == nil {
		cache.Tokens = map[string]StoredToken{}
	}
	content, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token cache: %w", err)
	}
	return content, nil
}

func LoadTokenCache(path string) (*TokenCache, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseTokenCache(content)
}

func SaveTokenCache(path string, cache *TokenCache) error {
	content, err := marshalTokenCache(cache)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}
