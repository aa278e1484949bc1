package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthenticated is returned when no cached credential can produce a
// token for the requested resource.
var ErrNotAuthenticated = errors.New("not authenticated; run 'spoctl connect' or 'spoctl auth login'")

// ResourceScopes returns the v2.0 scopes that request a token bound to
// resource.
func ResourceScopes(resource string, offline bool) []string {
	scopes := []string{strings.TrimRight(resource, "/") + "/.default"}
	if offline {
		scopes = append(scopes, "offline_access")
	}
	return scopes
}

// Provider hands out access tokens for SharePoint resources on behalf of a
// single identity.
type Provider struct {
	Manager *TokenManager
	// Key identifies the identity in the token cache.
	Key    string
	Config OIDCConfig
	// OnEvent, when set, receives a short description of how each token
	// was obtained.
	OnEvent func(msg string, keysAndValues ...any)
}

func (p *Provider) event(msg string, keysAndValues ...any) {
	if p.OnEvent != nil {
		p.OnEvent(msg, keysAndValues...)
	}
}

// AccessToken returns a token bound to resource: a fresh cached token, a
// refresh-token redemption, or a client-credentials grant, in that order.
func (p *Provider) AccessToken(ctx context.Context, resource string) (string, error) {
	if p.Manager == nil {
		return "", errors.New("token manager is not configured")
	}
	resourceKey := ResourceKey(p.Key, resource)
	cached, ok, err := p.Manager.GetToken(resourceKey)
	if err != nil {
		return "", err
	}
	if ok && cached.Fresh() {
		p.event("using cached access token", "resource", resource, "expires", cached.Expiry)
		return cached.AccessToken, nil
	}

	refreshToken := cached.RefreshToken
	if refreshToken == "" {
		login, found, err := p.Manager.GetToken(p.Key)
		if err != nil {
			return "", err
		}
		if found {
			refreshToken = login.RefreshToken
		}
	}
	if refreshToken != "" {
		cfg := p.Config
		cfg.Scopes = ResourceScopes(resource, true)
		result, err := RedeemRefreshToken(ctx, cfg, refreshToken)
		if err == nil {
			p.event("redeemed refresh token", "resource", resource)
			return p.save(resourceKey, resource, result)
		}
		if p.Config.GrantType != GrantClientCredentials {
			return "", err
		}
		p.event("refresh failed, falling back to client credentials", "error", err)
	}

	if p.Config.GrantType == GrantClientCredentials {
		cfg := p.Config
		cfg.Scopes = ResourceScopes(resource, false)
		result, err := ClientCredentialsLogin(ctx, cfg)
		if err != nil {
			return "", err
		}
		p.event("acquired app-only token", "resource", resource)
		return p.save(resourceKey, resource, result)
	}
	return "", ErrNotAuthenticated
}

// Login runs the interactive (or app-only) sign-in for resource and caches
// the result both as the identity's login token and as a resource token.
func (p *Provider) Login(ctx context.Context, resource string) (*StoredToken, error) {
	if p.Manager == nil {
		return nil, errors.New("token manager is not configured")
	}
	cfg := p.Config
	cfg.Scopes = ResourceScopes(resource, cfg.GrantType != GrantClientCredentials)
	result, err := Login(ctx, cfg)
	if err != nil {
		return nil, err
	}
	stored := result.Stored(resource)
	if err := p.Manager.SaveToken(p.Key, stored); err != nil {
		return nil, err
	}
	if err := p.Manager.SaveToken(ResourceKey(p.Key, resource), stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// Logout removes every cached token of the identity.
func (p *Provider) Logout() (int, error) {
	if p.Manager == nil {
		return 0, errors.New("token manager is not configured")
	}
	return p.Manager.DeleteIdentity(p.Key)
}

func (p *Provider) save(key, resource string, result *LoginResult) (string, error) {
	stored := result.Stored(resource)
	if err := p.Manager.SaveToken(key, stored); err != nil {
		return "", fmt.Errorf("failed to cache token: %w", err)
	}
	return stored.AccessToken, nil
}

// StaticProvider returns the same token for every resource; used when a
// bearer token is supplied on the command line.
type StaticProvider string

func (s StaticProvider) AccessToken(context.Context, string) (string, error) {
	if s == "" {
		return "", ErrNotAuthenticated
	}
	return string(s), nil
}
