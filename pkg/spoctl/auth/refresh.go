package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// RedeemRefreshToken exchanges refreshToken for an access token limited to
// cfg.Scopes. Entra ID refresh tokens are multi-resource, so a token issued
// at login can be redeemed for any SharePoint host of the tenant.
func RedeemRefreshToken(ctx context.Context, cfg OIDCConfig, refreshToken string) (*LoginResult, error) {
	if cfg.Authority == "" || cfg.ClientID == "" {
		return nil, errors.New("authority and client-id are required")
	}
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	client, err := newHTTPClient(cfg.CAFile, cfg.InsecureSkipTLS)
	if err != nil {
		return nil, err
	}
	endpoints, err := discoverOIDCEndpoints(ctx, client, cfg.Authority)
	if err != nil {
		return nil, err
	}
	if endpoints.TokenEndpoint == "" {
		return nil, errors.New("token endpoint not advertised")
	}

	values := url.Values{}
	values.Set("grant_type", "refresh_token")
	values.Set("client_id", cfg.ClientID)
	values.Set("refresh_token", refreshToken)
	if cfg.ClientSecret != "" {
		values.Set("client_secret", cfg.ClientSecret)
	}
	if len(cfg.Scopes) > 0 {
		values.Set("scope", strings.Join(cfg.Scopes, " "))
	}
	resp, err := postForm(ctx, client, endpoints.TokenEndpoint, values)
	if err != nil {
		return nil, fmt.Errorf("token refresh request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if payload.Error != "" {
		if payload.ErrorDesc != "" {
			return nil, fmt.Errorf("failed to refresh token: %s: %s", payload.Error, firstLine(payload.ErrorDesc))
		}
		return nil, fmt.Errorf("failed to refresh token: %s", payload.Error)
	}
	if resp.StatusCode >= 400 || payload.AccessToken == "" {
		return nil, fmt.Errorf("failed to refresh token: status %d", resp.StatusCode)
	}
	result := payload.loginResult()
	// Entra ID may omit a rotated refresh token.
	if result.Token.RefreshToken == "" {
		result.Token.RefreshToken = refreshToken
	}
	return result, nil
}

func firstLine(s string) string {
	if idx := strings.IndexAny(s, "\r\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
