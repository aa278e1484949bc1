package cmd

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/telekom/spoctl/pkg/spoctl/auth"
	"github.com/telekom/spoctl/pkg/spoctl/config"
	"github.com/telekom/spoctl/pkg/spoctl/site"
)

// tokenClaims is the subset of Entra ID token claims spoctl displays.
type tokenClaims struct {
	User     string
	Audience string
	Tenant   string
}

func parseTokenClaims(token string) (tokenClaims, bool) {
	if token == "" {
		return tokenClaims{}, false
	}
	parser := jwt.Parser{}
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return tokenClaims{}, false
	}
	out := tokenClaims{}
	for _, key := range []string{"upn", "preferred_username", "unique_name", "email", "appid", "sub"} {
		if value, ok := claims[key].(string); ok && value != "" {
			out.User = value
			break
		}
	}
	switch aud := claims["aud"].(type) {
	case string:
		out.Audience = aud
	case []any:
		if len(aud) > 0 {
			out.Audience, _ = aud[0].(string)
		}
	}
	out.Tenant, _ = claims["tid"].(string)
	return out, true
}

// cachedIdentity reports who the cached token of ctxCfg belongs to, without
// contacting Entra ID. The site's resource token wins over the login token.
func cachedIdentity(rt *runtimeState, ctxCfg *config.Context) (string, time.Time) {
	if rt.tokenOverride != "" {
		claims, _ := parseTokenClaims(rt.tokenOverride)
		return claims.User, time.Time{}
	}
	resolved, err := rt.cfg.ResolveIdentity(ctxCfg)
	if err != nil {
		return "", time.Time{}
	}
	manager := auth.TokenManager{CachePath: rt.tokenPath(), StorageMode: rt.TokenStorage()}
	key := identityKey(ctxCfg, resolved)
	candidates := []string{key}
	if resource, err := site.Resource(ctxCfg.Site); err == nil {
		candidates = []string{auth.ResourceKey(key, resource), key}
	}
	var stored auth.StoredToken
	found := false
	for _, candidate := range candidates {
		token, ok, err := manager.GetToken(candidate)
		if err != nil {
			return "", time.Time{}
		}
		if ok {
			stored, found = token, true
			break
		}
	}
	if !found {
		return "", time.Time{}
	}
	token := stored.IDToken
	if token == "" {
		token = stored.AccessToken
	}
	claims, _ := parseTokenClaims(token)
	return claims.User, stored.Expiry
}
