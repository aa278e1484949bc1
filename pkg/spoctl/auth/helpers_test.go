package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// fakeIdentityProvider is a minimal Entra ID stand-in: discovery document,
// device authorization and token endpoints.
type fakeIdentityProvider struct {
	*httptest.Server

	mu       sync.Mutex
	requests []url.Values
	token    func(form url.Values) (int, map[string]any)
	issuer   string
}

func newFakeIdentityProvider(t *testing.T, token func(form url.Values) (int, map[string]any)) *fakeIdentityProvider {
	t.Helper()
	idp := &fakeIdentityProvider{token: token}
	idp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			issuer := idp.issuer
			if issuer == "" {
				issuer = idp.URL
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"issuer":                        issuer,
				"authorization_endpoint":        idp.URL + "/authorize",
				"token_endpoint":                idp.URL + "/token",
				"device_authorization_endpoint": idp.URL + "/devicecode",
			})
		case "/token":
			_ = r.ParseForm()
			idp.mu.Lock()
			idp.requests = append(idp.requests, r.PostForm)
			idp.mu.Unlock()
			status, body := idp.token(r.PostForm)
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(idp.Close)
	return idp
}

func (f *fakeIdentityProvider) tokenRequests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.requests...)
}

func issueToken(access string) (int, map[string]any) {
	return http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": "rotated-refresh",
		"token_type":    "Bearer",
		"expires_in":    3600,
	}
}
