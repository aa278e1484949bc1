package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "missing site", opts: []Option{}, wantErr: true},
		{name: "relative site", opts: []Option{WithSite("contoso")}, wantErr: true},
		{name: "negative timeout", opts: []Option{WithSite("https://contoso.sharepoint.com"), WithTimeout(-time.Second)}, wantErr: true},
		{
			name: "valid config",
			opts: []Option{
				WithSite("https://contoso.sharepoint.com/"),
				WithToken("test-token"),
				WithTimeout(10 * time.Second),
				WithRateLimiter(NewRateLimiter(DefaultRateLimit)),
			},
		},
		{name: "missing CA file", opts: []Option{WithSite("https://contoso.sharepoint.com"), WithTLSConfig("/nonexistent/ca.pem", false)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://contoso.sharepoint.com", client.Site())
		})
	}
}

func TestClientDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, acceptNoMetadata, r.Header.Get("Accept"))
		_, err := uuid.Parse(r.Header.Get("client-request-id"))
		assert.NoError(t, err)
		assert.Empty(t, r.Header.Get("X-RequestDigest"))
		_, _ = w.Write([]byte(`{"value":[{"Id":"1","Title":"one"}]}`))
	}))
	defer server.Close()

	client, err := New(WithSite(server.URL), WithToken("test-token"), WithUserAgent("test-agent"))
	require.NoError(t, err)

	var apps []AppMetadata
	err = client.do(context.Background(), request{method: http.MethodGet, endpoint: "/_api/test", accept: acceptNoMetadata}, &apps)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "one", apps[0].Title)
}

func TestClientDoRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"d":{"Uninstall":null}}`))
	}))
	defer server.Close()

	client, err := New(WithSite(server.URL))
	require.NoError(t, err)

	var raw string
	require.NoError(t, client.do(context.Background(), request{method: http.MethodPost, endpoint: "_api/x"}, &raw))
	assert.Equal(t, `{"d":{"Uninstall":null}}`, raw)
}

func TestClientDoError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "verbose odata error",
			body: `{"error":{"code":"-1, Microsoft.SharePoint.Client.ResourceNotFoundException","message":{"lang":"en-US","value":"Cannot find resource for the request AvailableApps."}}}`,
			want: "Cannot find resource for the request AvailableApps.",
		},
		{
			name: "nometadata odata error",
			body: `{"odata.error":{"code":"-2147024891, System.UnauthorizedAccessException","message":{"lang":"en-US","value":"Access denied."}}}`,
			want: "Access denied.",
		},
		{name: "plain error string", body: `{"error":"not found"}`, want: "not found"},
		{name: "raw body", body: "something broke", want: "something broke"},
		{name: "empty body", body: "", want: "404 Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := New(WithSite(server.URL))
			require.NoError(t, err)

			err = client.do(context.Background(), request{method: http.MethodGet, endpoint: "_api/missing"}, nil)
			require.Error(t, err)
			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
			assert.Equal(t, tt.want, httpErr.Message)
		})
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{StatusCode: http.StatusForbidden, Message: "access denied"}
	require.Equal(t, "request failed (403): access denied", err.Error())
}

func TestUnwrapOData(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"verbose collection", `{"d":{"results":[{"Id":"a"}]}}`, `[{"Id":"a"}]`},
		{"verbose entity", `{"d":{"Id":"a"}}`, `{"Id":"a"}`},
		{"nometadata collection", `{"value":[{"Id":"a"}]}`, `[{"Id":"a"}]`},
		{"bare entity", `{"Id":"a"}`, `{"Id":"a"}`},
		{"bare array", `[1,2]`, `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(unwrapOData([]byte(tt.body))))
		})
	}
}

func TestContextInfo(t *testing.T) {
	site := newFakeSite(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, err := New(WithSite(site.URL), WithToken("abc"))
	require.NoError(t, err)

	info, err := client.ContextInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testDigest, info.FormDigestValue)
	assert.Equal(t, 1800, info.FormDigestTimeoutSeconds)

	reqs := site.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "Bearer abc", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "application/json;odata=nometadata", reqs[0].Header.Get("Accept"))
}

func TestContextInfoWithoutDigest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := New(WithSite(server.URL))
	require.NoError(t, err)
	_, err = client.ContextInfo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "form digest")
}

func TestWithDigestStopsWhenContextInfoFails(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_description":"Invalid JWT token."}`))
	}))
	defer server.Close()

	client, err := New(WithSite(server.URL))
	require.NoError(t, err)
	_, err = client.Apps().List(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
