package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
}

// fakeSite answers /_api/contextinfo with a fixed digest and delegates every
// other path to handler.
type fakeSite struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

const testDigest = "0x1234,16 Oct 2026 10:00:00 -0000"

func newFakeSite(t *testing.T, handler http.HandlerFunc) *fakeSite {
	t.Helper()
	site := &fakeSite{}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.requests = append(site.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()})
		site.mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/_api/contextinfo") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"FormDigestValue":"` + testDigest + `","FormDigestTimeoutSeconds":1800}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(site.Close)
	return site
}

func (s *fakeSite) recorded() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}
