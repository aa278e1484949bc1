package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/telekom/spoctl/pkg/spoctl/config"
)

const testAppID = "058140e3-0e37-44fc-a1d3-79c487d371a3"

type cmdResult struct {
	stdout string
	stderr string
	err    error
}

// runRoot executes the command tree with args against the config at
// cfgPath.
func runRoot(t *testing.T, cfgPath string, args ...string) cmdResult {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: cfgPath, OutputWriter: out, ErrorWriter: errOut})
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.Execute()
	return cmdResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func tempConfigPath(t *testing.T) string {
	t.Helper()
	t.Setenv("SPOCTL_TOKEN_CACHE", "")
	for _, key := range []string{"SPOCTL_CONTEXT", "SPOCTL_OUTPUT", "SPOCTL_QUERY", "SPOCTL_SITE", "SPOCTL_TOKEN", "SPOCTL_TOKEN_STORAGE", "SPOCTL_TENANT_ADMIN", "SPOCTL_NON_INTERACTIVE", "SPOCTL_VERBOSE"} {
		t.Setenv(key, "")
	}
	t.Setenv("SPOCTL_NO_BROWSER", "true")
	t.Setenv("NO_COLOR", "1")
	return filepath.Join(t.TempDir(), "config.yaml")
}

func writeConfig(t *testing.T, path string, cfg config.Config) {
	t.Helper()
	require.NoError(t, config.Save(path, &cfg))
}

type seenRequest struct {
	Method string
	Path   string
	Header http.Header
}

// fakeSharePoint serves contextinfo, the site app catalog and the tenant app
// catalog of one site.
type fakeSharePoint struct {
	*httptest.Server

	mu       sync.Mutex
	requests []seenRequest
	apps     string
}

func newFakeSharePoint(t *testing.T) *fakeSharePoint {
	t.Helper()
	sp := &fakeSharePoint{
		apps: `{"d":{"results":[{"ID":"` + testAppID + `","Title":"spfx-one","Deployed":true},{"ID":"4d2e2f5b-6b0b-4a3f-9b7e-0f8b1b0d5c11","Title":"spfx-two"}]}}`,
	}
	sp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sp.mu.Lock()
		sp.requests = append(sp.requests, seenRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()})
		sp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_api/contextinfo"):
			_, _ = w.Write([]byte(`{"FormDigestValue":"digest-value"}`))
		case strings.HasSuffix(r.URL.Path, "/_api/web/tenantappcatalog/AvailableApps"),
			strings.HasSuffix(r.URL.Path, "/_api/web/appcatalog/getavailable"):
			_, _ = w.Write([]byte(sp.apps))
		case strings.HasSuffix(r.URL.Path, "/uninstall"),
			strings.HasSuffix(r.URL.Path, "/install"),
			strings.HasSuffix(r.URL.Path, "/upgrade"):
			_, _ = w.Write([]byte(`{"d":{}}`))
		case strings.Contains(r.URL.Path, "/AvailableApps/GetByID("):
			_, _ = w.Write([]byte(`{"d":{"ID":"` + testAppID + `","Title":"spfx-one","Deployed":true}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"odata.error":{"message":{"value":"Not found: ` + r.URL.Path + `"}}}`))
		}
	}))
	t.Cleanup(sp.Close)
	return sp
}

func (sp *fakeSharePoint) seen() []seenRequest {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return append([]seenRequest(nil), sp.requests...)
}
