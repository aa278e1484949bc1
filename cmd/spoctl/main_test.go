package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/spoctl/pkg/spoctl/auth"
)

func TestRunVersionCommand(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	assert.Equal(t, 0, run([]string{"version"}, stdout, stderr))
	assert.Contains(t, stdout.String(), "spoctl ")
	assert.Empty(t, stderr.String())
}

func TestRunUnknownCommand(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	assert.Equal(t, 1, run([]string{"unknown-command"}, stdout, stderr))
	assert.Contains(t, stderr.String(), "Error: unknown command \"unknown-command\"")
}

func TestRunNotConnectedExitsZero(t *testing.T) {
	t.Setenv("SPOCTL_SITE", "")
	t.Setenv("SPOCTL_CONTEXT", "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run([]string{"--config", cfgPath, "app", "list"}, stdout, stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Connect to a SharePoint Online site first\n", stdout.String())
}

func TestRunReportedErrorPrintedOnce(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run([]string{"--config", cfgPath, "--site", "https://contoso.sharepoint.com", "--token", "abc",
		"--non-interactive", "app", "uninstall", "058140e3-0e37-44fc-a1d3-79c487d371a3"}, stdout, stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, bytes.Count(stderr.Bytes(), []byte("Error: ")))
}

func TestRunTokenFailureReportedOnStderr(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	t.Setenv("SPOCTL_TOKEN_CACHE", filepath.Join(dir, "tokens.json"))
	config := "version: v1\ncurrent-context: team\ncontexts:\n- name: team\n  site: https://contoso.sharepoint.com\n  connected: true\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(config), 0o600))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run([]string{"--config", cfgPath, "app", "uninstall", "--identity", "058140e3-0e37-44fc-a1d3-79c487d371a3"}, stdout, stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Equal(t, "Error: "+auth.ErrNotAuthenticated.Error()+"\n", stderr.String())
}
