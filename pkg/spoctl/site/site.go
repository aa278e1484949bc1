// Package site describes the SharePoint site a command runs against.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/telekom/spoctl/pkg/spoctl/config"
)

// Site is the connection state consulted by every command. Only connect and
// disconnect change it.
type Site struct {
	URL         string
	Connected   bool
	TenantAdmin bool
}

// FromContext builds the site of a configuration context.
func FromContext(ctx config.Context) Site {
	return Site{
		URL:         strings.TrimRight(ctx.Site, "/"),
		Connected:   ctx.Connected,
		TenantAdmin: ctx.TenantAdmin || IsTenantAdminURL(ctx.Site),
	}
}

// Normalize validates a site URL entered by the user and strips trailing
// slashes.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("site URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid site URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return "", fmt.Errorf("invalid site URL %s: scheme must be https", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid site URL %s: host is required", raw)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}

// IsTenantAdminURL reports whether raw points at a tenant admin site, e.g.
// https://contoso-admin.sharepoint.com.
func IsTenantAdminURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	label, _, _ := strings.Cut(host, ".")
	return strings.HasSuffix(strings.ToLower(label), "-admin")
}

// Resource returns the token audience of raw.
func Resource(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid site URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid site URL: %s", raw)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}
