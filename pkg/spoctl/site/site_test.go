package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/spoctl/pkg/spoctl/config"
)

func TestIsTenantAdminURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://contoso-admin.sharepoint.com", true},
		{"https://CONTOSO-ADMIN.sharepoint.com/", true},
		{"https://contoso.sharepoint.com", false},
		{"https://contoso.sharepoint.com/sites/contoso-admin", false},
		{"https://admin.contoso.com", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTenantAdminURL(tt.url))
		})
	}
}

func TestResource(t *testing.T) {
	res, err := Resource("https://contoso.sharepoint.com/sites/team")
	require.NoError(t, err)
	assert.Equal(t, "https://contoso.sharepoint.com", res)

	_, err = Resource("contoso")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	got, err := Normalize(" https://contoso.sharepoint.com/sites/team/?x=1 ")
	require.NoError(t, err)
	assert.Equal(t, "https://contoso.sharepoint.com/sites/team", got)

	_, err = Normalize("")
	require.Error(t, err)

	_, err = Normalize("ftp://contoso.sharepoint.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be https")

	_, err = Normalize("https://")
	require.Error(t, err)
}

func TestFromContext(t *testing.T) {
	s := FromContext(config.Context{Name: "c", Site: "https://contoso-admin.sharepoint.com/", Connected: true})
	assert.Equal(t, Site{URL: "https://contoso-admin.sharepoint.com", Connected: true, TenantAdmin: true}, s)

	s = FromContext(config.Context{Name: "c", Site: "https://tenant.example.com", TenantAdmin: true})
	assert.True(t, s.TenantAdmin)
	assert.False(t, s.Connected)
}
