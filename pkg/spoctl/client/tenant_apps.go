package client

import (
	"context"
	"net/http"
)

// TenantAppService reads the tenant app catalog. It requires a client bound
// to the tenant admin site.
type TenantAppService struct {
	client *Client
}

func (c *Client) TenantApps() *TenantAppService {
	return &TenantAppService{client: c}
}

func (t *TenantAppService) List(ctx context.Context) ([]AppMetadata, error) {
	var apps []AppMetadata
	err := t.client.withDigest(ctx, request{
		method:   http.MethodGet,
		endpoint: "_api/web/appcatalog/getavailable",
		accept:   acceptJSON,
	}, &apps)
	if err != nil {
		return nil, err
	}
	return apps, nil
}
