package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// AppMetadata describes an app of the tenant or site collection app catalog.
type AppMetadata struct {
	ID                   string `json:"Id" yaml:"id"`
	Title                string `json:"Title" yaml:"title"`
	Deployed             bool   `json:"Deployed" yaml:"deployed"`
	AppCatalogVersion    string `json:"AppCatalogVersion,omitempty" yaml:"appCatalogVersion,omitempty"`
	InstalledVersion     string `json:"InstalledVersion,omitempty" yaml:"installedVersion,omitempty"`
	CanUpgrade           bool   `json:"CanUpgrade" yaml:"canUpgrade"`
	IsClientSideSolution bool   `json:"IsClientSideSolution" yaml:"isClientSideSolution"`
}

// AppService manages the tenant catalog apps available to the connected site.
type AppService struct {
	client *Client
}

func (c *Client) Apps() *AppService {
	return &AppService{client: c}
}

const availableApps = "_api/web/tenantappcatalog/AvailableApps"

func (a *AppService) List(ctx context.Context) ([]AppMetadata, error) {
	var apps []AppMetadata
	err := a.client.withDigest(ctx, request{
		method:   http.MethodGet,
		endpoint: availableApps,
		accept:   acceptVerbose,
	}, &apps)
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func (a *AppService) Get(ctx context.Context, id string) (*AppMetadata, error) {
	endpoint, err := appEndpoint(id, "")
	if err != nil {
		return nil, err
	}
	var app AppMetadata
	if err := a.client.withDigest(ctx, request{
		method:   http.MethodGet,
		endpoint: endpoint,
		accept:   acceptVerbose,
	}, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (a *AppService) Install(ctx context.Context, id string) error {
	return a.action(ctx, id, "install")
}

func (a *AppService) Uninstall(ctx context.Context, id string) error {
	return a.action(ctx, id, "uninstall")
}

func (a *AppService) Upgrade(ctx context.Context, id string) error {
	return a.action(ctx, id, "upgrade")
}

func (a *AppService) action(ctx context.Context, id, verb string) error {
	endpoint, err := appEndpoint(id, verb)
	if err != nil {
		return err
	}
	var raw string
	return a.client.withDigest(ctx, request{
		method:   http.MethodPost,
		endpoint: endpoint,
		accept:   acceptVerbose,
		body:     "",
	}, &raw)
}

func appEndpoint(id, verb string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%s is not a valid GUID", id)
	}
	endpoint := fmt.Sprintf("%s/GetByID('%s')", availableApps, parsed.String())
	if verb != "" {
		endpoint += "/" + verb
	}
	return endpoint, nil
}
