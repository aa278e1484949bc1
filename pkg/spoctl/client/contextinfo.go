package client

import (
	"context"
	"errors"
	"net/http"
)

// ContextInfo is the response of /_api/contextinfo.
type ContextInfo struct {
	FormDigestValue          string   `json:"FormDigestValue"`
	FormDigestTimeoutSeconds int      `json:"FormDigestTimeoutSeconds"`
	LibraryVersion           string   `json:"LibraryVersion"`
	SiteFullURL              string   `json:"SiteFullUrl"`
	WebFullURL               string   `json:"WebFullUrl"`
	SupportedSchemaVersions  []string `json:"SupportedSchemaVersions"`
}

func (c *Client) ContextInfo(ctx context.Context) (*ContextInfo, error) {
	var info ContextInfo
	err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "_api/contextinfo",
		accept:   acceptNoMetadata,
	}, &info)
	if err != nil {
		return nil, err
	}
	if info.FormDigestValue == "" {
		return nil, errors.New("contextinfo response did not contain a form digest")
	}
	return &info, nil
}

// withDigest obtains a fresh form digest and performs r with it. Each
// invocation fetches its own digest; digests are never reused.
func (c *Client) withDigest(ctx context.Context, r request, out any) error {
	info, err := c.ContextInfo(ctx)
	if err != nil {
		return err
	}
	r.digest = info.FormDigestValue
	return c.do(ctx, r, out)
}
