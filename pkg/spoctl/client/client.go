package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	acceptJSON        = "application/json"
	acceptNoMetadata  = "application/json;odata=nometadata"
	acceptVerbose     = "application/json;odata=verbose"
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "spoctl"
	correlationHeader = "client-request-id"
)

type Client struct {
	site      string
	token     string
	http      *http.Client
	timeout   time.Duration
	userAgent string
	limiter   *RateLimiter
	log       *zap.Logger
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:      &http.Client{},
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.site == "" {
		return nil, errors.New("site is required")
	}
	c.http.Timeout = c.timeout
	return c, nil
}

// WithSite sets the absolute URL of the site all endpoints are relative to.
func WithSite(site string) Option {
	return func(c *Client) error {
		if site == "" {
			return errors.New("site is required")
		}
		parsed, err := url.Parse(site)
		if err != nil {
			return fmt.Errorf("invalid site: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid site: %s is not an absolute URL", site)
		}
		c.site = strings.TrimRight(site, "/")
		return nil
	}
}

func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout < 0 {
			return fmt.Errorf("invalid timeout: %s", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

// WithLogger receives request and response traces at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

func WithRateLimiter(limiter *RateLimiter) Option {
	return func(c *Client) error {
		c.limiter = limiter
		return nil
	}
}

func WithTLSConfig(caFile string, insecureSkipTLSVerify bool) Option {
	return func(c *Client) error {
		tlsConfig, err := loadTLSConfig(caFile, insecureSkipTLSVerify)
		if err != nil {
			return err
		}
		c.http = &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}}
		return nil
	}
}

func loadTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecure}
	if caFile == "" {
		return tlsConfig, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(data); !ok {
		return nil, errors.New("failed to parse CA file")
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// Site returns the site URL without a trailing slash.
func (c *Client) Site() string {
	return c.site
}

type request struct {
	method   string
	endpoint string
	accept   string
	digest   string
	body     any
}

// do performs a single call. out may be nil, a *string receiving the raw
// body, or a value the OData payload is decoded into.
func (c *Client) do(ctx context.Context, r request, out any) error {
	fullURL := c.site + "/" + strings.TrimLeft(r.endpoint, "/")

	var payload io.Reader
	var contentType string
	switch body := r.body.(type) {
	case nil:
	case string:
		payload = strings.NewReader(body)
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(raw)
		contentType = acceptVerbose
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, payload)
	if err != nil {
		return err
	}
	accept := r.accept
	if accept == "" {
		accept = acceptJSON
	}
	req.Header.Set("Accept", accept)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if r.digest != "" {
		req.Header.Set("X-RequestDigest", r.digest)
	}
	requestID := uuid.NewString()
	req.Header.Set(correlationHeader, requestID)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	c.log.Debug("Executing web request",
		zap.String("method", r.method),
		zap.String("url", fullURL),
		zap.String("accept", accept),
		zap.Bool("digest", r.digest != ""),
		zap.String("requestID", requestID))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.log.Debug("Response",
		zap.Int("status", resp.StatusCode),
		zap.String("requestID", requestID),
		zap.ByteString("body", body))

	if c.limiter != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		c.limiter.RecordRetryAfter(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp, body)
	}

	switch target := out.(type) {
	case nil:
		return nil
	case *string:
		*target = string(body)
		return nil
	default:
		if len(bytes.TrimSpace(body)) == 0 {
			return errors.New("empty response body")
		}
		if err := json.Unmarshal(unwrapOData(body), out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}
