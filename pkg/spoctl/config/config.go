package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"

	// DefaultTenant lets any work or school account sign in.
	DefaultTenant = "organizations"
	// DefaultClientID is the multi-tenant PnP Management Shell application.
	DefaultClientID = "31359c7f-bd7e-475c-86db-fdb8c937548e"
	// DefaultLoginHost is the Entra ID login endpoint for the public cloud.
	DefaultLoginHost = "https://login.microsoftonline.com"
)

type Config struct {
	Version        string     `yaml:"version"`
	CurrentContext string     `yaml:"current-context,omitempty"`
	Identities     []Identity `yaml:"identities,omitempty"`
	Contexts       []Context  `yaml:"contexts,omitempty"`
	Settings       Settings   `yaml:"settings,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	Color        string `yaml:"color,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	TokenStorage string `yaml:"token-storage,omitempty"`
}

// Identity is a reusable Entra ID application registration used to obtain
// SharePoint access tokens.
type Identity struct {
	Name             string            `yaml:"name"`
	Tenant           string            `yaml:"tenant,omitempty"`
	Authority        string            `yaml:"authority,omitempty"`
	ClientID         string            `yaml:"client-id"`
	ClientSecret     string            `yaml:"client-secret,omitempty"`
	ClientSecretEnv  string            `yaml:"client-secret-env,omitempty"`
	ClientSecretFile string            `yaml:"client-secret-file,omitempty"`
	GrantType        string            `yaml:"grant-type,omitempty"`
	CAFile           string            `yaml:"ca-file,omitempty"`
	InsecureSkipTLS  bool              `yaml:"insecure-skip-tls-verify,omitempty"`
	ExtraAuthParams  map[string]string `yaml:"extra-auth-params,omitempty"`
}

// Context binds a SharePoint site to an identity. Connected is flipped by
// the connect and disconnect commands.
type Context struct {
	Name                  string          `yaml:"name"`
	Site                  string          `yaml:"site"`
	Identity              string          `yaml:"identity,omitempty"`
	TenantAdmin           bool            `yaml:"tenant-admin,omitempty"`
	Connected             bool            `yaml:"connected,omitempty"`
	CAFile                string          `yaml:"ca-file,omitempty"`
	InsecureSkipTLSVerify bool            `yaml:"insecure-skip-tls-verify,omitempty"`
	Auth                  *InlineIdentity `yaml:"auth,omitempty"`
}

type InlineIdentity struct {
	Tenant          string `yaml:"tenant,omitempty"`
	Authority       string `yaml:"authority,omitempty"`
	ClientID        string `yaml:"client-id,omitempty"`
	ClientSecret    string `yaml:"client-secret,omitempty"`
	ClientSecretEnv string `yaml:"client-secret-env,omitempty"`
	GrantType       string `yaml:"grant-type,omitempty"`
	CAFile          string `yaml:"ca-file,omitempty"`
	InsecureSkipTLS bool   `yaml:"insecure-skip-tls-verify,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Settings: Settings{
			OutputFormat: "text",
			Color:        "auto",
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

// LoadOrDefault returns the default config when the file does not exist yet.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		def := DefaultConfig()
		return &def, nil
	}
	return nil, err
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

func (c *Config) FindContext(name string) (*Context, error) {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i], nil
		}
	}
	return nil, fmt.Errorf("context not found: %s", name)
}

func (c *Config) FindIdentity(name string) (*Identity, error) {
	for i := range c.Identities {
		if c.Identities[i].Name == name {
			return &c.Identities[i], nil
		}
	}
	return nil, fmt.Errorf("identity not found: %s", name)
}

// UpsertContext replaces the context with the same name or appends it.
func (c *Config) UpsertContext(ctx Context) *Context {
	for i := range c.Contexts {
		if c.Contexts[i].Name == ctx.Name {
			c.Contexts[i] = ctx
			return &c.Contexts[i]
		}
	}
	c.Contexts = append(c.Contexts, ctx)
	return &c.Contexts[len(c.Contexts)-1]
}

func (c *Config) CurrentContextOrDefault() string {
	if c.CurrentContext != "" {
		return c.CurrentContext
	}
	if len(c.Contexts) > 0 {
		return c.Contexts[0].Name
	}
	return ""
}

type ResolvedIdentity struct {
	IdentityName     string
	Authority        string
	ClientID         string
	ClientSecret     string
	ClientSecretEnv  string
	ClientSecretFile string
	GrantType        string
	CAFile           string
	InsecureSkipTLS  bool
	ExtraAuthParams  map[string]string
}

// ResolveIdentity merges the inline auth block or the referenced identity of
// ctx with the built-in defaults. A context without either signs in with the
// default multi-tenant application.
func (c *Config) ResolveIdentity(ctx *Context) (*ResolvedIdentity, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	if ctx.Identity != "" {
		identity, err := c.FindIdentity(ctx.Identity)
		if err != nil {
			return nil, err
		}
		return &ResolvedIdentity{
			IdentityName:     identity.Name,
			Authority:        AuthorityURL(identity.Authority, identity.Tenant),
			ClientID:         valueOr(identity.ClientID, DefaultClientID),
			ClientSecret:     identity.ClientSecret,
			ClientSecretEnv:  identity.ClientSecretEnv,
			ClientSecretFile: identity.ClientSecretFile,
			GrantType:        identity.GrantType,
			CAFile:           identity.CAFile,
			InsecureSkipTLS:  identity.InsecureSkipTLS,
			ExtraAuthParams:  identity.ExtraAuthParams,
		}, nil
	}
	inline := ctx.Auth
	if inline == nil {
		inline = &InlineIdentity{}
	}
	return &ResolvedIdentity{
		Authority:       AuthorityURL(inline.Authority, inline.Tenant),
		ClientID:        valueOr(inline.ClientID, DefaultClientID),
		ClientSecret:    inline.ClientSecret,
		ClientSecretEnv: inline.ClientSecretEnv,
		GrantType:       inline.GrantType,
		CAFile:          inline.CAFile,
		InsecureSkipTLS: inline.InsecureSkipTLS,
	}, nil
}

// AuthorityURL returns the explicit authority, or the Entra ID v2.0
// authority of tenant.
func AuthorityURL(authority, tenant string) string {
	if authority != "" {
		return strings.TrimRight(authority, "/")
	}
	return fmt.Sprintf("%s/%s/v2.0", DefaultLoginHost, valueOr(tenant, DefaultTenant))
}

func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("config version missing")
	}
	for _, ctx := range c.Contexts {
		if strings.TrimSpace(ctx.Name) == "" {
			return errors.New("context name cannot be empty")
		}
		if strings.TrimSpace(ctx.Site) == "" {
			return fmt.Errorf("context %s site is required", ctx.Name)
		}
		parsed, err := url.Parse(ctx.Site)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("context %s site is not an absolute URL: %s", ctx.Name, ctx.Site)
		}
		if ctx.Identity != "" {
			if _, err := c.FindIdentity(ctx.Identity); err != nil {
				return fmt.Errorf("context %s: %w", ctx.Name, err)
			}
		}
	}
	return nil
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
