package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/spoctl/pkg/spoctl/auth"
	"github.com/telekom/spoctl/pkg/spoctl/config"
	"github.com/telekom/spoctl/pkg/spoctl/site"
)

func NewConnectCommand() *cobra.Command {
	var (
		name      string
		identity  string
		skipLogin bool
	)
	cmd := &cobra.Command{
		Use:   "connect SITE_URL",
		Short: "Connect to a SharePoint Online site",
		Long: `Connect to a SharePoint Online site and make it the current context.

Connect to the tenant admin site (https://<tenant>-admin.sharepoint.com) to
use tenant-scoped commands such as 'spoctl tenant app list'.`,
		Example: `  spoctl connect https://contoso.sharepoint.com
  spoctl connect https://contoso-admin.sharepoint.com --identity automation`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			siteURL, err := site.Normalize(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = contextNameFor(siteURL)
			}
			if identity != "" {
				if _, err := rt.cfg.FindIdentity(identity); err != nil {
					return err
				}
			}

			ctxCfg := config.Context{Name: name, Site: siteURL, Identity: identity, TenantAdmin: rt.tenantAdmin}
			if existing, err := rt.cfg.FindContext(name); err == nil {
				ctxCfg.CAFile = existing.CAFile
				ctxCfg.InsecureSkipTLSVerify = existing.InsecureSkipTLSVerify
				ctxCfg.Auth = existing.Auth
				if identity == "" {
					ctxCfg.Identity = existing.Identity
				}
				ctxCfg.TenantAdmin = rt.tenantAdmin || existing.TenantAdmin
			}

			if !skipLogin && rt.tokenOverride == "" {
				if err := ensureSignedIn(cmd, rt, &ctxCfg); err != nil {
					return err
				}
			}

			ctxCfg.Connected = true
			rt.cfg.UpsertContext(ctxCfg)
			rt.cfg.CurrentContext = name
			if err := rt.saveConfig(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Connected to %s\n", siteURL)
			if site.FromContext(ctxCfg).TenantAdmin {
				_, _ = fmt.Fprintln(rt.Writer(), "Tenant admin site: yes")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Context name (default derived from the site URL)")
	cmd.Flags().StringVar(&identity, "identity", "", "Identity to sign in with")
	cmd.Flags().BoolVar(&skipLogin, "skip-login", false, "Save the connection without signing in")
	return cmd
}

// ensureSignedIn obtains a token for the site, signing in interactively when
// nothing cached can be used.
func ensureSignedIn(cmd *cobra.Command, rt *runtimeState, ctxCfg *config.Context) error {
	provider, err := newProvider(rt, ctxCfg)
	if err != nil {
		return err
	}
	resource, err := site.Resource(ctxCfg.Site)
	if err != nil {
		return err
	}
	_, err = provider.AccessToken(cmd.Context(), resource)
	if err == nil {
		return nil
	}
	if !errors.Is(err, auth.ErrNotAuthenticated) {
		rt.Logger().Debug("cached credentials unusable, signing in again", zap.Error(err))
	}
	if rt.nonInteractive && provider.Config.GrantType != auth.GrantClientCredentials {
		return fmt.Errorf("sign-in required for %s; run 'spoctl auth login' interactively: %w", ctxCfg.Site, err)
	}
	stored, err := provider.Login(cmd.Context(), resource)
	if err != nil {
		return err
	}
	rt.Logger().Debug("signed in", zap.String("resource", resource), zap.Time("expires", stored.Expiry))
	return nil
}

// contextNameFor derives a context name from the host label and the last
// path segment, e.g. contoso-team for https://contoso.sharepoint.com/sites/team.
func contextNameFor(siteURL string) string {
	parsed, err := url.Parse(siteURL)
	if err != nil {
		return "default"
	}
	label, _, _ := strings.Cut(parsed.Hostname(), ".")
	if label == "" {
		label = "default"
	}
	if last := path.Base(strings.TrimRight(parsed.Path, "/")); last != "." && last != "/" && last != "" {
		return label + "-" + last
	}
	return label
}

func NewDisconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect from the current SharePoint Online site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			ctxCfg, err := rt.ResolveContext()
			if errors.Is(err, errNoContext) || (err == nil && !ctxCfg.Connected) {
				_, _ = fmt.Fprintln(rt.Writer(), "Not connected to a SharePoint Online site")
				return nil
			}
			if err != nil {
				return err
			}
			ctxCfg.Connected = false
			if err := rt.saveConfig(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Disconnected from %s\n", ctxCfg.Site)
			return nil
		},
	}
}

type connectionStatus struct {
	Context     string     `json:"context,omitempty" yaml:"context,omitempty"`
	Site        string     `json:"site,omitempty" yaml:"site,omitempty"`
	Connected   bool       `json:"connected" yaml:"connected"`
	TenantAdmin bool       `json:"tenantAdmin" yaml:"tenantAdmin"`
	User        string     `json:"user,omitempty" yaml:"user,omitempty"`
	Expires     *time.Time `json:"expires,omitempty" yaml:"expires,omitempty"`
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			status := connectionStatus{}
			ctxCfg, err := rt.ResolveContext()
			switch {
			case errors.Is(err, errNoContext):
			case err != nil:
				return err
			default:
				s := site.FromContext(*ctxCfg)
				status = connectionStatus{Context: ctxCfg.Name, Site: s.URL, Connected: s.Connected, TenantAdmin: s.TenantAdmin}
				if s.Connected {
					user, expires := cachedIdentity(rt, ctxCfg)
					status.User = user
					if !expires.IsZero() {
						status.Expires = &expires
					}
				}
			}

			format := rt.Format()
			if format.Structured() {
				return writeStructured(rt, status)
			}
			w := rt.Writer()
			if !status.Connected {
				_, _ = fmt.Fprintln(w, "Not connected to a SharePoint Online site")
				return nil
			}
			_, _ = fmt.Fprintf(w, "Connected to %s\n", status.Site)
			_, _ = fmt.Fprintf(w, "Context: %s\n", status.Context)
			if status.TenantAdmin {
				_, _ = fmt.Fprintln(w, "Tenant admin site: yes")
			}
			if status.User != "" {
				_, _ = fmt.Fprintf(w, "Signed in as: %s\n", status.User)
			}
			return nil
		},
	}
}
