package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/spoctl/pkg/spoctl/auth"
	"github.com/telekom/spoctl/pkg/spoctl/config"
	"github.com/telekom/spoctl/pkg/spoctl/site"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Entra ID",
	}
	cmd.AddCommand(
		newAuthLoginCommand(),
		newAuthStatusCommand(),
		newAuthLogoutCommand(),
	)
	return cmd
}

// authTarget returns the context whose identity the auth commands act on.
func authTarget(rt *runtimeState) (*config.Context, error) {
	if err := rt.EnsureConfigLoaded(); err != nil {
		return nil, err
	}
	ctxCfg, err := rt.ResolveContext()
	if err != nil {
		return nil, err
	}
	return ctxCfg, nil
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in for the current context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctxCfg, err := authTarget(rt)
			if err != nil {
				return err
			}
			provider, err := newProvider(rt, ctxCfg)
			if err != nil {
				return err
			}
			if rt.nonInteractive && provider.Config.GrantType != auth.GrantClientCredentials {
				return errors.New("interactive sign-in is disabled by --non-interactive")
			}
			resource, err := site.Resource(ctxCfg.Site)
			if err != nil {
				return err
			}
			stored, err := provider.Login(cmd.Context(), resource)
			if err != nil {
				return err
			}
			user := ""
			if claims, ok := parseTokenClaims(firstNonEmpty(stored.IDToken, stored.AccessToken)); ok {
				user = claims.User
			}
			if user != "" {
				_, _ = fmt.Fprintf(rt.Writer(), "Authenticated as %s. Token expires at %s\n", user, stored.Expiry.UTC().Format(time.RFC3339))
				return nil
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Authenticated. Token expires at %s\n", stored.Expiry.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

type authStatus struct {
	Identity      string     `json:"identity" yaml:"identity"`
	Authenticated bool       `json:"authenticated" yaml:"authenticated"`
	User          string     `json:"user,omitempty" yaml:"user,omitempty"`
	Tenant        string     `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	Resource      string     `json:"resource,omitempty" yaml:"resource,omitempty"`
	Expires       *time.Time `json:"expires,omitempty" yaml:"expires,omitempty"`
	Refreshable   bool       `json:"refreshable" yaml:"refreshable"`
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctxCfg, err := authTarget(rt)
			if err != nil {
				return err
			}
			resolved, err := rt.cfg.ResolveIdentity(ctxCfg)
			if err != nil {
				return err
			}
			key := identityKey(ctxCfg, resolved)
			manager := auth.TokenManager{CachePath: rt.tokenPath(), StorageMode: rt.TokenStorage()}
			status := authStatus{Identity: key}

			resource, err := site.Resource(ctxCfg.Site)
			if err != nil {
				return err
			}
			stored, ok, err := manager.GetToken(auth.ResourceKey(key, resource))
			if err != nil {
				return err
			}
			if !ok {
				stored, ok, err = manager.GetToken(key)
				if err != nil {
					return err
				}
			}
			if ok {
				status.Authenticated = stored.Fresh() || stored.RefreshToken != "" || resolved.GrantType == auth.GrantClientCredentials
				status.Refreshable = stored.RefreshToken != ""
				status.Resource = stored.Resource
				if !stored.Expiry.IsZero() {
					expires := stored.Expiry.UTC()
					status.Expires = &expires
				}
				if claims, parsed := parseTokenClaims(firstNonEmpty(stored.IDToken, stored.AccessToken)); parsed {
					status.User = claims.User
					status.Tenant = claims.Tenant
				}
			}

			if rt.Format().Structured() {
				return writeStructured(rt, status)
			}
			w := rt.Writer()
			if !status.Authenticated {
				_, _ = fmt.Fprintln(w, "Not authenticated")
				return nil
			}
			if status.User != "" {
				_, _ = fmt.Fprintf(w, "Authenticated as %s\n", status.User)
			} else {
				_, _ = fmt.Fprintln(w, "Authenticated")
			}
			if status.Expires != nil {
				_, _ = fmt.Fprintf(w, "Token expires at %s\n", status.Expires.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove cached tokens of the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			ctxCfg, err := authTarget(rt)
			if err != nil {
				return err
			}
			provider, err := newProvider(rt, ctxCfg)
			if err != nil {
				return err
			}
			removed, err := provider.Logout()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Logged out (%d cached tokens removed)\n", removed)
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
