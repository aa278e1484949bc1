package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/spoctl/pkg/spoctl/auth"
	"github.com/telekom/spoctl/pkg/spoctl/client"
	"github.com/telekom/spoctl/pkg/spoctl/command"
	"github.com/telekom/spoctl/pkg/spoctl/config"
	"github.com/telekom/spoctl/pkg/spoctl/site"
	"github.com/telekom/spoctl/pkg/version"
)

// buildEnv resolves the site, token source and client options of the
// invocation. A missing context is not an error: the command reports that
// no site is connected.
func buildEnv(rt *runtimeState) (command.Env, error) {
	env := command.Env{
		Out:    rt.Writer(),
		ErrOut: rt.ErrWriter(),
		Styles: rt.styles,
		Log:    rt.Logger(),
	}

	var ctxCfg *config.Context
	if rt.siteOverride != "" {
		url, err := site.Normalize(rt.siteOverride)
		if err != nil {
			return env, err
		}
		env.Site = site.Site{URL: url, Connected: true, TenantAdmin: rt.tenantAdmin || site.IsTenantAdminURL(url)}
		if rt.tokenOverride == "" {
			// Tokens still come from the configured identity of the context.
			ctxCfg, _ = rt.ResolveContext()
		}
	} else {
		if err := rt.EnsureConfigLoaded(); err != nil {
			return env, err
		}
		resolved, err := rt.ResolveContext()
		switch {
		case errors.Is(err, errNoContext):
		case err != nil:
			return env, err
		default:
			ctxCfg = resolved
			env.Site = site.FromContext(*resolved)
		}
	}

	if rt.tokenOverride != "" {
		env.Tokens = auth.StaticProvider(rt.tokenOverride)
	} else {
		provider, err := newProvider(rt, ctxCfg)
		if err != nil {
			return env, err
		}
		env.Tokens = provider
	}

	opts, err := clientOptions(rt, ctxCfg)
	if err != nil {
		return env, err
	}
	env.ClientOptions = opts
	return env, nil
}

func clientOptions(rt *runtimeState, ctxCfg *config.Context) ([]client.Option, error) {
	options := []client.Option{
		client.WithUserAgent(version.UserAgent()),
		client.WithRateLimiter(client.NewRateLimiter(client.DefaultRateLimit)),
	}
	timeout, err := rt.Timeout()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		options = append(options, client.WithTimeout(timeout))
	}
	caFile, insecure := "", false
	if ctxCfg != nil {
		caFile, insecure = ctxCfg.CAFile, ctxCfg.InsecureSkipTLSVerify
	}
	options = append(options, client.WithTLSConfig(caFile, insecure))
	return options, nil
}

// newProvider builds the token provider of ctxCfg's identity. Without a
// context the built-in multi-tenant identity is used.
func newProvider(rt *runtimeState, ctxCfg *config.Context) (*auth.Provider, error) {
	if ctxCfg == nil {
		ctxCfg = &config.Context{}
	}
	resolved, err := rt.cfg.ResolveIdentity(ctxCfg)
	if err != nil {
		return nil, err
	}
	secret, err := auth.ResolveClientSecret(resolved.ClientSecret, resolved.ClientSecretEnv, resolved.ClientSecretFile)
	if err != nil {
		return nil, err
	}
	log := rt.Logger()
	return &auth.Provider{
		Manager: &auth.TokenManager{CachePath: rt.tokenPath(), StorageMode: rt.TokenStorage()},
		Key:     identityKey(ctxCfg, resolved),
		Config: auth.OIDCConfig{
			Authority:       resolved.Authority,
			ClientID:        resolved.ClientID,
			ClientSecret:    secret,
			GrantType:       resolved.GrantType,
			CAFile:          resolved.CAFile,
			InsecureSkipTLS: resolved.InsecureSkipTLS,
			ExtraAuthParams: resolved.ExtraAuthParams,
			Prompt:          rt.ErrWriter(),
		},
		OnEvent: func(msg string, keysAndValues ...any) {
			log.Sugar().Debugw(msg, keysAndValues...)
		},
	}, nil
}

// identityKey names the token cache entries of an identity. Contexts with an
// inline identity get their own entries.
func identityKey(ctxCfg *config.Context, resolved *config.ResolvedIdentity) string {
	if resolved != nil && resolved.IdentityName != "" {
		return resolved.IdentityName
	}
	if ctxCfg != nil && ctxCfg.Name != "" {
		return "inline:" + ctxCfg.Name
	}
	return "default"
}

// runAction executes action through the shared request chain.
func runAction(cmd *cobra.Command, action command.Action) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	env, err := buildEnv(rt)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return command.Execute(ctx, env, action, func() {
		_ = rt.Logger().Sync()
	})
}

func progress(rt *runtimeState, msg string, fields ...zap.Field) {
	rt.Logger().Info(msg, fields...)
}
