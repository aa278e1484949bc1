package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/telekom/spoctl/pkg/spoctl/auth"
	"github.com/telekom/spoctl/pkg/spoctl/config"
	"github.com/telekom/spoctl/pkg/spoctl/output"
	"github.com/telekom/spoctl/pkg/spoctl/site"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage spoctl configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
		newConfigContextsCommand(),
		newConfigCurrentContextCommand(),
		newConfigUseContextCommand(),
		newConfigSetValueCommand(),
		newConfigDeleteContextCommand(),
		newConfigAddIdentityCommand(),
		newConfigGetIdentitiesCommand(),
		newConfigDeleteIdentityCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		contextName string
		siteURL     string
		identity    string
		tenant      string
		clientID    string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a spoctl config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			if siteURL != "" {
				normalized, err := site.Normalize(siteURL)
				if err != nil {
					return err
				}
				if contextName == "" {
					contextName = contextNameFor(normalized)
				}
				ctx := config.Context{Name: contextName, Site: normalized}
				if identity != "" {
					cfg.Identities = append(cfg.Identities, config.Identity{
						Name:     identity,
						Tenant:   tenant,
						ClientID: clientID,
					})
					ctx.Identity = identity
				} else if tenant != "" || clientID != "" {
					ctx.Auth = &config.InlineIdentity{Tenant: tenant, ClientID: clientID}
				}
				cfg.Contexts = append(cfg.Contexts, ctx)
				cfg.CurrentContext = contextName
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&contextName, "name", "", "Context name (default derived from the site URL)")
	cmd.Flags().StringVar(&siteURL, "site", "", "SharePoint Online site URL")
	cmd.Flags().StringVar(&identity, "identity", "", "Create a named identity for the context")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Entra ID tenant (id or domain)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Entra ID application (client) id")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			redacted := redactSecrets(*rt.cfg)
			format := rt.Format()
			if !format.Structured() {
				format = output.FormatYAML
			}
			return output.WriteQuery(rt.Writer(), format, rt.query, redacted)
		},
	}
}

// redactSecrets hides literal client secrets from printed configuration.
func redactSecrets(cfg config.Config) config.Config {
	identities := make([]config.Identity, len(cfg.Identities))
	copy(identities, cfg.Identities)
	for i := range identities {
		if identities[i].ClientSecret != "" {
			identities[i].ClientSecret = "REDACTED"
		}
	}
	cfg.Identities = identities

	contexts := make([]config.Context, len(cfg.Contexts))
	copy(contexts, cfg.Contexts)
	for i := range contexts {
		if contexts[i].Auth != nil && contexts[i].Auth.ClientSecret != "" {
			inline := *contexts[i].Auth
			inline.ClientSecret = "REDACTED"
			contexts[i].Auth = &inline
		}
	}
	cfg.Contexts = contexts
	return cfg
}

func newConfigContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-contexts",
		Short: "List configured contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			current := rt.cfg.CurrentContext
			tw := tabwriter.NewWriter(rt.Writer(), 2, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "CURRENT\tNAME\tSITE\tIDENTITY\tCONNECTED")
			for _, ctx := range rt.cfg.Contexts {
				marker := ""
				if ctx.Name == current {
					marker = "*"
				}
				identity := ctx.Identity
				if identity == "" {
					identity = "-"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", marker, ctx.Name, ctx.Site, identity, ctx.Connected)
			}
			return tw.Flush()
		},
	}
}

func newConfigUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "use-context NAME",
		Aliases:           []string{"use", "set-context"},
		Short:             "Set the current context",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeContextNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			name := args[0]
			if _, err := rt.cfg.FindContext(name); err != nil {
				return err
			}
			rt.cfg.CurrentContext = name
			if err := rt.saveConfig(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Switched to context %s\n", name)
			return nil
		},
	}
}

func newConfigCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Show the current context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), rt.cfg.CurrentContext)
			return nil
		},
	}
}

func newConfigSetValueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value. Supported keys:
  settings.output-format   text, table, wide, json or yaml
  settings.color           auto, always or never
  settings.timeout         request timeout, e.g. 30s
  settings.token-storage   file or keychain`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			key, value := args[0], args[1]
			switch key {
			case "settings.output-format":
				format, err := output.ParseFormat(value)
				if err != nil {
					return err
				}
				rt.cfg.Settings.OutputFormat = string(format)
			case "settings.color":
				mode, err := output.ParseColorMode(value)
				if err != nil {
					return err
				}
				rt.cfg.Settings.Color = mode
			case "settings.timeout":
				if _, err := time.ParseDuration(value); err != nil {
					return fmt.Errorf("invalid timeout: %s", value)
				}
				rt.cfg.Settings.Timeout = value
			case "settings.token-storage":
				if value != "file" && value != "keychain" {
					return fmt.Errorf("invalid token storage: %s (expected file or keychain)", value)
				}
				rt.cfg.Settings.TokenStorage = value
			default:
				return fmt.Errorf("unsupported key: %s", key)
			}
			return rt.saveConfig()
		},
	}
}

func newConfigDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete-context NAME",
		Short:             "Delete a context",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeContextNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			name := args[0]
			contexts := rt.cfg.Contexts
			filtered := contexts[:0]
			found := false
			for _, ctx := range contexts {
				if ctx.Name == name {
					found = true
					continue
				}
				filtered = append(filtered, ctx)
			}
			if !found {
				return fmt.Errorf("context not found: %s", name)
			}
			rt.cfg.Contexts = filtered
			if rt.cfg.CurrentContext == name {
				rt.cfg.CurrentContext = ""
			}
			if err := rt.saveConfig(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Deleted context %s\n", name)
			return nil
		},
	}
}

func newConfigAddIdentityCommand() *cobra.Command {
	var (
		tenant           string
		authority        string
		clientID         string
		clientSecret     string
		clientSecretEnv  string
		clientSecretFile string
		grantType        string
		caFile           string
	)
	cmd := &cobra.Command{
		Use:   "add-identity NAME",
		Short: "Add a reusable Entra ID identity",
		Example: `  spoctl config add-identity automation --tenant contoso.onmicrosoft.com \
    --client-id 00000000-0000-0000-0000-000000000000 \
    --client-secret-env SPOCTL_CLIENT_SECRET --grant-type client-credentials`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			name := args[0]
			if _, err := rt.cfg.FindIdentity(name); err == nil {
				return fmt.Errorf("identity already exists: %s", name)
			}
			switch grantType {
			case "", auth.GrantDeviceCode, auth.GrantAuthorizationCode, auth.GrantClientCredentials:
			default:
				return fmt.Errorf("unsupported grant type: %s", grantType)
			}
			if grantType == auth.GrantClientCredentials && clientSecret == "" && clientSecretEnv == "" && clientSecretFile == "" {
				return fmt.Errorf("grant type %s requires --client-secret, --client-secret-env or --client-secret-file", grantType)
			}
			rt.cfg.Identities = append(rt.cfg.Identities, config.Identity{
				Name:             name,
				Tenant:           tenant,
				Authority:        authority,
				ClientID:         clientID,
				ClientSecret:     clientSecret,
				ClientSecretEnv:  clientSecretEnv,
				ClientSecretFile: clientSecretFile,
				GrantType:        grantType,
				CAFile:           caFile,
			})
			if err := rt.saveConfig(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Added identity %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenant, "tenant", "", "Entra ID tenant (id or domain)")
	cmd.Flags().StringVar(&authority, "authority", "", "Authority URL (overrides --tenant)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Application (client) id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Client secret")
	cmd.Flags().StringVar(&clientSecretEnv, "client-secret-env", "", "Environment variable holding the client secret")
	cmd.Flags().StringVar(&clientSecretFile, "client-secret-file", "", "File holding the client secret")
	cmd.Flags().StringVar(&grantType, "grant-type", auth.GrantDeviceCode, "Grant type: device-code, authorization-code or client-credentials")
	cmd.Flags().StringVar(&caFile, "ca-file", "", "CA file")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}

func newConfigGetIdentitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-identities",
		Short: "List configured identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(rt.Writer(), 2, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tAUTHORITY\tCLIENT_ID\tGRANT_TYPE")
			for _, id := range rt.cfg.Identities {
				grant := id.GrantType
				if grant == "" {
					grant = auth.GrantDeviceCode
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id.Name, config.AuthorityURL(id.Authority, id.Tenant), id.ClientID, grant)
			}
			return tw.Flush()
		},
	}
}

func newConfigDeleteIdentityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-identity NAME",
		Short: "Delete an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			name := args[0]
			for _, ctx := range rt.cfg.Contexts {
				if ctx.Identity == name {
					return fmt.Errorf("identity %s still referenced by context %s", name, ctx.Name)
				}
			}
			identities := rt.cfg.Identities
			filtered := identities[:0]
			found := false
			for _, id := range identities {
				if id.Name == name {
					found = true
					continue
				}
				filtered = append(filtered, id)
			}
			if !found {
				return fmt.Errorf("identity not found: %s", name)
			}
			rt.cfg.Identities = filtered
			if err := rt.saveConfig(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Deleted identity %s\n", name)
			return nil
		},
	}
}
