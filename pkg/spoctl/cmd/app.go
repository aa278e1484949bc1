package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/spoctl/pkg/spoctl/client"
	"github.com/telekom/spoctl/pkg/spoctl/command"
	"github.com/telekom/spoctl/pkg/spoctl/output"
	"github.com/telekom/spoctl/pkg/spoctl/site"
)

func NewAppCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Manage apps on the connected site",
		Long: `Manage tenant app catalog apps on the connected site.

Before using these commands, connect to a SharePoint Online site using
'spoctl connect'.`,
	}
	cmd.AddCommand(
		newAppListCommand(),
		newAppGetCommand(),
		newAppInstallCommand(),
		newAppUninstallCommand(),
		newAppUpgradeCommand(),
	)
	return cmd
}

func newAppListCommand() *cobra.Command {
	var (
		page     int
		pageSize int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the apps available to the site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runAction(cmd, command.Action{
				Name:  "app list",
				Scope: command.ScopeSite,
				Run: func(ctx context.Context, c *client.Client) error {
					progress(rt, "Retrieving apps...")
					apps, err := c.Apps().List(ctx)
					if err != nil {
						return err
					}
					apps, footer := paginate(apps, page, pageSize, all)
					if err := output.WriteApps(rt.Writer(), rt.Format(), rt.query, apps); err != nil {
						return err
					}
					if footer != "" {
						progress(rt, footer)
					}
					return nil
				},
			})
		},
	}
	addPaginationFlags(cmd, &page, &pageSize, &all)
	return cmd
}

func newAppGetCommand() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "get [ID]",
		Short: "Show an app available to the site",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			appID, err := resolveAppID(id, args)
			if err != nil {
				return err
			}
			return runAction(cmd, command.Action{
				Name:  "app get",
				Scope: command.ScopeSite,
				Run: func(ctx context.Context, c *client.Client) error {
					progress(rt, "Retrieving app...", zap.String("id", appID))
					app, err := c.Apps().Get(ctx, appID)
					if err != nil {
						return err
					}
					return output.WriteApp(rt.Writer(), rt.Format(), rt.query, app)
				},
			})
		},
	}
	addIdentityFlag(cmd, &id, "get")
	return cmd
}

func newAppInstallCommand() *cobra.Command {
	return newAppActionCommand("install", "Install an app from the tenant app catalog on the site",
		"Installing app...", "App installed",
		func(a *client.AppService) func(context.Context, string) error { return a.Install })
}

func newAppUpgradeCommand() *cobra.Command {
	return newAppActionCommand("upgrade", "Upgrade an app installed on the site",
		"Upgrading app...", "App upgraded",
		func(a *client.AppService) func(context.Context, string) error { return a.Upgrade })
}

func newAppActionCommand(verb, short, inProgress, done string, pick func(*client.AppService) func(context.Context, string) error) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   verb + " [ID]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			appID, err := resolveAppID(id, args)
			if err != nil {
				return err
			}
			return runAction(cmd, command.Action{
				Name:  "app " + verb,
				Scope: command.ScopeSite,
				Run: func(ctx context.Context, c *client.Client) error {
					progress(rt, inProgress, zap.String("id", appID))
					if err := pick(c.Apps())(ctx, appID); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(rt.Writer(), rt.outStyles.Success(done))
					return nil
				},
			})
		},
	}
	addIdentityFlag(cmd, &id, verb)
	return cmd
}

func newAppUninstallCommand() *cobra.Command {
	var (
		id      string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:     "uninstall [ID]",
		Short:   "Uninstall an app from the site",
		Example: "  spoctl app uninstall --identity 058140e3-0e37-44fc-a1d3-79c487d371a3",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			appID, err := resolveAppID(id, args)
			if err != nil {
				return err
			}
			if !confirm && rt.nonInteractive {
				return fmt.Errorf("refusing to uninstall app %s without --confirm in non-interactive mode", appID)
			}
			return runAction(cmd, command.Action{
				Name:  "app uninstall",
				Scope: command.ScopeSite,
				Confirm: func(s site.Site) (bool, error) {
					if confirm || !isTerminal(rt) {
						return true, nil
					}
					ok, err := confirmPrompt(fmt.Sprintf("Are you sure you want to uninstall the app %s from %s?", appID, s.URL))
					if err != nil {
						return false, fmt.Errorf("confirmation failed: %w", err)
					}
					if !ok {
						_, _ = fmt.Fprintln(rt.Writer(), rt.outStyles.Warning("Uninstall cancelled"))
					}
					return ok, nil
				},
				Run: func(ctx context.Context, c *client.Client) error {
					progress(rt, "Uninstalling app...", zap.String("id", appID))
					if err := c.Apps().Uninstall(ctx, appID); err != nil {
						return err
					}
					_, _ = fmt.Fprintln(rt.Writer(), rt.outStyles.Success("App uninstalled"))
					return nil
				},
			})
		},
	}
	addIdentityFlag(cmd, &id, "uninstall")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Don't prompt for confirmation")
	return cmd
}

// isTerminal reports whether a prompt can be shown: stdin and the output
// writer are both terminals.
var isTerminal = func(rt *runtimeState) bool {
	out, ok := rt.Writer().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(out.Fd())
}

// confirmPrompt asks a yes/no question on the terminal.
var confirmPrompt = func(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

func addIdentityFlag(cmd *cobra.Command, id *string, verb string) {
	cmd.Flags().StringVarP(id, "identity", "i", "", fmt.Sprintf("The id of the app to %s", verb))
}

func addPaginationFlags(cmd *cobra.Command, page, pageSize *int, all *bool) {
	cmd.Flags().IntVar(page, "page", 1, "Page number")
	cmd.Flags().IntVar(pageSize, "page-size", 0, "Items per page (0 shows all)")
	cmd.Flags().BoolVar(all, "all", false, "Show all items")
}

func resolveAppID(flag string, args []string) (string, error) {
	switch {
	case flag != "" && len(args) > 0 && args[0] != flag:
		return "", fmt.Errorf("app id given twice: %s and %s", flag, args[0])
	case flag != "":
		return flag, nil
	case len(args) > 0:
		return args[0], nil
	default:
		return "", errors.New("app id is required; pass it as argument or with --identity")
	}
}
