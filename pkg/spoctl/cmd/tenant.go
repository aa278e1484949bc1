package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/telekom/spoctl/pkg/spoctl/client"
	"github.com/telekom/spoctl/pkg/spoctl/command"
	"github.com/telekom/spoctl/pkg/spoctl/output"
)

func NewTenantCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant-wide commands; require a connection to the tenant admin site",
	}
	app := &cobra.Command{
		Use:   "app",
		Short: "Manage the tenant app catalog",
	}
	app.AddCommand(newTenantAppListCommand())
	cmd.AddCommand(app)
	return cmd
}

func newTenantAppListCommand() *cobra.Command {
	var (
		page     int
		pageSize int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the apps in the tenant app catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			return runAction(cmd, command.Action{
				Name:  "tenant app list",
				Scope: command.ScopeTenantAdmin,
				Run: func(ctx context.Context, c *client.Client) error {
					progress(rt, "Retrieving apps...")
					apps, err := c.TenantApps().List(ctx)
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
