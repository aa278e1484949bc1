package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/telekom/spoctl/pkg/spoctl/client"
)

// WriteApps prints apps in format. The text format is one "Title<TAB>Id"
// line per app.
func WriteApps(w io.Writer, format Format, query string, apps []client.AppMetadata) error {
	if apps == nil {
		apps = []client.AppMetadata{}
	}
	switch format {
	case FormatText:
		for _, app := range apps {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", app.Title, app.ID); err != nil {
				return err
			}
		}
		return nil
	case FormatTable:
		writeAppTable(w, apps)
		return nil
	case FormatWide:
		writeAppTableWide(w, apps)
		return nil
	default:
		return WriteQuery(w, format, query, apps)
	}
}

// WriteApp prints a single app. Text output lists one property per line.
func WriteApp(w io.Writer, format Format, query string, app *client.AppMetadata) error {
	switch format {
	case FormatText:
		tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
		_, _ = fmt.Fprintf(tw, "Title:\t%s\n", app.Title)
		_, _ = fmt.Fprintf(tw, "Id:\t%s\n", app.ID)
		_, _ = fmt.Fprintf(tw, "Deployed:\t%t\n", app.Deployed)
		_, _ = fmt.Fprintf(tw, "AppCatalogVersion:\t%s\n", dash(app.AppCatalogVersion))
		_, _ = fmt.Fprintf(tw, "InstalledVersion:\t%s\n", dash(app.InstalledVersion))
		_, _ = fmt.Fprintf(tw, "CanUpgrade:\t%t\n", app.CanUpgrade)
		_, _ = fmt.Fprintf(tw, "IsClientSideSolution:\t%t\n", app.IsClientSideSolution)
		return tw.Flush()
	case FormatTable:
		writeAppTable(w, []client.AppMetadata{*app})
		return nil
	case FormatWide:
		writeAppTableWide(w, []client.AppMetadata{*app})
		return nil
	default:
		return WriteQuery(w, format, query, app)
	}
}

func writeAppTable(w io.Writer, apps []client.AppMetadata) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TITLE\tID\tDEPLOYED\tINSTALLED")
	for _, app := range apps {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", app.Title, app.ID, app.Deployed, dash(app.InstalledVersion))
	}
	_ = tw.Flush()
}

func writeAppTableWide(w io.Writer, apps []client.AppMetadata) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TITLE\tID\tDEPLOYED\tCATALOG_VERSION\tINSTALLED\tCAN_UPGRADE\tCLIENT_SIDE")
	for _, app := range apps {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%t\t%t\n",
			app.Title, app.ID, app.Deployed, dash(app.AppCatalogVersion), dash(app.InstalledVersion), app.CanUpgrade, app.IsClientSideSolution)
	}
	_ = tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
