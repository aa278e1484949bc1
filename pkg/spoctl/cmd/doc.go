// Package cmd implements the cobra command tree of the spoctl CLI: site
// connection, app management on sites and in the tenant app catalog,
// authentication, configuration and shell completion.
package cmd
