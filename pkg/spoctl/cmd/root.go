package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/spoctl/pkg/spoctl/config"
	"github.com/telekom/spoctl/pkg/spoctl/logging"
	"github.com/telekom/spoctl/pkg/spoctl/output"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	ErrorWriter  io.Writer
}

type runtimeState struct {
	configPath           string
	cfg                  *config.Config
	contextOverride      string
	outputFormat         string
	query                string
	siteOverride         string
	tokenOverride        string
	tenantAdmin          bool
	tokenStorageOverride string
	nonInteractive       bool
	verbose              bool
	writer               io.Writer
	errWriter            io.Writer
	log                  *zap.Logger
	styles               *output.Styles
	outStyles            *output.Styles
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
		ErrorWriter:  os.Stderr,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter, errWriter: cfg.ErrorWriter}

	root := &cobra.Command{
		Use:           "spoctl",
		Short:         "Manage SharePoint Online sites and apps",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.contextOverride == "" {
				rt.contextOverride = os.Getenv("SPOCTL_CONTEXT")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("SPOCTL_OUTPUT")
			}
			if rt.query == "" {
				rt.query = os.Getenv("SPOCTL_QUERY")
			}
			if rt.siteOverride == "" {
				rt.siteOverride = os.Getenv("SPOCTL_SITE")
			}
			if rt.tokenOverride == "" {
				rt.tokenOverride = os.Getenv("SPOCTL_TOKEN")
			}
			if rt.tokenStorageOverride == "" {
				rt.tokenStorageOverride = os.Getenv("SPOCTL_TOKEN_STORAGE")
			}
			if !rt.tenantAdmin {
				rt.tenantAdmin = strings.EqualFold(os.Getenv("SPOCTL_TENANT_ADMIN"), "true")
			}
			if !rt.nonInteractive {
				rt.nonInteractive = strings.EqualFold(os.Getenv("SPOCTL_NON_INTERACTIVE"), "true")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("SPOCTL_VERBOSE"), "true")
			}
			rt.log = logging.New(rt.ErrWriter(), rt.verbose)

			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			// A site and token on the command line need no config file.
			if rt.siteOverride != "" && rt.tokenOverride != "" {
				def := config.DefaultConfig()
				rt.cfg = &def
			} else {
				cfg, err := config.LoadOrDefault(rt.configPath)
				if err != nil {
					return err
				}
				rt.cfg = cfg
			}
			if _, err := output.ParseFormat(rt.OutputFormat()); err != nil {
				return err
			}
			mode, err := output.ParseColorMode(rt.cfg.Settings.Color)
			if err != nil {
				return err
			}
			rt.styles = output.NewStyles(rt.ErrWriter(), mode)
			rt.outStyles = output.NewStyles(rt.Writer(), mode)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.contextOverride, "context", "c", "", "Context name override")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, table, wide, json, yaml")
	root.PersistentFlags().StringVar(&rt.query, "query", "", "JMESPath query applied to json and yaml output")
	root.PersistentFlags().StringVar(&rt.siteOverride, "site", "", "Site URL override (bypass config)")
	root.PersistentFlags().StringVar(&rt.tokenOverride, "token", "", "Bearer token override")
	root.PersistentFlags().BoolVar(&rt.tenantAdmin, "tenant-admin", false, "Treat the site override as the tenant admin site")
	root.PersistentFlags().StringVar(&rt.tokenStorageOverride, "token-storage", "", "Token storage backend: keychain or file")
	root.PersistentFlags().BoolVar(&rt.nonInteractive, "non-interactive", false, "Fail instead of prompting")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Log requests and responses to stderr")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewConnectCommand(),
		NewDisconnectCommand(),
		NewStatusCommand(),
		NewAppCommand(),
		NewTenantCommand(),
		NewAuthCommand(),
		NewConfigCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) ResolveContextName() string {
	if rt.contextOverride != "" {
		return rt.contextOverride
	}
	if rt.cfg != nil {
		return rt.cfg.CurrentContextOrDefault()
	}
	return ""
}

func (rt *runtimeState) OutputFormat() string {
	if rt.outputFormat != "" {
		return rt.outputFormat
	}
	if rt.cfg != nil && rt.cfg.Settings.OutputFormat != "" {
		return rt.cfg.Settings.OutputFormat
	}
	return string(output.FormatText)
}

func (rt *runtimeState) Format() output.Format {
	format, err := output.ParseFormat(rt.OutputFormat())
	if err != nil {
		return output.FormatText
	}
	return format
}

func (rt *runtimeState) TokenStorage() string {
	if rt.tokenStorageOverride != "" {
		return rt.tokenStorageOverride
	}
	if rt.cfg != nil && rt.cfg.Settings.TokenStorage != "" {
		return rt.cfg.Settings.TokenStorage
	}
	return ""
}

// Timeout returns the configured request timeout, or zero for the client
// default.
func (rt *runtimeState) Timeout() (time.Duration, error) {
	if rt.cfg == nil || rt.cfg.Settings.Timeout == "" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(rt.cfg.Settings.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid settings.timeout %q: %w", rt.cfg.Settings.Timeout, err)
	}
	return timeout, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) ErrWriter() io.Writer {
	if rt.errWriter != nil {
		return rt.errWriter
	}
	return os.Stderr
}

func (rt *runtimeState) Logger() *zap.Logger {
	if rt.log == nil {
		rt.log = logging.New(rt.ErrWriter(), rt.verbose)
	}
	return rt.log
}

func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	cfg, err := config.LoadOrDefault(rt.configPathValue())
	if err != nil {
		return err
	}
	rt.cfg = cfg
	return nil
}

func (rt *runtimeState) ResolveContext() (*config.Context, error) {
	if rt.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	name := rt.ResolveContextName()
	if name == "" {
		return nil, errNoContext
	}
	return rt.cfg.FindContext(name)
}

var errNoContext = errors.New("no context configured; run 'spoctl connect SITE_URL'")

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

// tokenPath keeps the token cache next to the config file in use.
func (rt *runtimeState) tokenPath() string {
	if env := os.Getenv("SPOCTL_TOKEN_CACHE"); env != "" {
		return env
	}
	if rt.configPath != "" {
		return filepath.Join(filepath.Dir(rt.configPath), "tokens.json")
	}
	return config.DefaultTokenPath()
}

func (rt *runtimeState) saveConfig() error {
	return config.Save(rt.configPathValue(), rt.cfg)
}

func writeStructured(rt *runtimeState, obj any) error {
	return output.WriteQuery(rt.Writer(), rt.Format(), rt.query, obj)
}
