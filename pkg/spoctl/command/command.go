// Package command runs a SharePoint action through the fixed chain shared by
// every spoctl command: connection checks, access token, client, action.
// The form digest is fetched by the client as part of the action.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/telekom/spoctl/pkg/spoctl/client"
	"github.com/telekom/spoctl/pkg/spoctl/output"
	"github.com/telekom/spoctl/pkg/spoctl/site"
)

type Scope int

const (
	// ScopeSite actions run against any connected site.
	ScopeSite Scope = iota
	// ScopeTenantAdmin actions require a connection to the tenant admin site.
	ScopeTenantAdmin
)

// TokenProvider returns an access token for a SharePoint resource.
type TokenProvider interface {
	AccessToken(ctx context.Context, resource string) (string, error)
}

type Action struct {
	Name  string
	Scope Scope
	// Confirm, when set, runs once the connection checks pass and before a
	// token is requested. Returning false stops the action without an error.
	Confirm func(s site.Site) (bool, error)
	Run     func(ctx context.Context, c *client.Client) error
}

type Env struct {
	Site          site.Site
	Tokens        TokenProvider
	ClientOptions []client.Option
	// Out receives command results and precondition messages.
	Out io.Writer
	// ErrOut receives the error line of a failed command.
	ErrOut io.Writer
	Styles *output.Styles
	Log    *zap.Logger
}

const (
	msgConnectSite        = "Connect to a SharePoint Online site first"
	msgConnectTenantAdmin = "Connect to a SharePoint Online tenant admin site first"
)

// ReportedError is returned for failures whose error line has already been
// written.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string {
	return e.Err.Error()
}

func (e *ReportedError) Unwrap() error {
	return e.Err
}

// Execute runs action against env.Site. done is invoked exactly once on every
// path, including a panicking action. Unmet connection preconditions print a
// message and return nil; every other failure prints "Error: <message>" and
// returns a *ReportedError.
func Execute(ctx context.Context, env Env, action Action, done func()) (err error) {
	env = env.withDefaults()
	defer func() {
		if r := recover(); r != nil {
			err = env.fail(fmt.Errorf("%s failed unexpectedly: %v", action.Name, r))
		}
		if done != nil {
			done()
		}
	}()

	if !env.Site.Connected {
		msg := msgConnectSite
		if action.Scope == ScopeTenantAdmin {
			msg = msgConnectTenantAdmin
		}
		_, _ = fmt.Fprintln(env.Out, msg)
		return nil
	}
	if action.Scope == ScopeTenantAdmin && !env.Site.TenantAdmin {
		_, _ = fmt.Fprintf(env.Out, "%s is not a tenant admin site. Connect to your tenant admin site and try again\n", env.Site.URL)
		return nil
	}
	if action.Run == nil {
		return env.fail(fmt.Errorf("%s has no action", action.Name))
	}
	if action.Confirm != nil {
		ok, err := action.Confirm(env.Site)
		if err != nil {
			return env.fail(err)
		}
		if !ok {
			return nil
		}
	}
	if env.Tokens == nil {
		return env.fail(errors.New("no token provider configured"))
	}

	resource, err := site.Resource(env.Site.URL)
	if err != nil {
		return env.fail(err)
	}
	token, err := env.Tokens.AccessToken(ctx, resource)
	if err != nil {
		return env.fail(err)
	}
	env.Log.Debug("Retrieved access token", zap.String("command", action.Name), zap.String("resource", resource))

	opts := append([]client.Option{
		client.WithSite(env.Site.URL),
		client.WithToken(token),
		client.WithLogger(env.Log),
	}, env.ClientOptions...)
	c, err := client.New(opts...)
	if err != nil {
		return env.fail(err)
	}
	if err := action.Run(ctx, c); err != nil {
		return env.fail(err)
	}
	return nil
}

func (e Env) withDefaults() Env {
	if e.Out == nil {
		e.Out = io.Discard
	}
	if e.ErrOut == nil {
		e.ErrOut = e.Out
	}
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	return e
}

func (e Env) fail(err error) error {
	output.WriteError(e.ErrOut, e.Styles, err)
	return &ReportedError{Err: err}
}
