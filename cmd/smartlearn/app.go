package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/config"
	"github.com/kalambet/smartlearn/internal/guard"
	"github.com/kalambet/smartlearn/internal/session"
)

// app is what a command needs to talk to the API as the current user.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	sessions *session.Store
	api      *client.Client
	guard    *guard.Guard
}

// newApp builds the dependencies for one command run. Tests replace it.
var newApp = func() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return buildApp(cfg, config.NewTokenStore(config.NewKeychain()), nil, os.Stderr), nil
}

// buildApp wires the session store, the API client and the guard. hc may be
// nil. The guard writes its placeholder and navigation shell to ui.
func buildApp(cfg config.Config, tokens session.TokenStore, hc *http.Client, ui io.Writer) *app {
	logger := slog.Default()
	opts := []client.Option{
		client.WithHTTPClient(hc),
		client.WithTimeout(config.Duration(cfg.API.Timeout, client.DefaultTimeout)),
	}

	// Token checks pass the token explicitly, so the validator needs none.
	validator := client.New(cfg.APIBaseURL(), nil, opts...)
	sessions := session.New(tokens, validator,
		session.WithSafetyTimeout(config.Duration(cfg.Session.SafetyTimeout, session.DefaultSafetyTimeout)),
		session.WithCheckTimeout(config.Duration(cfg.Session.CheckTimeout, session.DefaultCheckTimeout)),
		session.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		api:      client.New(cfg.APIBaseURL(), sessions, opts...),
		guard:    guard.New(sessions, ui),
	}
}

// start settles the session from --launch-url or the stored token.
func (a *app) start(ctx context.Context) {
	stripped := a.sessions.Initialize(ctx, launchURL)
	if launchURL != "" {
		a.logger.Debug("launch URL consumed", "url", stripped)
	}
}

func (a *app) Close() {
	a.sessions.Close()
}

// viewFunc is the body of a protected command.
type viewFunc func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error

// protected runs view behind the guard: a placeholder while the session
// resolves, ErrLoginRequired when nobody is logged in, otherwise the
// navigation shell followed by the view.
func protected(view viewFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmdContext(cmd)
		a.start(ctx)

		return a.guard.Run(ctx, func(ctx context.Context, user *session.User) error {
			err := view(ctx, cmd, a, user, args)
			if client.IsUnauthorized(err) {
				return fmt.Errorf("%w (the server rejected your session: run `smartlearn login` again)", err)
			}
			return err
		})
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
