// Package guard gates commands behind an authenticated session.
package guard

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kalambet/smartlearn/internal/session"
)

// PlaceholderText is shown while the session is still resolving.
const PlaceholderText = "Loading your profile..."

// ErrLoginRequired is returned for protected commands when nobody is logged in.
var ErrLoginRequired = errors.New("login required: run `smartlearn login` first")

// Outcome is what a protected command does for a given session status.
type Outcome int

const (
	Placeholder Outcome = iota
	Redirect
	Render
)

func (o Outcome) String() string {
	switch o {
	case Placeholder:
		return "placeholder"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Decide maps a status to exactly one outcome. Unknown statuses redirect.
func Decide(st session.Status) Outcome {
	switch st {
	case session.StatusResolving:
		return Placeholder
	case session.StatusAuthenticated:
		return Render
	default:
		return Redirect
	}
}

// Sessions is the part of session.Store the guard reads.
type Sessions interface {
	Snapshot() session.Session
	Wait(ctx context.Context) (session.Status, error)
}

// View renders a protected page for the authenticated user.
type View func(ctx context.Context, user *session.User) error

type Guard struct {
	sessions Sessions
	out      io.Writer
	shell    *Shell
}

// New returns a guard that writes the placeholder and shell to out.
func New(sessions Sessions, out io.Writer) *Guard {
	return &Guard{sessions: sessions, out: out, shell: DefaultShell()}
}

// WithShell replaces the navigation shell. A nil shell renders views bare.
func (g *Guard) WithShell(s *Shell) *Guard {
	g.shell = s
	return g
}

// Require blocks until the session has settled and returns the user, or
// ErrLoginRequired when nobody is logged in.
func (g *Guard) Require(ctx context.Context) (*session.User, error) {
	shown := false
	for {
		snap := g.sessions.Snapshot()
		switch Decide(snap.Status) {
		case Render:
			if snap.User == nil {
				return nil, ErrLoginRequired
			}
			return snap.User, nil
		case Redirect:
			return nil, ErrLoginRequired
		}

		if !shown {
			fmt.Fprintln(g.out, PlaceholderText)
			shown = true
		}
		if _, err := g.sessions.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// Run renders the shell followed by view once a user is authenticated.
func (g *Guard) Run(ctx context.Context, view View) error {
	user, err := g.Require(ctx)
	if err != nil {
		return err
	}
	if g.shell != nil {
		g.shell.Render(g.out, user)
	}
	return view(ctx, user)
}
