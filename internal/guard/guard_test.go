package guard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/smartlearn/internal/session"
)

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokens) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memTokens) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

type validatorFunc func(ctx context.Context, token string) (*session.User, error)

func (f validatorFunc) Me(ctx context.Context, token string) (*session.User, error) {
	return f(ctx, token)
}

var ctx = context.Background()

func TestDecide_ExactlyOneOutcome(t *testing.T) {
	tests := []struct {
		status session.Status
		want   Outcome
	}{
		{session.StatusResolving, Placeholder},
		{session.StatusAnonymous, Redirect},
		{session.StatusAuthenticated, Render},
		{session.Status("bogus"), Redirect},
	}
	for _, tt := range tests {
		if got := Decide(tt.status); got != tt.want {
			t.Errorf("Decide(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRequire_Anonymous(t *testing.T) {
	s := session.New(&memTokens{}, validatorFunc(func(context.Context, string) (*session.User, error) {
		t.Error("no token must not trigger a request")
		return nil, nil
	}))
	s.Initialize(ctx, "")

	var out bytes.Buffer
	_, err := New(s, &out).Require(ctx)
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("err = %v, want ErrLoginRequired", err)
	}
	if strings.Contains(out.String(), PlaceholderText) {
		t.Errorf("placeholder printed for an already settled session: %q", out.String())
	}
}

func TestRun_Authenticated(t *testing.T) {
	s := session.New(&memTokens{}, nil)
	if err := s.Login("t", &session.User{ID: "1", Username: "sam"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	var out bytes.Buffer
	called := false
	err := New(s, &out).Run(ctx, func(_ context.Context, u *session.User) error {
		called = true
		if u.Username != "sam" {
			t.Errorf("view got user %q, want sam", u.Username)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !called {
		t.Fatal("view was not rendered")
	}
	got := out.String()
	if !strings.Contains(got, "SmartLearn") || !strings.Contains(got, "sam") {
		t.Errorf("shell missing brand or username: %q", got)
	}
	if !strings.Contains(got, "Tutor (tutor)") {
		t.Errorf("shell missing navigation links: %q", got)
	}
}

func TestRun_ExpiredTokenRedirects(t *testing.T) {
	tokens := &memTokens{token: "expired"}
	s := session.New(tokens, validatorFunc(func(context.Context, string) (*session.User, error) {
		return nil, errors.New("server returned 401: Could not validate credentials")
	}))
	s.Initialize(ctx, "")

	err := New(s, &bytes.Buffer{}).Run(ctx, func(context.Context, *session.User) error {
		t.Error("view rendered for an expired token")
		return nil
	})
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("err = %v, want ErrLoginRequired", err)
	}
	if tokens.token != "" {
		t.Errorf("persisted token = %q, want cleared", tokens.token)
	}
}

func TestRequire_PlaceholderWhileResolving(t *testing.T) {
	release := make(chan struct{})
	s := session.New(&memTokens{token: "abc"}, validatorFunc(func(ctx context.Context, _ string) (*session.User, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &session.User{ID: "1", Username: "Sam"}, nil
	}), session.WithSafetyTimeout(time.Minute), session.WithCheckTimeout(time.Minute))

	go s.Initialize(ctx, "")
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	var out bytes.Buffer
	u, err := New(s, &out).Require(ctx)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if u.Username != "Sam" {
		t.Errorf("username = %q, want Sam", u.Username)
	}
	if strings.Count(out.String(), PlaceholderText) != 1 {
		t.Errorf("placeholder shown %d times, want once: %q", strings.Count(out.String(), PlaceholderText), out.String())
	}
}

func TestRequire_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	s := session.New(&memTokens{token: "abc"}, validatorFunc(func(ctx context.Context, _ string) (*session.User, error) {
		<-release
		return nil, errors.New("closed")
	}), session.WithSafetyTimeout(time.Minute), session.WithCheckTimeout(time.Minute))

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if _, err := New(s, &bytes.Buffer{}).Require(cctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestRun_NoShell(t *testing.T) {
	s := session.New(&memTokens{}, nil)
	s.Login("t", &session.User{ID: "1", Username: "sam"})

	var out bytes.Buffer
	g := New(s, &out).WithShell(nil)
	if err := g.Run(ctx, func(context.Context, *session.User) error { return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}
