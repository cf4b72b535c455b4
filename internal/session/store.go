package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

const (
	DefaultSafetyTimeout = 3 * time.Second
	DefaultCheckTimeout  = 4 * time.Second

	// TokenParam is the launch-URL query parameter OAuth callbacks use to
	// hand over a token.
	TokenParam = "token"
)

var (
	ErrClosed        = errors.New("session: store is closed")
	errEmptyUser     = errors.New("session: server returned no user")
	errMissingCreds  = errors.New("session: login requires a token and a user")
	errSafetyTimeout = errors.New("session: safety timeout")
)

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Validator performs the "who am I" request for a token.
type Validator interface {
	Me(ctx context.Context, token string) (*User, error)
}

// Option configures a Store.
type Option func(*Store)

// WithSafetyTimeout bounds how long Resolve waits before giving up on the
// validation request.
func WithSafetyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.safetyTimeout = d
		}
	}
}

// WithCheckTimeout bounds the validation request itself.
func WithCheckTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.checkTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// Store is the single source of truth for the current session. It is safe
// for concurrent use.
type Store struct {
	tokens        TokenStore
	validator     Validator
	safetyTimeout time.Duration
	checkTimeout  time.Duration
	log           *slog.Logger

	mu      sync.Mutex
	token   string
	user    *User
	status  Status
	gen     uint64
	closed  bool
	changed chan struct{}

	pending sync.WaitGroup
}

// New creates a Store in StatusResolving. Call Initialize to settle it.
func New(tokens TokenStore, validator Validator, opts ...Option) *Store {
	s := &Store{
		tokens:        tokens,
		validator:     validator,
		safetyTimeout: DefaultSafetyTimeout,
		checkTimeout:  DefaultCheckTimeout,
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		status:        StatusResolving,
		changed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize picks the startup token and resolves the session.
//
// A token in launchURL's query wins: it is persisted and the returned URL has
// the parameter removed so it can be shown or bookmarked without leaking the
// credential. Otherwise the persisted token is used. With no token at all the
// session becomes anonymous without touching the network.
func (s *Store) Initialize(ctx context.Context, launchURL string) string {
	token, stripped := splitLaunchToken(launchURL)
	if token != "" {
		s.log.Debug("session: token taken from launch URL")
		if err := s.tokens.Save(token); err != nil {
			s.log.Warn("session: could not persist launch token", "error", err)
		}
	} else {
		persisted, err := s.tokens.Load()
		if err != nil {
			s.log.Warn("session: could not read persisted token", "error", err)
		}
		token = persisted
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.Resolve(ctx)
	return stripped
}

// Resolve validates the active token with one request and blocks until the
// request settles or the safety timeout fires, whichever comes first.
//
// When the timeout wins the session is reported anonymous but the request is
// left running; its result is still applied later if no Login, Logout,
// Resolve or Close happened in the meantime.
func (s *Store) Resolve(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	token := s.token
	s.user = nil
	if token == "" {
		s.setStatusLocked(StatusAnonymous)
		s.mu.Unlock()
		s.log.Debug("session: no token, unlocking")
		return
	}
	s.setStatusLocked(StatusResolving)
	s.pending.Add(1)
	s.mu.Unlock()

	s.log.Debug("session: checking token")

	done := make(chan struct{})
	go func() {
		defer s.pending.Done()
		defer close(done)

		reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.checkTimeout)
		defer cancel()

		user, err := s.validator.Me(reqCtx, token)
		if err == nil && user == nil {
			err = errEmptyUser
		}
		s.settle(gen, user, err)
	}()

	timer := time.NewTimer(s.safetyTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.expire(gen, errSafetyTimeout)
	case <-ctx.Done():
		s.expire(gen, ctx.Err())
	}
}

func (s *Store) settle(gen uint64, user *User, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		s.log.Debug("session: discarding stale token check", "generation", gen)
		return
	}
	if err != nil {
		s.log.Warn("session: auth check failed", "error", err)
		if clearErr := s.logoutLocked(); clearErr != nil {
			s.log.Warn("session: could not clear persisted token", "error", clearErr)
		}
		return
	}

	s.user = user
	s.setStatusLocked(StatusAuthenticated)
	s.log.Debug("session: user verified", "username", user.Username)
}

func (s *Store) expire(gen uint64, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen || s.status != StatusResolving {
		return
	}
	s.setStatusLocked(StatusAnonymous)
	s.log.Warn("session: API taking too long, no longer waiting", "reason", reason)
}

// Login installs a token and user obtained from a prior login or signup call
// and persists the token. No request is made.
func (s *Store) Login(token string, user *User) error {
	if token == "" || user == nil {
		return errMissingCreds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.tokens.Save(token); err != nil {
		return err
	}

	u := *user
	s.gen++
	s.token = token
	s.user = &u
	s.setStatusLocked(StatusAuthenticated)
	return nil
}

// Logout clears the token, the user and the persisted token. The in-memory
// session is cleared even when removing the persisted token fails.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutLocked()
}

func (s *Store) logoutLocked() error {
	s.gen++
	s.token = ""
	s.user = nil
	s.setStatusLocked(StatusAnonymous)
	return s.tokens.Clear()
}

// IsAuthenticated reports whether a validated user is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Token returns the active bearer token, or "" when there is none.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Session{Token: s.token, Status: s.status}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Changed returns a channel that is closed on the next state change.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Wait blocks until the session is no longer resolving.
func (s *Store) Wait(ctx context.Context) (Status, error) {
	for {
		s.mu.Lock()
		st, ch := s.status, s.changed
		s.mu.Unlock()

		if st != StatusResolving {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close tears the store down. Validation results that arrive afterwards are
// discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
}

func (s *Store) setStatusLocked(st Status) {
	s.status = st
	close(s.changed)
	s.changed = make(chan struct{})
}

// splitLaunchToken extracts the token query parameter from raw and returns
// raw without it. Unparseable URLs carry no token.
func splitLaunchToken(raw string) (token, stripped string) {
	if raw == "" {
		return "", ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	q := u.Query()
	token = q.Get(TokenParam)
	if token == "" {
		return "", raw
	}
	q.Del(TokenParam)
	u.RawQuery = q.Encode()
	return token, u.String()
}
