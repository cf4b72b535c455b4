package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSecretNotFound is returned by a Keychain when no value is stored for the
// requested service/account pair.
var ErrSecretNotFound = errors.New("secret not found")

// Keychain abstracts the platform secret store.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}

// NewKeychain returns the platform secret store: macOS Keychain on darwin,
// a 0600 JSON file under $XDG_DATA_HOME/smartlearn elsewhere.
func NewKeychain() Keychain {
	return platformKeychain{}
}

type platformKeychain struct{}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

func (platformKeychain) Delete(service, account string) error {
	return keychainDelete(service, account)
}

const (
	tokenService = "smartlearn"
	tokenAccount = "token"
)

// TokenStore persists the session bearer token under a fixed key. It is the
// only piece of state the client keeps between runs.
type TokenStore struct {
	kc Keychain
}

func NewTokenStore(kc Keychain) *TokenStore {
	return &TokenStore{kc: kc}
}

// Load returns the persisted token, or "" when none is stored.
func (s *TokenStore) Load() (string, error) {
	token, err := s.kc.Get(tokenService, tokenAccount)
	if errors.Is(err, ErrSecretNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return token, nil
}

func (s *TokenStore) Save(token string) error {
	if err := s.kc.Set(tokenService, tokenAccount, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// Clear removes the persisted token. Clearing an absent token is not an error.
func (s *TokenStore) Clear() error {
	err := s.kc.Delete(tokenService, tokenAccount)
	if err != nil && !errors.Is(err, ErrSecretNotFound) {
		return fmt.Errorf("removing token: %w", err)
	}
	return nil
}
