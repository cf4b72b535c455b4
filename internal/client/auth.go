package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kalambet/smartlearn/internal/session"
)

// OAuth providers the API can redirect to.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Me returns the account the token belongs to. It uses the given token rather
// than the client's TokenSource so the session store can validate a token
// before installing it.
func (c *Client) Me(ctx context.Context, token string) (*session.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, "")
	if err != nil {
		return nil, err
	}
	var u session.User
	if err := decodeJSON(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var tr TokenResponse
	if err := decodeJSON(resp, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}
	return &tr, nil
}

// Signup creates an account. The API does not log the new user in.
func (c *Client) Signup(ctx context.Context, username, email, password string) (*session.User, error) {
	resp, err := c.postJSON(ctx, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var u session.User
	if err := decodeJSON(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	resp, err := c.postJSON(ctx, "/api/auth/forgot-password", map[string]string{"email": email})
	if err != nil {
		return "", err
	}
	var m Message
	if err := decodeJSON(resp, &m); err != nil {
		return "", err
	}
	return m.Message, nil
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	resp, err := c.postJSON(ctx, "/api/auth/reset-password", map[string]string{
		"token":        token,
		"new_password": newPassword,
	})
	if err != nil {
		return "", err
	}
	var m Message
	if err := decodeJSON(resp, &m); err != nil {
		return "", err
	}
	return m.Message, nil
}

// OAuthLoginURL is where a browser starts the provider's login flow. The API
// finishes by redirecting to the frontend with ?token= appended.
func (c *Client) OAuthLoginURL(provider string) (string, error) {
	switch provider {
	case ProviderGoogle, ProviderGitHub:
		return c.baseURL + "/api/auth/" + provider + "/login", nil
	default:
		return "", fmt.Errorf("unknown oauth provider %q (want %s or %s)", provider, ProviderGoogle, ProviderGitHub)
	}
}
