package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/smartlearn/internal/storage"
)

const tokenTypeReset = "reset"

type claims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

func issueToken(deps Deps, email, typ string, ttl time.Duration) (string, error) {
	now := deps.Now()
	c := claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(deps.Secret)
}

func parseToken(deps Deps, raw string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return deps.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(deps.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if c.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &c, nil
}

type userKey struct{}

func currentUser(ctx context.Context) storage.User {
	u, _ := ctx.Value(userKey{}).(storage.User)
	return u
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpError(w, http.StatusUnauthorized, "%s", detail)
}

// bearerAuth resolves the access token to a user. Reset tokens are not
// accepted as access tokens.
func bearerAuth(deps Deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
				unauthorized(w, "Not authenticated")
				return
			}
			c, err := parseToken(deps, strings.TrimSpace(auth[len(prefix):]))
			if err != nil || c.Type == tokenTypeReset {
				unauthorized(w, "Could not validate credentials")
				return
			}
			user, err := deps.Store.GetUserByEmail(c.Subject)
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "User not found")
				return
			}
			if err != nil {
				httpError(w, http.StatusInternalServerError, "failed to load user: %v", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
		})
	}
}

type userResponse struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	ProfilePicture *string   `json:"profile_picture"`
	CreatedAt      naiveTime `json:"created_at"`
}

func toUserResponse(u storage.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: naiveTime{u.CreatedAt},
	}
	if u.ProfilePicture != "" {
		resp.ProfilePicture = &u.ProfilePicture
	}
	return resp
}

func handleMe(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toUserResponse(currentUser(r.Context())))
	}
}

// Field validators. Each returns nil when the value passes.

func checkEmail(field string, v *string) *fieldError {
	if v == nil {
		fe := missing(field)
		return &fe
	}
	addr, err := mail.ParseAddress(*v)
	if err != nil || addr.Address != *v || addr.Name != "" {
		return &fieldError{Type: "value_error", Loc: []any{"body", field}, Msg: "value is not a valid email address"}
	}
	_, domain, _ := strings.Cut(*v, "@")
	if !strings.Contains(domain, ".") {
		return &fieldError{Type: "value_error", Loc: []any{"body", field}, Msg: "value is not a valid email address: The part after the @-sign is not valid. It should have a period."}
	}
	return nil
}

func checkLength(field string, v *string, lo, hi int) *fieldError {
	if v == nil {
		fe := missing(field)
		return &fe
	}
	n := utf8.RuneCountInString(*v)
	if n < lo {
		return &fieldError{Type: "string_too_short", Loc: []any{"body", field}, Msg: fmt.Sprintf("String should have at least %d characters", lo)}
	}
	if hi > 0 && n > hi {
		return &fieldError{Type: "string_too_long", Loc: []any{"body", field}, Msg: fmt.Sprintf("String should have at most %d characters", hi)}
	}
	return nil
}

func collect(errs ...*fieldError) []fieldError {
	var out []fieldError
	for _, e := range errs {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out
}

func handleSignup(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username       *string `json:"username"`
			Email          *string `json:"email"`
			Password       *string `json:"password"`
			ProfilePicture string  `json:"profile_picture"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if errs := collect(
			checkLength("username", req.Username, 3, 50),
			checkEmail("email", req.Email),
			checkLength("password", req.Password, 6, 0),
		); len(errs) > 0 {
			validationError(w, errs)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), deps.BcryptCost)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "Signup failed: %v", err)
			return
		}
		user := storage.User{
			ID:             uuid.New().String(),
			Username:       *req.Username,
			Email:          *req.Email,
			PasswordHash:   string(hash),
			ProfilePicture: req.ProfilePicture,
			AuthProvider:   "password",
			CreatedAt:      deps.Now().UTC(),
		}
		if err := deps.Store.CreateUser(user); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				httpError(w, http.StatusBadRequest, "Email already registered")
				return
			}
			httpError(w, http.StatusInternalServerError, "Signup failed: %v", err)
			return
		}
		deps.Logger.Info("user signed up", "user_id", user.ID)
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}

func handleLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    *string `json:"email"`
			Password *string `json:"password"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		var pwErr *fieldError
		if req.Password == nil {
			fe := missing("password")
			pwErr = &fe
		}
		if errs := collect(checkEmail("email", req.Email), pwErr); len(errs) > 0 {
			validationError(w, errs)
			return
		}

		user, err := deps.Store.GetUserByEmail(*req.Email)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusInternalServerError, "failed to load user: %v", err)
			return
		}
		// OAuth accounts have no password hash and cannot log in this way.
		if err != nil || user.PasswordHash == "" ||
			bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.Password)) != nil {
			unauthorized(w, "Incorrect email or password")
			return
		}

		if err := deps.Store.TouchLogin(user.ID, deps.Now()); err != nil {
			deps.Logger.Warn("failed to record login time", "user_id", user.ID, "error", err)
		}
		token, err := issueToken(deps, user.Email, "", deps.TokenTTL)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to issue token: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
	}
}

func handleForgotPassword(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email *string `json:"email"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if errs := collect(checkEmail("email", req.Email)); len(errs) > 0 {
			validationError(w, errs)
			return
		}

		if user, err := deps.Store.GetUserByEmail(*req.Email); err == nil {
			token, err := issueToken(deps, user.Email, tokenTypeReset, deps.ResetTTL)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "failed to issue reset token: %v", err)
				return
			}
			deps.Logger.Info("password reset requested", "link", deps.FrontendURL+"/reset-password?token="+token)
			if deps.OnResetToken != nil {
				deps.OnResetToken(user.Email, token)
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "If an account exists with this email, you will receive a reset link shortly.",
		})
	}
}

func handleResetPassword(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token       *string `json:"token"`
			NewPassword *string `json:"new_password"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		var tokErr *fieldError
		if req.Token == nil {
			fe := missing("token")
			tokErr = &fe
		}
		if errs := collect(tokErr, checkLength("new_password", req.NewPassword, 6, 0)); len(errs) > 0 {
			validationError(w, errs)
			return
		}

		c, err := parseToken(deps, *req.Token)
		if err != nil || c.Type != tokenTypeReset {
			httpError(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), deps.BcryptCost)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to hash password: %v", err)
			return
		}
		// An account deleted after the token was issued is not an error.
		if err := deps.Store.SetPasswordHash(c.Subject, string(hash)); err != nil && !errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusInternalServerError, "failed to update password: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful"})
	}
}

var providerNames = map[string]string{
	"google": "Google",
	"github": "GitHub",
}

// handleOAuthLogin stands in for the provider's consent screen: it sends the
// browser straight to the callback with the identity given in the query
// (email, name, picture).
func handleOAuthLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		if _, ok := providerNames[provider]; !ok {
			httpError(w, http.StatusNotFound, "Not Found")
			return
		}
		q := r.URL.Query()
		if q.Get("email") == "" {
			q.Set("email", "learner@"+provider+".example.com")
		}
		http.Redirect(w, r, "/api/auth/"+provider+"/callback?"+q.Encode(), http.StatusTemporaryRedirect)
	}
}

// handleOAuthCallback creates the account on first sign-in and redirects to
// the frontend dashboard with a fresh access token.
func handleOAuthCallback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		name, ok := providerNames[provider]
		if !ok {
			httpError(w, http.StatusNotFound, "Not Found")
			return
		}
		q := r.URL.Query()
		email := q.Get("email")
		if checkEmail("email", &email) != nil {
			httpError(w, http.StatusBadRequest, "%s Authentication Failed", name)
			return
		}

		_, err := deps.Store.GetUserByEmail(email)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			username := q.Get("name")
			if username == "" {
				username = email
				if provider == "google" {
					username, _, _ = strings.Cut(email, "@")
				}
			}
			user := storage.User{
				ID:             uuid.New().String(),
				Username:       username,
				Email:          email,
				ProfilePicture: q.Get("picture"),
				AuthProvider:   provider,
				CreatedAt:      deps.Now().UTC(),
			}
			if err := deps.Store.CreateUser(user); err != nil {
				httpError(w, http.StatusBadRequest, "%s Authentication Failed", name)
				return
			}
			deps.Logger.Info("user signed up", "user_id", user.ID, "provider", provider)
		case err != nil:
			httpError(w, http.StatusBadRequest, "%s Authentication Failed", name)
			return
		}

		token, err := issueToken(deps, email, "", deps.TokenTTL)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to issue token: %v", err)
			return
		}
		http.Redirect(w, r, deps.FrontendURL+"/dashboard?token="+url.QueryEscape(token), http.StatusTemporaryRedirect)
	}
}
