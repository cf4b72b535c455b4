package main

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		emailFlag, _ := cmd.Flags().GetString("email")
		email, err := required(in, cmd.ErrOrStderr(), emailFlag, "Email: ")
		if err != nil {
			return err
		}
		password, err := promptPassword(in, cmd.ErrOrStderr(), "Password: ")
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := logIn(cmdContext(cmd), a, email, password)
		if err != nil {
			return err
		}
		printSuccess("Logged in as %s", user.Username)
		return nil
	},
}

// logIn exchanges credentials for a token, fetches the profile and stores
// both as the current session.
func logIn(ctx context.Context, a *app, email, password string) (*session.User, error) {
	tok, err := a.api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	user, err := a.api.Me(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	if err := a.sessions.Login(tok.AccessToken, user); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return user, nil
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		w := cmd.ErrOrStderr()
		usernameFlag, _ := cmd.Flags().GetString("username")
		emailFlag, _ := cmd.Flags().GetString("email")

		username, err := required(in, w, usernameFlag, "Username: ")
		if err != nil {
			return err
		}
		email, err := required(in, w, emailFlag, "Email: ")
		if err != nil {
			return err
		}
		password, err := promptNewPassword(in, w)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.api.Signup(cmdContext(cmd), username, email, password)
		if err != nil {
			return fmt.Errorf("signup failed: %w", err)
		}
		printSuccess("Account created for %s", user.Username)
		printStep("Log in with: smartlearn login --email %s", email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sessions.Logout(); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		printSuccess("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Username:"), user.Username)
		if user.Email != "" {
			fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Email:"), user.Email)
		}
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "ID:"), user.ID)
		if !user.CreatedAt.IsZero() {
			fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Member since:"), timestamp(user.CreatedAt))
		}
		if exp, ok := tokenExpiry(a.sessions.Token()); ok {
			fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Session expires:"), exp.Local().Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Server:"), a.api.BaseURL())
		return nil
	}),
}

// tokenExpiry reads the exp claim without verifying the signature; the server
// remains the authority on validity.
func tokenExpiry(raw string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password <email>",
	Short: "Request a password reset link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		msg, err := a.api.ForgotPassword(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		printSuccess("%s", msg)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password with a reset token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			return fmt.Errorf("--token is required (it is in the reset link)")
		}
		password, err := promptNewPassword(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		msg, err := a.api.ResetPassword(cmdContext(cmd), token, password)
		if err != nil {
			return err
		}
		printSuccess("%s", msg)
		printStep("Log in with your new password: smartlearn login")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email (prompted when omitted)")
	signupCmd.Flags().String("username", "", "username (prompted when omitted)")
	signupCmd.Flags().String("email", "", "email (prompted when omitted)")
	resetPasswordCmd.Flags().String("token", "", "reset token from the email link")
}
