package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/session"
)

const oauthWait = 3 * time.Minute

var oauthCmd = &cobra.Command{
	Use:       "oauth <google|github>",
	Short:     "Log in through Google or GitHub in the browser",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"google", "github"},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		loginURL, err := a.api.OAuthLoginURL(args[0])
		if err != nil {
			return err
		}
		noBrowser, _ := cmd.Flags().GetBool("no-browser")

		ctx, cancel := context.WithTimeout(cmdContext(cmd), oauthWait)
		defer cancel()

		addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(a.cfg.OAuth.CallbackPort))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listening for the OAuth redirect on %s: %w", addr, err)
		}

		result := make(chan *session.User, 1)
		srv := &http.Server{Handler: oauthCallbackHandler(ctx, a.sessions, result)}
		go srv.Serve(ln)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		printStep("Waiting for the provider to redirect to http://%s/dashboard", addr)
		if noBrowser {
			printStatus("Open", "%s", loginURL)
		} else if err := openBrowser(loginURL); err != nil {
			printWarning("Could not open a browser: %v", err)
			printStatus("Open", "%s", loginURL)
		}

		select {
		case user := <-result:
			if user == nil {
				return errors.New("the provider returned a token the server did not accept")
			}
			printSuccess("Logged in as %s", user.Username)
			return nil
		case <-ctx.Done():
			return fmt.Errorf("no OAuth redirect received: %w", ctx.Err())
		}
	},
}

// oauthCallbackHandler stands in for the frontend's /dashboard route. A
// request carrying ?token= is handed to the session store, which stores it,
// validates it and returns the address without the token; the browser is sent
// there so the token leaves its address bar.
func oauthCallbackHandler(ctx context.Context, sessions *session.Store, result chan<- *session.User) http.Handler {
	r := chi.NewRouter()
	r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintln(w, "SmartLearn: you can close this tab and return to the terminal.")
			return
		}

		full := "http://" + r.Host + r.URL.RequestURI()
		stripped := sessions.Initialize(ctx, full)

		select {
		case result <- sessions.Snapshot().User:
		default:
		}
		http.Redirect(w, r, stripped, http.StatusSeeOther)
	})
	return r
}

var openBrowser = func(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func init() {
	oauthCmd.Flags().Bool("no-browser", false, "print the login URL instead of opening it")
}
