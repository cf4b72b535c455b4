package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/kalambet/smartlearn/internal/assist"
	"github.com/kalambet/smartlearn/internal/config"
	"github.com/kalambet/smartlearn/internal/devserver"
	"github.com/kalambet/smartlearn/internal/storage"
)

var devServerCmd = &cobra.Command{
	Use:   "dev-server",
	Short: "Run a local SmartLearn API for development",
	Long: `Run a local SmartLearn API for development.

Serves the same routes as the hosted API. Accounts and history live in
SQLite (in memory unless devserver.data_dir is set). AI output comes from
an OpenAI-compatible model when devserver.ai_api_key is set and from
built-in canned responses otherwise. Password reset links are printed
here instead of being emailed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.DevServer.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DevServer.DataDir, _ = cmd.Flags().GetString("data-dir")
		}
		uploadDir, _ := cmd.Flags().GetString("upload-dir")
		return runDevServer(cfg, uploadDir)
	},
}

func runDevServer(cfg config.Config, uploadDir string) error {
	fmt.Fprintf(os.Stderr, "smartlearn dev-server version %s\n", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DevServer.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	frontend := cfg.DevServer.FrontendURL
	handler, err := devserver.NewHandler(devserver.Deps{
		Store:       store,
		Generator:   gen,
		Secret:      []byte(cfg.DevServer.Secret),
		FrontendURL: frontend,
		UploadDir:   uploadDir,
		OnResetToken: func(email, token string) {
			printStep("Password reset for %s: smartlearn reset-password --token %s", email, token)
		},
		Logger: slog.Default(),
	})
	if err != nil {
		return err
	}
	if cfg.DevServer.Secret == "" {
		printWarning("devserver.secret is not set: tokens will not survive a restart")
	}

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.DevServer.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.DevServer.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.DevServer.MaxConns)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "smartlearn dev-server listening on http://%s\n", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGenerator(cfg config.Config) (assist.Generator, error) {
	if cfg.DevServer.AIAPIKey == "" {
		slog.Info("using canned AI responses")
		return assist.NewCanned(), nil
	}
	gen, err := assist.NewLLM(assist.LLMConfig{
		APIKey:  cfg.DevServer.AIAPIKey,
		BaseURL: cfg.DevServer.AIBaseURL,
		Model:   cfg.DevServer.AIModel,
	}, slog.Default())
	if err != nil {
		return nil, err
	}
	slog.Info("using LLM for AI responses", "model", cfg.DevServer.AIModel)
	return gen, nil
}

func init() {
	devServerCmd.Flags().Int("port", 0, "port to listen on (default devserver.port)")
	devServerCmd.Flags().String("data-dir", "", "directory for the SQLite database, or :memory:")
	devServerCmd.Flags().String("upload-dir", "", "keep uploaded videos in this directory")
}
