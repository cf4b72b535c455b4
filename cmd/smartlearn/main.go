package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/config"
)

var version = "dev"

var (
	noColor   bool
	debug     bool
	launchURL string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "smartlearn",
	Short: "SmartLearn study assistant from the terminal",
	Long: `SmartLearn study assistant from the terminal.

Summarize lectures, generate quizzes, digitize handwriting, solve math,
grade essays, check for plagiarism, chat with a tutor and plan your learning.

Examples:
  smartlearn login
  smartlearn video youtube https://youtu.be/dQw4w9WgXcQ --type bullet
  smartlearn quiz generate --file notes.pdf --play
  smartlearn tutor "explain photosynthesis"`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}
		setupLogging()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&launchURL, "launch-url", "", "URL carrying a one-time ?token= to sign in with")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with SMARTLEARN_* variables to load")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd, forgotPasswordCmd, resetPasswordCmd, oauthCmd)
	rootCmd.AddCommand(dashboardCmd, videoCmd, quizCmd, ocrCmd, mathCmd, essayCmd, plagiarismCmd, tutorCmd, pathCmd)
	rootCmd.AddCommand(configCmd, devServerCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// loadEnvFile loads SMARTLEARN_* variables from path without overriding the
// real environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func setupLogging() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else if cfg, err := config.Load(); err == nil && strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
