package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	API       APIConfig
	Session   SessionConfig
	OAuth     OAuthConfig
	DevServer DevServerConfig
	Log       LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout string
}

type SessionConfig struct {
	SafetyTimeout string
	CheckTimeout  string
}

type OAuthConfig struct {
	CallbackPort int
}

type DevServerConfig struct {
	Port        int
	FrontendURL string
	Secret      string
	DataDir     string
	MaxConns    int
	AIBaseURL   string
	AIModel     string
	AIAPIKey    string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "60s",
		},
		Session: SessionConfig{
			SafetyTimeout: "3s",
			CheckTimeout:  "4s",
		},
		OAuth: OAuthConfig{
			CallbackPort: 5173,
		},
		DevServer: DevServerConfig{
			Port:        8000,
			FrontendURL: "http://127.0.0.1:5173",
			DataDir:     ":memory:",
			MaxConns:    64,
			AIBaseURL:   "https://openrouter.ai/api/v1",
			AIModel:     "deepseek/deepseek-chat",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.smartlearn.cli).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/smartlearn/config.json.
//
// Environment variables (SMARTLEARN_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: set it via SMARTLEARN_API_URL or `smartlearn config set api.base_url <url>`", c.API.BaseURL)
	}
	if c.DevServer.MaxConns < 1 {
		return fmt.Errorf("invalid devserver.max_conns %d: must be at least 1", c.DevServer.MaxConns)
	}
	for key, raw := range map[string]string{
		"api.timeout":            c.API.Timeout,
		"session.safety_timeout": c.Session.SafetyTimeout,
		"session.check_timeout":  c.Session.CheckTimeout,
	} {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
	}
	return nil
}

// APIBaseURL returns the configured API origin without a trailing slash.
func (c Config) APIBaseURL() string {
	return strings.TrimRight(c.API.BaseURL, "/")
}

// Duration parses one of the duration-valued settings. Values are checked in
// Load, so the fallback only applies to hand-built configs.
func Duration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
