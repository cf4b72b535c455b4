package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	secret bool
	// check validates a value given to `config set`; Load re-validates the
	// merged result.
	check   func(raw string) error
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

func lookupSpec(key string) (keySpec, error) {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return keySpec{}, fmt.Errorf("%q is a secret; set it with the environment variable %s", key, s.env)
		}
		return s, nil
	}
	return keySpec{}, fmt.Errorf("unknown config key %q (valid keys: %s)", key, strings.Join(ValidKeys(), ", "))
}

// read returns the stored value for s, typed per s.typ.
func (s keySpec) read(b Backend) (any, bool, error) {
	var (
		v   any
		ok  bool
		err error
	)
	switch s.typ {
	case kInt:
		v, ok, err = b.GetInt(s.key)
	default:
		v, ok, err = b.GetString(s.key)
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", s.key, err)
	}
	return v, ok, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	return nil
}

func checkDuration(raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("%s is not positive", raw)
	}
	return nil
}

func checkPort(raw string) error {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("%q is not a port number", raw)
	}
	return nil
}

func checkPositive(raw string) error {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fmt.Errorf("%q is not a positive integer", raw)
	}
	return nil
}

func checkLevel(raw string) error {
	switch strings.ToLower(raw) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("%q is not a log level (debug, info, warn or error)", raw)
}

var specs = []keySpec{
	{
		key: "api.base_url", typ: kString, env: "SMARTLEARN_API_URL",
		check:   checkURL,
		apply:   func(cfg *Config, v any) { cfg.API.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.API.BaseURL },
	},
	{
		key: "api.timeout", typ: kString, env: "SMARTLEARN_API_TIMEOUT",
		check:   checkDuration,
		apply:   func(cfg *Config, v any) { cfg.API.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Timeout },
	},
	{
		key: "session.safety_timeout", typ: kString, env: "SMARTLEARN_SESSION_SAFETY_TIMEOUT",
		check:   checkDuration,
		apply:   func(cfg *Config, v any) { cfg.Session.SafetyTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.SafetyTimeout },
	},
	{
		key: "session.check_timeout", typ: kString, env: "SMARTLEARN_SESSION_CHECK_TIMEOUT",
		check:   checkDuration,
		apply:   func(cfg *Config, v any) { cfg.Session.CheckTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.CheckTimeout },
	},
	{
		key: "oauth.callback_port", typ: kInt, env: "SMARTLEARN_OAUTH_CALLBACK_PORT",
		check:   checkPort,
		apply:   func(cfg *Config, v any) { cfg.OAuth.CallbackPort = v.(int) },
		extract: func(cfg Config) any { return cfg.OAuth.CallbackPort },
	},
	{
		key: "devserver.port", typ: kInt, env: "SMARTLEARN_DEVSERVER_PORT",
		check:   checkPort,
		apply:   func(cfg *Config, v any) { cfg.DevServer.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.DevServer.Port },
	},
	{
		key: "devserver.frontend_url", typ: kString, env: "SMARTLEARN_DEVSERVER_FRONTEND_URL",
		check:   checkURL,
		apply:   func(cfg *Config, v any) { cfg.DevServer.FrontendURL = v.(string) },
		extract: func(cfg Config) any { return cfg.DevServer.FrontendURL },
	},
	{
		key: "devserver.secret", typ: kString, env: "SMARTLEARN_DEVSERVER_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.DevServer.Secret = v.(string) },
		extract: func(cfg Config) any { return cfg.DevServer.Secret },
	},
	{
		key: "devserver.data_dir", typ: kString, env: "SMARTLEARN_DEVSERVER_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.DevServer.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.DevServer.DataDir },
	},
	{
		key: "devserver.max_conns", typ: kInt, env: "SMARTLEARN_DEVSERVER_MAX_CONNS",
		check:   checkPositive,
		apply:   func(cfg *Config, v any) { cfg.DevServer.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.DevServer.MaxConns },
	},
	{
		key: "devserver.ai_base_url", typ: kString, env: "SMARTLEARN_DEVSERVER_AI_BASE_URL",
		check:   checkURL,
		apply:   func(cfg *Config, v any) { cfg.DevServer.AIBaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.DevServer.AIBaseURL },
	},
	{
		key: "devserver.ai_model", typ: kString, env: "SMARTLEARN_DEVSERVER_AI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.DevServer.AIModel = v.(string) },
		extract: func(cfg Config) any { return cfg.DevServer.AIModel },
	},
	{
		key: "devserver.ai_api_key", typ: kString, env: "SMARTLEARN_DEVSERVER_AI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.DevServer.AIAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.DevServer.AIAPIKey },
	},
	{
		key: "log.level", typ: kString, env: "SMARTLEARN_LOG_LEVEL",
		check:   checkLevel,
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		v, ok, err := s.read(b)
		if err != nil {
			return err
		}
		if ok {
			s.apply(cfg, v)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				slog.Warn("ignoring non-integer environment variable", "var", s.env, "value", raw, "error", err)
			}
		}
	}
}
