package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// memBackend is an in-memory Backend for tests.
type memBackend struct {
	data map[string]any
	err  error
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]any)}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return 0, false, nil
	}
	i, _ := v.(int)
	return i, true, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.data[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.data[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memBackend) Location() string { return "memory" }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8000")
	}
	if cfg.Session.SafetyTimeout != "3s" {
		t.Errorf("Session.SafetyTimeout = %q, want 3s", cfg.Session.SafetyTimeout)
	}
	if cfg.Session.CheckTimeout != "4s" {
		t.Errorf("Session.CheckTimeout = %q, want 4s", cfg.Session.CheckTimeout)
	}
	if cfg.OAuth.CallbackPort != 5173 {
		t.Errorf("OAuth.CallbackPort = %d, want 5173", cfg.OAuth.CallbackPort)
	}
	if cfg.DevServer.Port != 8000 {
		t.Errorf("DevServer.Port = %d, want 8000", cfg.DevServer.Port)
	}
	if cfg.DevServer.DataDir != ":memory:" {
		t.Errorf("DevServer.DataDir = %q, want :memory:", cfg.DevServer.DataDir)
	}
	if cfg.DevServer.MaxConns != 64 {
		t.Errorf("DevServer.MaxConns = %d, want 64", cfg.DevServer.MaxConns)
	}
	if cfg.DevServer.AIAPIKey != "" {
		t.Errorf("DevServer.AIAPIKey = %q, want empty", cfg.DevServer.AIAPIKey)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

// TestBackendValues verifies values stored in the backend replace defaults.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.data["api.base_url"] = "https://api.smartlearn.example/"
	b.data["oauth.callback_port"] = 9100
	b.data["session.safety_timeout"] = "10s"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL() != "https://api.smartlearn.example" {
		t.Errorf("APIBaseURL() = %q", cfg.APIBaseURL())
	}
	if cfg.OAuth.CallbackPort != 9100 {
		t.Errorf("OAuth.CallbackPort = %d, want 9100", cfg.OAuth.CallbackPort)
	}
	if cfg.Session.SafetyTimeout != "10s" {
		t.Errorf("Session.SafetyTimeout = %q, want 10s", cfg.Session.SafetyTimeout)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	b := newMemBackend()
	b.data["api.base_url"] = "http://file:8000"
	t.Setenv("SMARTLEARN_API_URL", "http://env:9000")
	t.Setenv("SMARTLEARN_DEVSERVER_PORT", "9001")
	t.Setenv("SMARTLEARN_DEVSERVER_SECRET", "dev-secret")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://env:9000" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://env:9000")
	}
	if cfg.DevServer.Port != 9001 {
		t.Errorf("DevServer.Port = %d, want 9001", cfg.DevServer.Port)
	}
	if cfg.DevServer.Secret != "dev-secret" {
		t.Errorf("DevServer.Secret = %q, want dev-secret", cfg.DevServer.Secret)
	}
}

func TestEnvOverride_BadIntKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMARTLEARN_OAUTH_CALLBACK_PORT", "not-a-number")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OAuth.CallbackPort != 5173 {
		t.Errorf("OAuth.CallbackPort = %d, want default 5173", cfg.OAuth.CallbackPort)
	}
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMARTLEARN_API_URL", "not a url")

	_, err := loadWith(newMemBackend())
	if err == nil {
		t.Fatal("expected error for invalid base URL")
	}
	if !strings.Contains(err.Error(), "api.base_url") {
		t.Errorf("error = %q, want it to mention api.base_url", err.Error())
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMARTLEARN_SESSION_SAFETY_TIMEOUT", "soon")

	_, err := loadWith(newMemBackend())
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "session.safety_timeout") {
		t.Errorf("error = %q, want it to mention session.safety_timeout", err.Error())
	}
}

func TestLoad_BackendError(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.err = errors.New("defaults unavailable")

	if _, err := loadWith(b); err == nil {
		t.Fatal("expected backend error to propagate")
	}
}

func TestLoad_InvalidMaxConns(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.data["devserver.max_conns"] = 0

	if _, err := loadWith(b); err == nil || !strings.Contains(err.Error(), "devserver.max_conns") {
		t.Fatalf("err = %v, want max_conns validation error", err)
	}
}

func TestShowAll_HidesSecretsAndReportsSource(t *testing.T) {
	clearEnv(t)
	t.Setenv("SMARTLEARN_DEVSERVER_SECRET", "hunter2")
	t.Setenv("SMARTLEARN_LOG_LEVEL", "debug")

	b := newMemBackend()
	b.data["api.timeout"] = "30s"

	keys, err := showWith(b)
	if err != nil {
		t.Fatalf("showWith: %v", err)
	}
	sources := map[string]Source{}
	for _, k := range keys {
		if k.Key == "devserver.secret" || k.Key == "devserver.ai_api_key" {
			t.Fatal("ShowAll must not include secret keys")
		}
		if strings.Contains(k.Value, "hunter2") {
			t.Fatalf("secret value leaked via %s", k.Key)
		}
		sources[k.Key] = k.Source
	}
	want := map[string]Source{
		"api.timeout":  SourceStored,
		"log.level":    SourceEnv,
		"api.base_url": SourceDefault,
	}
	for key, src := range want {
		if sources[key] != src {
			t.Errorf("%s source = %q, want %q", key, sources[key], src)
		}
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()

	if err := setKeyWith(b, "oauth.callback_port", "7000"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.data["oauth.callback_port"] != 7000 {
		t.Errorf("stored value = %v, want 7000", b.data["oauth.callback_port"])
	}
	if err := setKeyWith(b, "api.base_url", "https://api.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := []struct{ key, value string }{
		{"oauth.callback_port", "seven"},
		{"oauth.callback_port", "70000"},
		{"devserver.max_conns", "0"},
		{"api.base_url", "localhost:8000"},
		{"api.base_url", "ftp://files.example.com"},
		{"session.safety_timeout", "soon"},
		{"session.check_timeout", "-1s"},
		{"log.level", "loud"},
		{"devserver.secret", "x"},
		{"nope", "x"},
	}
	for _, tt := range bad {
		if err := setKeyWith(b, tt.key, tt.value); err == nil {
			t.Errorf("setKeyWith(%s, %q) succeeded", tt.key, tt.value)
		}
	}
	if b.data["api.base_url"] != "https://api.example.com" {
		t.Errorf("rejected value overwrote api.base_url: %v", b.data["api.base_url"])
	}
}

func TestUnsetKey(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.data["api.timeout"] = "5s"

	if err := unsetKeyWith(b, "api.timeout"); err != nil {
		t.Fatalf("unsetKeyWith: %v", err)
	}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.Timeout != defaults().API.Timeout {
		t.Errorf("API.Timeout = %q after unset, want default", cfg.API.Timeout)
	}
	if err := unsetKeyWith(b, "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := unsetKeyWith(b, "devserver.ai_api_key"); err == nil {
		t.Error("expected error for a secret key")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"3s", 3 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"", time.Minute},
		{"-1s", time.Minute},
		{"bogus", time.Minute},
	}
	for _, tt := range tests {
		if got := Duration(tt.raw, time.Minute); got != tt.want {
			t.Errorf("Duration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
