//go:build !darwin

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// jsonFileBackend keeps settings as one flat JSON object under
// $XDG_CONFIG_HOME/smartlearn. An unreadable file is reported once and
// treated as empty so the CLI still starts with defaults.
type jsonFileBackend struct {
	path string
	data map[string]any
}

func newPlatformBackend() Backend {
	b := &jsonFileBackend{path: configFilePath(), data: map[string]any{}}
	if err := b.load(); err != nil {
		slog.Warn("ignoring unreadable config file", "path", b.path, "error", err)
	}
	return b
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "smartlearn", "config.json")
}

func (b *jsonFileBackend) load() error {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &b.data); err != nil {
		b.data = map[string]any{}
		return fmt.Errorf("parsing: %w", err)
	}
	return nil
}

func (b *jsonFileBackend) save() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	raw, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, raw, 0o600)
}

func (b *jsonFileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	if s, isString := v.(string); isString {
		return s, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// GetInt accepts JSON numbers and numeric strings, since the file may be
// edited by hand.
func (b *jsonFileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) || val < math.MinInt || val > math.MaxInt {
			return 0, true, fmt.Errorf("%s holds %v, not an integer", key, val)
		}
		return int(val), true, nil
	case string:
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("%s holds %q, not an integer", key, val)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s holds a %T, not an integer", key, v)
	}
}

func (b *jsonFileBackend) SetString(key, val string) error {
	b.data[key] = val
	return b.save()
}

func (b *jsonFileBackend) SetInt(key string, val int) error {
	b.data[key] = val
	return b.save()
}

func (b *jsonFileBackend) Delete(key string) error {
	if _, ok := b.data[key]; !ok {
		return nil
	}
	delete(b.data, key)
	return b.save()
}

func (b *jsonFileBackend) Location() string {
	return b.path
}
