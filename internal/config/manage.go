package config

import (
	"fmt"
	"os"
	"strconv"
)

// Source says where a setting's effective value comes from.
type Source string

const (
	SourceDefault Source = "default"
	SourceStored  Source = "stored"
	SourceEnv     Source = "env"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
	Source Source
}

// ShowAll returns the effective value of every non-secret key.
func ShowAll() ([]KeyInfo, error) {
	return showWith(newPlatformBackend())
}

func showWith(b Backend) ([]KeyInfo, error) {
	cfg, err := loadWith(b)
	if err != nil {
		return nil, err
	}
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		src := SourceDefault
		if _, ok, err := s.read(b); err != nil {
			return nil, err
		} else if ok {
			src = SourceStored
		}
		if s.env != "" && os.Getenv(s.env) != "" {
			src = SourceEnv
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprint(s.extract(cfg)),
			Source: src,
		})
	}
	return result, nil
}

// SetKey validates value and stores it under key.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformBackend(), key, value)
}

func setKeyWith(b Backend, key, value string) error {
	s, err := lookupSpec(key)
	if err != nil {
		return err
	}
	if s.check != nil {
		if err := s.check(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if s.typ == kInt {
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %q is not an integer", key, value)
		}
		return b.SetInt(key, i)
	}
	return b.SetString(key, value)
}

// UnsetKey removes a stored value so the default applies again.
func UnsetKey(key string) error {
	return unsetKeyWith(newPlatformBackend(), key)
}

func unsetKeyWith(b Backend, key string) error {
	if _, err := lookupSpec(key); err != nil {
		return err
	}
	return b.Delete(key)
}

// Location names where stored settings live.
func Location() string {
	return newPlatformBackend().Location()
}

// ValidKeys returns the list of valid non-secret config key names.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
