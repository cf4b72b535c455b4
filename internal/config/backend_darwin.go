//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const defaultsDomain = "com.smartlearn.cli"

// defaultsBackend keeps settings in UserDefaults through the defaults tool.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() Backend {
	return &defaultsBackend{domain: defaultsDomain}
}

// run executes defaults with args. missing reports the tool's "does not
// exist" exit status, which it uses for absent keys and domains.
func (b *defaultsBackend) run(args ...string) (out string, missing bool, err error) {
	raw, err := exec.Command("defaults", args...).CombinedOutput()
	out = strings.TrimSpace(string(raw))
	if err == nil {
		return out, false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return "", true, nil
	}
	return "", false, fmt.Errorf("defaults %s: %w (%s)", args[0], err, out)
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	out, missing, err := b.run("read", b.domain, key)
	return out, !missing && err == nil, err
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("%s holds %q, not an integer", key, s)
	}
	return i, true, nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	_, _, err := b.run("write", b.domain, key, "-string", val)
	return err
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	_, _, err := b.run("write", b.domain, key, "-int", strconv.Itoa(val))
	return err
}

func (b *defaultsBackend) Delete(key string) error {
	_, _, err := b.run("delete", b.domain, key)
	return err
}

func (b *defaultsBackend) Location() string {
	return "UserDefaults domain " + b.domain
}
