//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "smartlearn", "secrets.json")
}

func readSecrets(p string) (map[string]map[string]string, error) {
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain not available: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func writeSecrets(p string, secrets map[string]map[string]string) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}

func keychainGet(service, account string) ([]byte, error) {
	secrets, err := readSecrets(secretsFilePath())
	if err != nil {
		return nil, err
	}
	svc, ok := secrets[service]
	if !ok {
		return nil, fmt.Errorf("service %q: %w", service, ErrSecretNotFound)
	}
	val, ok := svc[account]
	if !ok {
		return nil, fmt.Errorf("account %q in service %q: %w", account, service, ErrSecretNotFound)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	p := secretsFilePath()

	secrets, err := readSecrets(p)
	if err != nil {
		secrets = nil
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	return writeSecrets(p, secrets)
}

func keychainDelete(service, account string) error {
	p := secretsFilePath()

	secrets, err := readSecrets(p)
	if err != nil {
		return err
	}
	if _, ok := secrets[service][account]; !ok {
		return ErrSecretNotFound
	}
	delete(secrets[service], account)
	if len(secrets[service]) == 0 {
		delete(secrets, service)
	}
	return writeSecrets(p, secrets)
}
