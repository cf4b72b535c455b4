//go:build darwin

package config

import (
	"errors"
	"os/exec"
)

// security(1) exits with 44 when the item does not exist.
const securityItemNotFound = 44

func keychainGet(service, account string) ([]byte, error) {
	out, err := exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
	return out, mapSecurityErr(err)
}

func keychainSet(service, account, value string) error {
	return exec.Command(
		"security", "add-generic-password",
		"-U",
		"-s", service,
		"-a", account,
		"-w", value,
	).Run()
}

func keychainDelete(service, account string) error {
	err := exec.Command(
		"security", "delete-generic-password",
		"-s", service,
		"-a", account,
	).Run()
	return mapSecurityErr(err)
}

func mapSecurityErr(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == securityItemNotFound {
		return ErrSecretNotFound
	}
	return err
}
