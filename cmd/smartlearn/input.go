package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	readPassword = term.ReadPassword // test seam
	isTerminal   = term.IsTerminal
)

// promptLine writes prompt to w and reads one trimmed line from in.
func promptLine(in *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal and
// falls back to a plain line for piped input.
func promptPassword(in *bufio.Reader, w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return promptLine(in, w, prompt)
	}
	fmt.Fprint(w, prompt)
	b, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// promptNewPassword asks twice and requires both entries to match.
func promptNewPassword(in *bufio.Reader, w io.Writer) (string, error) {
	password, err := promptPassword(in, w, "Password: ")
	if err != nil {
		return "", err
	}
	confirm, err := promptPassword(in, w, "Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// required returns value, or prompts for it when empty.
func required(in *bufio.Reader, w io.Writer, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	v, err := promptLine(in, w, prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(strings.TrimSuffix(strings.TrimSpace(prompt), ":")))
	}
	return v, nil
}
