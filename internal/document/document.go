// Package document turns local files into text for the text-only endpoints.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MaxTextSize caps extracted text. Longer documents are truncated.
const MaxTextSize = 1 << 20

var ErrEmpty = errors.New("document contains no extractable text")

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ExtractText returns the plain text of a PDF or a UTF-8 text file.
func ExtractText(path string) (string, error) {
	var (
		text string
		err  error
	)
	if IsPDF(path) {
		text, err = pdfText(path)
	} else {
		text, err = plainText(path)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrEmpty)
	}
	return text, nil
}

func pdfText(path string) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(plain, MaxTextSize)); err != nil {
		return "", fmt.Errorf("reading text from %s: %w", path, err)
	}
	return buf.String(), nil
}

func plainText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxTextSize))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not a text file", filepath.Base(path))
	}
	return string(data), nil
}
