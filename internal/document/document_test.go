package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestExtractText_Plain(t *testing.T) {
	path := writeFile(t, "essay.txt", []byte("  The mitochondria is the powerhouse of the cell.\n"))

	got, err := ExtractText(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "The mitochondria is the powerhouse of the cell." {
		t.Errorf("text = %q", got)
	}
}

func TestExtractText_Empty(t *testing.T) {
	path := writeFile(t, "blank.md", []byte("   \n\n"))

	_, err := ExtractText(path)
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestExtractText_Binary(t *testing.T) {
	path := writeFile(t, "photo.jpg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10})

	_, err := ExtractText(path)
	if err == nil || !strings.Contains(err.Error(), "not a text file") {
		t.Fatalf("err = %v, want 'not a text file'", err)
	}
}

func TestExtractText_BrokenPDF(t *testing.T) {
	path := writeFile(t, "notes.PDF", []byte("definitely not a pdf"))

	if _, err := ExtractText(path); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}

func TestExtractText_Missing(t *testing.T) {
	if _, err := ExtractText(filepath.Join(t.TempDir(), "nope.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestIsPDF(t *testing.T) {
	tests := map[string]bool{
		"a.pdf":     true,
		"B.PDF":     true,
		"c.txt":     false,
		"pdf":       false,
		"dir.pdf/x": false,
	}
	for path, want := range tests {
		if got := IsPDF(path); got != want {
			t.Errorf("IsPDF(%q) = %v, want %v", path, got, want)
		}
	}
}
