package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/history"
)

const recentLimit = 10

// historyView shows a feature's history next to a fresh result when the
// command runs with --history. The list is fetched before the request is
// made, so the new result is prepended rather than fetched again.
type historyView[T any] struct {
	page    *history.Page[T]
	enabled bool
	title   string
	line    func(T) string
}

func newHistoryView[T any](cmd *cobra.Command, load history.Loader[T], key func(T) string, title string, line func(T) string) *historyView[T] {
	enabled, _ := cmd.Flags().GetBool("history")
	return &historyView[T]{
		page:    history.New(load, key),
		enabled: enabled,
		title:   title,
		line:    line,
	}
}

func (h *historyView[T]) mount(ctx context.Context) {
	if !h.enabled {
		return
	}
	if _, err := h.page.Load(ctx); err != nil {
		printWarning("Could not load %s: %v", strings.ToLower(h.title), err)
	}
}

func (h *historyView[T]) prepend(w io.Writer, item T) {
	if !h.enabled {
		return
	}
	h.page.Prepend(item)
	printRecent(w, h.title, h.page.Items(), recentLimit, h.line)
}

func (h *historyView[T]) remove(w io.Writer, key string) {
	if !h.enabled {
		return
	}
	h.page.Remove(key)
	printRecent(w, h.title, h.page.Items(), recentLimit, h.line)
}

func addHistoryFlag(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().Bool("history", false, "show recent history after the result")
	}
}

// printRecent lists up to n items, newest first as given.
func printRecent[T any](w io.Writer, title string, items []T, n int, line func(T) string) {
	heading(w, title)
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none yet)")
		return
	}
	for i, it := range items {
		if n > 0 && i >= n {
			fmt.Fprintf(w, "  ... %d more\n", len(items)-n)
			break
		}
		fmt.Fprintf(w, "  %s\n", line(it))
	}
}

// readContent returns inline content, "-" for stdin, or the text of file.
func readContent(cmd *cobra.Command, content, file string, extract func(string) (string, error)) (string, error) {
	switch {
	case content != "" && file != "":
		return "", fmt.Errorf("use either --content or --file, not both")
	case content == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	case content != "":
		return content, nil
	case file != "":
		return extract(file)
	default:
		return "", fmt.Errorf("provide --content, --content - for stdin, or --file")
	}
}

func openUpload(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
