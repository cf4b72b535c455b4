// Package render turns the markdown the API returns (summaries, tutor replies,
// solutions, feedback) into plain terminal text.
package render

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiItalic    = "\033[3m"
	ansiUnderline = "\033[4m"
	ansiCyan      = "\033[36m"
)

// Terminal renders markdown for a terminal. With Color unset the output
// carries no escape sequences.
type Terminal struct {
	Color bool
}

var parser = goldmark.New().Parser()

// Render converts markdown to display text without a trailing newline.
func (t Terminal) Render(markdown string) string {
	src := []byte(markdown)
	doc := parser.Parse(text.NewReader(src))
	return strings.TrimRight(t.blocks(doc, src, true), "\n")
}

func (t Terminal) style(code, s string) string {
	if !t.Color || s == "" {
		return s
	}
	return code + s + ansiReset
}

// blocks renders the block children of n. Loose children are separated by a
// blank line, tight ones (items of a tight list) by a newline.
func (t Terminal) blocks(n ast.Node, src []byte, loose bool) string {
	sep := "\n"
	if loose {
		sep = "\n\n"
	}
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := t.block(c, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func (t Terminal) block(n ast.Node, src []byte) string {
	switch n := n.(type) {
	case *ast.Heading:
		title := t.inline(n, src)
		if t.Color {
			return t.style(ansiBold+ansiUnderline, title)
		}
		if n.Level <= 2 {
			return title + "\n" + strings.Repeat("-", len([]rune(title)))
		}
		return title
	case *ast.Paragraph, *ast.TextBlock:
		return t.inline(n, src)
	case *ast.List:
		return t.list(n, src)
	case *ast.Blockquote:
		return prefixLines(t.blocks(n, src, true), "│ ", "│ ")
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		return prefixLines(t.style(ansiDim, strings.TrimRight(b.String(), "\n")), "    ", "    ")
	case *ast.ThematicBreak:
		return strings.Repeat("─", 40)
	case *ast.HTMLBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}
		return strings.TrimRight(b.String(), "\n")
	default:
		return t.blocks(n, src, true)
	}
}

func (t Terminal) list(l *ast.List, src []byte) string {
	var items []string
	num := l.Start
	if num == 0 {
		num = 1
	}
	for c := l.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "• "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		body := t.blocks(c, src, !l.IsTight)
		items = append(items, prefixLines(body, marker, strings.Repeat(" ", len([]rune(marker)))))
	}
	if l.IsTight {
		return strings.Join(items, "\n")
	}
	return strings.Join(items, "\n\n")
}

func (t Terminal) inline(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.Emphasis:
			code := ansiItalic
			if c.Level >= 2 {
				code = ansiBold
			}
			b.WriteString(t.style(code, t.inline(c, src)))
		case *ast.CodeSpan:
			b.WriteString(t.style(ansiCyan, t.inline(c, src)))
		case *ast.Link:
			label := t.inline(c, src)
			dest := string(c.Destination)
			b.WriteString(t.style(ansiUnderline, label))
			if dest != "" && dest != label {
				fmt.Fprintf(&b, " (%s)", dest)
			}
		case *ast.AutoLink:
			b.WriteString(t.style(ansiUnderline, string(c.URL(src))))
		case *ast.Image:
			fmt.Fprintf(&b, "[image: %s]", t.inline(c, src))
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				b.Write(seg.Value(src))
			}
		default:
			b.WriteString(t.inline(c, src))
		}
	}
	return b.String()
}

// prefixLines puts first before the first line of s and rest before every
// following non-empty line.
func prefixLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		switch {
		case i == 0:
			lines[i] = first + line
		case line != "":
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}
