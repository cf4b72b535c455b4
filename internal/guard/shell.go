package guard

import (
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/smartlearn/internal/session"
)

// Link is one navigation entry: a label and the command that opens it.
type Link struct {
	Label   string
	Command string
}

// Shell is the navigation frame printed above every protected view.
type Shell struct {
	Brand string
	Links []Link
}

func DefaultShell() *Shell {
	return &Shell{
		Brand: "SmartLearn",
		Links: []Link{
			{Label: "Dashboard", Command: "dashboard"},
			{Label: "Summarizer", Command: "video"},
			{Label: "Quizzes", Command: "quiz"},
			{Label: "Tutor", Command: "tutor"},
		},
	}
}

// Render writes the navigation bar for user followed by a rule.
func (s *Shell) Render(w io.Writer, user *session.User) {
	links := make([]string, len(s.Links))
	for i, l := range s.Links {
		links[i] = fmt.Sprintf("%s (%s)", l.Label, l.Command)
	}

	name := ""
	if user != nil {
		name = user.Username
	}

	bar := fmt.Sprintf("%s | %s | %s · logout", s.Brand, strings.Join(links, "  "), name)
	fmt.Fprintln(w, bar)
	fmt.Fprintln(w, strings.Repeat("─", min(len([]rune(bar)), 80)))
}
