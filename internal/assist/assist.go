// Package assist produces the AI output served by the dev server: summaries,
// quizzes, transcriptions, solutions, grades, plagiarism reports, tutor
// replies and learning paths.
//
// Canned is deterministic and offline. LLM forwards to an OpenAI-compatible
// endpoint and falls back to Canned for anything it cannot do.
package assist

import (
	"context"

	"github.com/kalambet/smartlearn/internal/client"
)

// Turn is one prior message in a tutor conversation.
type Turn struct {
	Role    string
	Content string
}

// QuizDraft is a generated quiz before it is stored.
type QuizDraft struct {
	Title     string            `json:"title"`
	Questions []client.Question `json:"questions"`
}

// PathStats summarizes a learner's activity for path generation.
type PathStats struct {
	Username   string
	QuizCount  int
	EssayCount int
}

type Generator interface {
	Summarize(ctx context.Context, text, summaryType string) (string, error)
	Quiz(ctx context.Context, text, difficulty string, n int) (QuizDraft, error)
	// Transcribe reads handwriting from an image. An empty result means no
	// legible text was found.
	Transcribe(ctx context.Context, image []byte, mimeType, mode string) (string, error)
	Solve(ctx context.Context, expression string) (string, error)
	Grade(ctx context.Context, title, content string) (client.Grade, error)
	// CheckPlagiarism compares content against earlier submissions by the
	// same user.
	CheckPlagiarism(ctx context.Context, content string, corpus []string) (client.PlagiarismReport, error)
	Reply(ctx context.Context, history []Turn, message string) (string, error)
	LearningPath(ctx context.Context, category string, stats PathStats) (client.LearningPath, error)
}
