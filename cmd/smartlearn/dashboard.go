package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/smartlearn/internal/session"
)

// feature is one dashboard card.
type feature struct {
	Name        string
	Command     string
	Description string
	// count fetches how many records the user has; nil for features
	// without a history.
	count func(ctx context.Context) (int, error)
}

func dashboardFeatures(a *app) []feature {
	return []feature{
		{"Video Summarizer", "video", "Summarize lectures from YouTube or uploads", countOf(a.api.ListVideos)},
		{"Quiz Generator", "quiz", "Turn notes and PDFs into practice quizzes", countOf(a.api.ListQuizzes)},
		{"Handwriting OCR", "ocr", "Digitize handwritten notes", countOf(a.api.OCRHistory)},
		{"Math Solver", "math", "Step-by-step solutions from text or photos", countOf(a.api.MathHistory)},
		{"Essay Grader", "essay", "Scores and feedback on your writing", countOf(a.api.ListEssays)},
		{"Plagiarism Checker", "plagiarism", "Compare text with your earlier work", nil},
		{"AI Tutor", "tutor", "Ask questions and get explanations", countOf(a.api.ChatHistory)},
		{"Learning Path", "path", "A study plan built from your activity", nil},
	}
}

func countOf[T any](list func(ctx context.Context) ([]T, error)) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		items, err := list(ctx)
		return len(items), err
	}
}

// featureCounts fetches every feature's count concurrently. A failed fetch
// is reported per feature and does not stop the others.
func featureCounts(ctx context.Context, features []feature) ([]int, []error) {
	counts := make([]int, len(features))
	errs := make([]error, len(features))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range features {
		if f.count == nil {
			counts[i] = -1
			continue
		}
		g.Go(func() error {
			counts[i], errs[i] = f.count(ctx)
			return nil
		})
	}
	g.Wait()
	return counts, errs
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Overview of your SmartLearn tools",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		features := dashboardFeatures(a)
		counts, errs := featureCounts(ctx, features)
		printDashboard(cmd.OutOrStdout(), user, features, counts, errs)
		return nil
	}),
}

func printDashboard(w io.Writer, user *session.User, features []feature, counts []int, errs []error) {
	heading(w, fmt.Sprintf("Welcome back, %s", user.Username))
	fmt.Fprintln(w)
	for i, f := range features {
		var status string
		switch {
		case errs[i] != nil:
			status = colorize(colorYellow, "unavailable")
		case counts[i] >= 0:
			status = fmt.Sprintf("%s saved", countLabel(counts[i], 100))
		}
		fmt.Fprintf(w, "  %-20s %-12s %-14s %s\n", colorize(colorBold, f.Name), "("+f.Command+")", status, f.Description)
	}
}
