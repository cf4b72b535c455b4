package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/document"
	"github.com/kalambet/smartlearn/internal/session"
)

var essayCmd = &cobra.Command{
	Use:   "essay",
	Short: "Grade essays",
}

func essayKey(e client.Essay) string { return e.ID }

func essayLine(e client.Essay) string {
	return fmt.Sprintf("%s  %s  %5.1f  %s", shortID(e.ID), timestamp(e.CreatedAt), e.Grade.OverallScore, truncate(e.Title, 50))
}

var essayGradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade an essay for grammar, structure and content",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		content, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")
		if strings.TrimSpace(title) == "" {
			return fmt.Errorf("--title is required")
		}
		text, err := readContent(cmd, content, file, document.ExtractText)
		if err != nil {
			return err
		}

		hv := newHistoryView(cmd, a.api.ListEssays, essayKey, "Essays", essayLine)
		hv.mount(ctx)

		printStep("Grading %q...", title)
		e, err := a.api.SubmitEssay(ctx, title, text)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printGrade(w, e.Grade)
		hv.prepend(w, *e)
		return nil
	}),
}

func printGrade(w io.Writer, g client.Grade) {
	heading(w, fmt.Sprintf("Overall %.1f/100", g.OverallScore))
	fmt.Fprintf(w, "  Grammar   %5.1f\n", g.GrammarScore)
	fmt.Fprintf(w, "  Structure %5.1f\n", g.StructureScore)
	fmt.Fprintf(w, "  Content   %5.1f\n", g.ContentScore)
	if g.Feedback != "" {
		heading(w, "Feedback")
		printMarkdown(w, g.Feedback)
	}
	if len(g.Suggestions) > 0 {
		heading(w, "Suggestions")
		for _, s := range g.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
}

var essayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List graded essays",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		essays, err := a.api.ListEssays(ctx)
		if err != nil {
			return err
		}
		printRecent(cmd.OutOrStdout(), "Essays", essays, 0, essayLine)
		return nil
	}),
}

func init() {
	essayCmd.AddCommand(essayGradeCmd, essayListCmd)
	essayGradeCmd.Flags().String("title", "", "essay title")
	essayGradeCmd.Flags().String("content", "", "essay text (- reads stdin)")
	essayGradeCmd.Flags().String("file", "", "PDF or text file with the essay")
	addHistoryFlag(essayGradeCmd)
}
