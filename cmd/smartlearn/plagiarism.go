package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/document"
	"github.com/kalambet/smartlearn/internal/session"
)

var plagiarismCmd = &cobra.Command{
	Use:   "plagiarism",
	Short: "Check text for copied or AI-generated passages",
}

var plagiarismCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a text against your earlier submissions",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")
		text, err := readContent(cmd, content, file, document.ExtractText)
		if err != nil {
			return err
		}
		report, err := a.api.CheckPlagiarism(ctx, text)
		if err != nil {
			return err
		}
		printPlagiarism(cmd.OutOrStdout(), *report)
		return nil
	}),
}

func printPlagiarism(w io.Writer, r client.PlagiarismReport) {
	heading(w, fmt.Sprintf("Status: %s", r.Status))
	fmt.Fprintf(w, "  Similarity     %5.1f%%\n", r.SimilarityScore)
	fmt.Fprintf(w, "  AI probability %5.1f%%\n", r.AIProbability)
	if len(r.Findings) > 0 {
		heading(w, "Findings")
		for _, f := range r.Findings {
			fmt.Fprintf(w, "  • %s\n", f)
		}
	}
	if r.DetailedReport != "" {
		heading(w, "Report")
		printMarkdown(w, r.DetailedReport)
	}
}

func init() {
	plagiarismCmd.AddCommand(plagiarismCheckCmd)
	plagiarismCheckCmd.Flags().String("content", "", "text to check (- reads stdin)")
	plagiarismCheckCmd.Flags().String("file", "", "PDF or text file to check")
}
