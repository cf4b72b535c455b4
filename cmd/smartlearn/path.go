package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/session"
)

var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Generate a learning path from your activity",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		asJSON, _ := cmd.Flags().GetBool("json")

		printStep("Planning a %s path for %s...", category, user.Username)
		lp, err := a.api.GenerateLearningPath(ctx, category)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), lp)
		}
		printLearningPath(cmd.OutOrStdout(), *lp)
		return nil
	}),
}

func printLearningPath(w io.Writer, lp client.LearningPath) {
	heading(w, lp.Title)
	if lp.Description != "" {
		printMarkdown(w, lp.Description)
	}
	for i, p := range lp.Phases {
		title := p.Title
		if !strings.HasPrefix(title, "Phase") {
			title = fmt.Sprintf("Phase %d: %s", i+1, title)
		}
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, title))
		if p.Goal != "" {
			fmt.Fprintf(w, "  Goal: %s\n", p.Goal)
		}
		for _, t := range p.Tasks {
			fmt.Fprintf(w, "  • %s\n", t)
		}
	}
}

func init() {
	pathCmd.Flags().String("category", client.DefaultCategory, "subject to focus on")
	pathCmd.Flags().Bool("json", false, "print the path as JSON")
}
