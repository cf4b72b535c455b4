package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/session"
)

var mathCmd = &cobra.Command{
	Use:   "math",
	Short: "Solve math problems step by step",
}

func mathKey(m client.MathSolution) string { return m.ID }

func mathLine(m client.MathSolution) string {
	problem := m.Expression
	if problem == "" {
		problem = "(image)"
	}
	return fmt.Sprintf("%s  %s  %s", shortID(m.ID), timestamp(m.CreatedAt), truncate(problem, 60))
}

var mathSolveCmd = &cobra.Command{
	Use:   "solve <expression>",
	Short: "Solve a typed problem",
	Args:  cobra.MinimumNArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		hv := newHistoryView(cmd, a.api.MathHistory, mathKey, "Solutions", mathLine)
		hv.mount(ctx)

		sol, err := a.api.SolveText(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printMarkdown(w, sol.Solution)
		hv.prepend(w, *sol)
		return nil
	}),
}

var mathImageCmd = &cobra.Command{
	Use:   "image <file>",
	Short: "Solve a problem from a photo",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		f, err := loadImage(args[0])
		if err != nil {
			return err
		}
		hv := newHistoryView(cmd, a.api.MathHistory, mathKey, "Solutions", mathLine)
		hv.mount(ctx)

		sol, err := a.api.SolveImage(ctx, f)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printMarkdown(w, sol.Solution)
		hv.prepend(w, *sol)
		return nil
	}),
}

var mathHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past solutions",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		sols, err := a.api.MathHistory(ctx)
		if err != nil {
			return err
		}
		printRecent(cmd.OutOrStdout(), "Solutions", sols, 0, mathLine)
		return nil
	}),
}

var mathDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a solution",
	Args:  cobra.ExactArgs(1),
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		hv := newHistoryView(cmd, a.api.MathHistory, mathKey, "Solutions", mathLine)
		hv.mount(ctx)

		if err := a.api.DeleteMath(ctx, args[0]); err != nil {
			return err
		}
		printSuccess("Deleted %s", args[0])
		hv.remove(cmd.OutOrStdout(), args[0])
		return nil
	}),
}

func init() {
	mathCmd.AddCommand(mathSolveCmd, mathImageCmd, mathHistoryCmd, mathDeleteCmd)
	addHistoryFlag(mathSolveCmd, mathImageCmd, mathDeleteCmd)
}
