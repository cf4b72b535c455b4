package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/session"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Generate quizzes from notes or documents",
}

func quizKey(q client.Quiz) string { return q.ID }

func quizLine(q client.Quiz) string {
	return fmt.Sprintf("%s  %s  %-6s %2d questions  %s", shortID(q.ID), timestamp(q.CreatedAt), q.Difficulty, len(q.Questions), truncate(q.Title, 50))
}

var quizGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a multiple-choice quiz",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		file, _ := cmd.Flags().GetString("file")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		n, _ := cmd.Flags().GetInt("questions")
		play, _ := cmd.Flags().GetBool("play")
		answers, _ := cmd.Flags().GetBool("answers")

		req := client.QuizRequest{Difficulty: difficulty, NumQuestions: n}
		switch {
		case content != "" && file != "":
			return errors.New("use either --content or --file, not both")
		case file != "":
			f, err := openUpload(file)
			if err != nil {
				return err
			}
			defer f.Close()
			req.File = &client.File{Name: filepath.Base(file), Content: f}
		default:
			text, err := readContent(cmd, content, "", nil)
			if err != nil {
				return err
			}
			req.Content = text
		}

		hv := newHistoryView(cmd, a.api.ListQuizzes, quizKey, "Quizzes", quizLine)
		hv.mount(ctx)

		printStep("Generating %d %s questions...", max(n, 1), difficulty)
		q, err := a.api.GenerateQuiz(ctx, req)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if play {
			correct := playQuiz(bufio.NewReader(cmd.InOrStdin()), w, *q)
			heading(w, fmt.Sprintf("You scored %d/%d", correct, len(q.Questions)))
		} else {
			printQuiz(w, *q, answers)
		}
		hv.prepend(w, *q)
		return nil
	}),
}

func printQuiz(w io.Writer, q client.Quiz, answers bool) {
	heading(w, q.Title)
	for i, qu := range q.Questions {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, qu.Question)
		for j, opt := range qu.Options {
			mark := " "
			if answers && opt == qu.CorrectAnswer {
				mark = colorize(colorGreen, "*")
			}
			fmt.Fprintf(w, "  %s %c) %s\n", mark, 'a'+j, opt)
		}
		if answers && qu.Explanation != "" {
			fmt.Fprintf(w, "    %s\n", qu.Explanation)
		}
	}
}

// playQuiz asks each question on w, reads answers from in and returns the
// number answered correctly. An answer is an option letter, its number, or
// the option text. Input ending early counts the rest as unanswered.
func playQuiz(in *bufio.Reader, w io.Writer, q client.Quiz) int {
	heading(w, q.Title)
	correct := 0
	for i, qu := range q.Questions {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, qu.Question)
		for j, opt := range qu.Options {
			fmt.Fprintf(w, "   %c) %s\n", 'a'+j, opt)
		}
		line, err := promptLine(in, w, "Answer: ")
		if err != nil {
			fmt.Fprintln(w)
			return correct
		}
		if pickOption(qu.Options, line) == qu.CorrectAnswer {
			correct++
			fmt.Fprintln(w, colorize(colorGreen, "✓ Correct"))
		} else {
			fmt.Fprintln(w, colorize(colorRed, "✗ The answer is "+qu.CorrectAnswer))
		}
		if qu.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", qu.Explanation)
		}
	}
	return correct
}

func pickOption(options []string, answer string) string {
	answer = strings.TrimSpace(answer)
	if len(answer) == 1 {
		if c := strings.ToLower(answer)[0]; c >= 'a' && int(c-'a') < len(options) {
			return options[c-'a']
		}
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	for _, opt := range options {
		if strings.EqualFold(opt, answer) {
			return opt
		}
	}
	return answer
}

var quizListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your quizzes",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		quizzes, err := a.api.ListQuizzes(ctx)
		if err != nil {
			return err
		}
		printRecent(cmd.OutOrStdout(), "Quizzes", quizzes, 0, quizLine)
		return nil
	}),
}

func init() {
	quizCmd.AddCommand(quizGenerateCmd, quizListCmd)

	quizGenerateCmd.Flags().String("content", "", "text to build the quiz from (- reads stdin)")
	quizGenerateCmd.Flags().String("file", "", "PDF or text file to build the quiz from")
	quizGenerateCmd.Flags().String("difficulty", client.DifficultyMedium, "easy, medium or hard")
	quizGenerateCmd.Flags().Int("questions", 5, "number of questions")
	quizGenerateCmd.Flags().Bool("play", false, "answer the questions interactively")
	quizGenerateCmd.Flags().Bool("answers", false, "mark the correct options")
	addHistoryFlag(quizGenerateCmd)
}
