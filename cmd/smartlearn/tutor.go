package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/client"
	"github.com/kalambet/smartlearn/internal/history"
	"github.com/kalambet/smartlearn/internal/session"
)

var tutorCmd = &cobra.Command{
	Use:   "tutor [message]",
	Short: "Chat with the AI tutor",
	Long: `Chat with the AI tutor.

With a message, sends it and prints the reply. Without one, opens an
interactive chat that shows the conversation so far. Type /clear to
delete the conversation and /quit (or Ctrl-D) to leave.`,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		w := cmd.OutOrStdout()
		if len(args) > 0 {
			reply, err := a.api.SendMessage(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printMarkdown(w, reply)
			return nil
		}
		return chat(ctx, bufio.NewReader(cmd.InOrStdin()), w, a.api)
	}),
}

// chatAPI is the part of the client an interactive chat needs.
type chatAPI interface {
	ChatHistory(ctx context.Context) ([]client.ChatMessage, error)
	SendMessage(ctx context.Context, message string) (string, error)
	ClearChat(ctx context.Context) (*client.ClearResult, error)
}

// chat runs the interactive tutor loop. The conversation is fetched once; the
// user's message is shown before the reply arrives and a failed send leaves
// it in place with an error below it.
func chat(ctx context.Context, in *bufio.Reader, w io.Writer, api chatAPI) error {
	page := history.New(api.ChatHistory, func(m client.ChatMessage) string { return m.ID })
	msgs, err := page.Load(ctx)
	if err != nil {
		printWarning("Could not load the conversation: %v", err)
	}
	for _, m := range msgs {
		printChatMessage(w, m)
	}

	for {
		line, err := promptLine(in, w, colorize(colorBold, "you> "))
		if err != nil {
			fmt.Fprintln(w)
			return nil
		}
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			res, err := api.ClearChat(ctx)
			if err != nil {
				printError("Could not clear the conversation: %v", err)
				continue
			}
			page.Reset()
			printSuccess("Deleted %d messages", res.DeletedCount)
			continue
		}

		page.Append(client.ChatMessage{Role: client.RoleUser, Content: line, Timestamp: session.Timestamp{Time: time.Now()}})
		reply, err := api.SendMessage(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			printError("%v", err)
			continue
		}
		m := client.ChatMessage{Role: client.RoleAssistant, Content: reply, Timestamp: session.Timestamp{Time: time.Now()}}
		page.Append(m)
		printChatMessage(w, m)
	}
}

func printChatMessage(w io.Writer, m client.ChatMessage) {
	if m.Role == client.RoleUser {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "you>"), m.Content)
		return
	}
	fmt.Fprintln(w, colorize(colorCyan, "tutor>"))
	printMarkdown(w, m.Content)
}

var tutorHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		msgs, err := a.api.ChatHistory(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(msgs) == 0 {
			fmt.Fprintln(w, "No messages yet.")
		}
		for _, m := range msgs {
			printChatMessage(w, m)
		}
		return nil
	}),
}

var tutorClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the conversation",
	Args:  cobra.NoArgs,
	RunE: protected(func(ctx context.Context, cmd *cobra.Command, a *app, user *session.User, args []string) error {
		res, err := a.api.ClearChat(ctx)
		if err != nil {
			return err
		}
		printSuccess("Deleted %d messages", res.DeletedCount)
		return nil
	}),
}

func init() {
	tutorCmd.AddCommand(tutorHistoryCmd, tutorClearCmd)
}
