package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/smartlearn/internal/mcpbridge"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve SmartLearn tools to an MCP client over stdio",
	Long: `Serve SmartLearn tools to an MCP client over stdio.

Tools act as the logged-in user; run "smartlearn login" first. Diagnostics
go to stderr so stdout carries only the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		a.start(ctx)

		s := mcpbridge.NewServer(mcpbridge.Deps{
			API:    a.api,
			Gate:   a.guard,
			Logger: a.logger,
		}, version)

		a.logger.Info("MCP server started (stdio transport)")
		err = server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
