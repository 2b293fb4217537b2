package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/AllyMarthaJ/git-reabsorb/internal/adapters/inbound/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the reabsorb MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(opts))
	return cmd
}

func newMCPServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the reabsorb MCP server (stdio)",
		Long: "Start the reabsorb MCP server using stdio transport. Assistants can plan, validate plans, " +
			"assess history and read status. The server never rewrites the branch.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := mcpadapter.NewServer(opts.path, opts.logger)
			return server.ServeStdio(s)
		},
	}
}
