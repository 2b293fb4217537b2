package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const serverVersion = "0.1.0"

// NewServer creates an MCP server with every reabsorb tool and resource
// registered. repoPath is any path inside the repository to operate on.
// The server only reads: planning is always a dry run and nothing applies
// or resets the branch.
func NewServer(repoPath string, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"reabsorb",
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	h := &handlers{repoPath: repoPath, logger: logger.Named("mcp")}
	registerTools(s, h)
	registerResources(s, h)

	return s
}
