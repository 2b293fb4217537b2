package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AllyMarthaJ/git-reabsorb/internal/bootstrap"
)

const planURI = "reabsorb://plan"

// registerResources registers all reabsorb MCP resources on the given server.
func registerResources(s *server.MCPServer, h *handlers) {
	s.AddResource(
		mcplib.NewResource(
			planURI,
			"Last Applied Plan",
			mcplib.WithResourceDescription("The plan most recently applied to the current branch"),
			mcplib.WithMIMEType("application/json"),
		),
		h.handlePlanResource,
	)
}

func (h *handlers) handlePlanResource(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	app, err := h.open(ctx, bootstrap.Overrides{})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	branch, err := app.Repo.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	p, err := app.Apply.LastPlan(branch)
	if err != nil {
		return nil, fmt.Errorf("no plan recorded for %s: %w", branch, err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling plan: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      planURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
