package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/application"
	"github.com/AllyMarthaJ/git-reabsorb/internal/bootstrap"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

type handlers struct {
	repoPath string
	logger   *zap.Logger
}

func (h *handlers) open(ctx context.Context, o bootstrap.Overrides) (*bootstrap.App, error) {
	return bootstrap.Open(ctx, h.repoPath, o, h.logger)
}

// registerTools registers all reabsorb MCP tools on the given server.
func registerTools(s *server.MCPServer, h *handlers) {
	// 1. reabsorb_plan
	s.AddTool(
		mcplib.NewTool("reabsorb_plan",
			mcplib.WithDescription("Builds a commit plan for the current branch without applying it. Returns the plan and a summary of every hunk."),
			mcplib.WithString("strategy",
				mcplib.Description("Strategy: preserve, by-file, squash, llm or hierarchical (defaults to the configured one)"),
			),
			mcplib.WithString("base",
				mcplib.Description("Base revision (defaults to the merge-base with main or master)"),
			),
			mcplib.WithString("range",
				mcplib.Description("Explicit base..tip range; cannot be combined with base"),
			),
		),
		h.handlePlan,
	)

	// 2. reabsorb_validate_plan
	s.AddTool(
		mcplib.NewTool("reabsorb_validate_plan",
			mcplib.WithDescription("Checks that a plan covers every hunk exactly once and keeps per-file order. Pass either a plan file path or the plan JSON."),
			mcplib.WithString("path",
				mcplib.Description("Plan file written by --save-plan"),
			),
			mcplib.WithString("plan",
				mcplib.Description("Plan document as JSON"),
			),
		),
		h.handleValidatePlan,
	)

	// 3. reabsorb_assess
	s.AddTool(
		mcplib.NewTool("reabsorb_assess",
			mcplib.WithDescription("Scores the branch's commits for atomicity, message quality and size balance"),
			mcplib.WithString("base",
				mcplib.Description("Base revision (defaults to the merge-base with main or master)"),
			),
		),
		h.handleAssess,
	)

	// 4. reabsorb_status
	s.AddTool(
		mcplib.NewTool("reabsorb_status",
			mcplib.WithDescription("Reports the current branch, whether the working tree is dirty, the undo anchor and the last applied plan"),
		),
		h.handleStatus,
	)
}

// hunkSummary is a one-line view of a hunk for plan readers.
type hunkSummary struct {
	ID      domain.HunkID `json:"id"`
	Summary string        `json:"summary"`
	Added   int           `json:"added"`
	Removed int           `json:"removed"`
}

type planView struct {
	Plan  *domain.Plan  `json:"plan"`
	Hunks []hunkSummary `json:"hunks"`
}

func newPlanView(p *domain.Plan, cm *domain.ChangeModel) planView {
	v := planView{Plan: p, Hunks: make([]hunkSummary, 0, cm.Len())}
	for _, hk := range cm.Hunks() {
		v.Hunks = append(v.Hunks, hunkSummary{ID: hk.ID, Summary: hk.Describe(), Added: hk.Added(), Removed: hk.Removed()})
	}
	return v
}

func (h *handlers) handlePlan(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	base := request.GetString("base", "")
	app, err := h.open(ctx, bootstrap.Overrides{Strategy: request.GetString("strategy", ""), Base: base})
	if err != nil {
		return errorResult(fmt.Sprintf("opening repository: %v", err)), nil
	}
	res, err := app.Plans.Plan(ctx, application.PlanRequest{Range: request.GetString("range", ""), Base: base})
	if err != nil {
		return errorResult(fmt.Sprintf("planning failed: %v", err)), nil
	}
	return jsonResult(newPlanView(res.Plan, res.Model))
}

func (h *handlers) handleValidatePlan(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	path := request.GetString("path", "")
	doc := request.GetString("plan", "")
	if (path == "") == (doc == "") {
		return errorResult("pass exactly one of path or plan"), nil
	}

	app, err := h.open(ctx, bootstrap.Overrides{})
	if err != nil {
		return errorResult(fmt.Sprintf("opening repository: %v", err)), nil
	}

	var report *application.ValidationReport
	if path != "" {
		report, err = app.Validate.ValidateFile(ctx, path)
	} else {
		var p domain.Plan
		if jerr := json.Unmarshal([]byte(doc), &p); jerr != nil {
			return errorResult(fmt.Sprintf("parsing plan: %v", jerr)), nil
		}
		cm, cerr := app.Plans.BuildChangeModel(ctx, p.Base, p.Tip)
		if cerr != nil {
			return errorResult(fmt.Sprintf("building change model: %v", cerr)), nil
		}
		report, err = app.Validate.Validate("", &p, cm)
	}
	// an invalid plan is a result, not a tool failure
	if report == nil {
		return errorResult(fmt.Sprintf("validation failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *handlers) handleAssess(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	base := request.GetString("base", "")
	app, err := h.open(ctx, bootstrap.Overrides{Base: base})
	if err != nil {
		return errorResult(fmt.Sprintf("opening repository: %v", err)), nil
	}
	baseID, tip, err := app.Plans.ResolveRange(ctx, base)
	if err != nil {
		return errorResult(fmt.Sprintf("resolving range: %v", err)), nil
	}
	score, err := app.Assess.Assess(ctx, baseID, tip)
	if err != nil {
		return errorResult(fmt.Sprintf("assessment failed: %v", err)), nil
	}
	return jsonResult(score)
}

func (h *handlers) handleStatus(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	app, err := h.open(ctx, bootstrap.Overrides{})
	if err != nil {
		return errorResult(fmt.Sprintf("opening repository: %v", err)), nil
	}
	st, err := app.Apply.Status(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("status failed: %v", err)), nil
	}
	return jsonResult(st)
}

// jsonResult marshals v to indented JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
