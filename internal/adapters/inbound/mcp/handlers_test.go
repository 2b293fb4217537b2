package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/testutil/gittest"
)

func call(t *testing.T, handler func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcplib.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func newHandlers(t *testing.T) (*handlers, *gittest.Repo, domain.RevisionID) {
	r, _, tip := gittest.Feature(t)
	return &handlers{repoPath: r.Dir, logger: zaptest.NewLogger(t)}, r, tip
}

func TestHandlePlan_ByFile(t *testing.T) {
	h, r, tip := newHandlers(t)

	out, isErr := call(t, h.handlePlan, map[string]any{"strategy": "by-file"})
	require.False(t, isErr, out)

	var view planView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "by-file", view.Plan.Strategy)
	assert.Equal(t, tip, view.Plan.Tip)
	assert.Len(t, view.Plan.Commits, 2)
	assert.Len(t, view.Hunks, 3)
	assert.Equal(t, tip, r.Head(), "planning never moves the branch")
}

func TestHandlePlan_Range(t *testing.T) {
	h, r, tip := newHandlers(t)
	first := domain.RevisionID(r.Git("rev-parse", string(tip)+"~1"))

	out, isErr := call(t, h.handlePlan, map[string]any{"strategy": "by-file", "range": "main.." + string(first)})
	require.False(t, isErr, out)
	var view planView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, first, view.Plan.Tip)
	assert.Len(t, view.Hunks, 1)
}

func TestHandlePlan_UnknownStrategy(t *testing.T) {
	h, _, _ := newHandlers(t)
	out, isErr := call(t, h.handlePlan, map[string]any{"strategy": "shuffle"})
	assert.True(t, isErr)
	assert.Contains(t, out, "unknown-strategy")
}

func TestHandleValidatePlan(t *testing.T) {
	h, r, _ := newHandlers(t)

	out, isErr := call(t, h.handlePlan, map[string]any{"strategy": "squash"})
	require.False(t, isErr, out)
	var view planView
	require.NoError(t, json.Unmarshal([]byte(out), &view))

	doc, err := json.Marshal(view.Plan)
	require.NoError(t, err)
	out, isErr = call(t, h.handleValidatePlan, map[string]any{"plan": string(doc)})
	require.False(t, isErr, out)
	assert.Contains(t, out, `"valid": true`)

	view.Plan.Commits[0].Hunks = view.Plan.Commits[0].Hunks[1:]
	path := filepath.Join(r.Dir, "plan.json")
	doc, err = json.Marshal(view.Plan)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, doc, 0o644))

	out, isErr = call(t, h.handleValidatePlan, map[string]any{"path": path})
	require.False(t, isErr, "an invalid plan is reported, not failed")
	assert.Contains(t, out, `"valid": false`)
	assert.Contains(t, out, "missing-hunks")
}

func TestHandleValidatePlan_NeedsExactlyOneSource(t *testing.T) {
	h, _, _ := newHandlers(t)
	_, isErr := call(t, h.handleValidatePlan, map[string]any{})
	assert.True(t, isErr)
	_, isErr = call(t, h.handleValidatePlan, map[string]any{"path": "a", "plan": "{}"})
	assert.True(t, isErr)
}

func TestHandleAssess(t *testing.T) {
	h, _, _ := newHandlers(t)
	out, isErr := call(t, h.handleAssess, nil)
	require.False(t, isErr, out)

	var score domain.AssessmentScore
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	assert.Len(t, score.Commits, 2)
	assert.Equal(t, "feature", score.Branch)
}

func TestHandleStatus(t *testing.T) {
	h, _, tip := newHandlers(t)
	out, isErr := call(t, h.handleStatus, nil)
	require.False(t, isErr, out)

	var st domain.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "feature", st.Branch)
	assert.Equal(t, tip, st.Tip)
	assert.False(t, st.Dirty)
	assert.Nil(t, st.Anchor)
}

func TestHandlers_OutsideRepository(t *testing.T) {
	h := &handlers{repoPath: t.TempDir(), logger: zaptest.NewLogger(t)}
	out, isErr := call(t, h.handleStatus, nil)
	assert.True(t, isErr)
	assert.Contains(t, out, "opening repository")
}

func TestPlanResource_NoPlanRecorded(t *testing.T) {
	h, _, _ := newHandlers(t)
	_, err := h.handlePlanResource(context.Background(), mcplib.ReadResourceRequest{})
	assert.ErrorContains(t, err, "no plan recorded for feature")
}
