package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/plan"
)

func commitHunks(p *domain.Plan) [][]domain.HunkID {
	out := make([][]domain.HunkID, len(p.Commits))
	for i, c := range p.Commits {
		out[i] = c.Hunks
	}
	return out
}

func TestRepair_ValidPlanUntouched(t *testing.T) {
	cm := exampleModel(t)
	p := domain.NewPlan("llm", cm, specs([]domain.HunkID{0, 2}, []domain.HunkID{1}))

	fixed, fixes := plan.Repair(p, cm)
	assert.Empty(t, fixes)
	assert.Same(t, p, fixed)
}

func TestRepair_ReferenceErrors(t *testing.T) {
	cm := exampleModel(t)
	p := domain.NewPlan("llm", cm, specs([]domain.HunkID{0, 9}, []domain.HunkID{1, 0}))

	fixed, fixes := plan.Repair(p, cm)
	require.NoError(t, plan.Validate(fixed, cm))
	assert.Equal(t, [][]domain.HunkID{{0, 2}, {1}}, commitHunks(fixed))
	assert.Equal(t, []string{
		"dropped unknown hunk 9 from commit 1",
		"dropped repeated hunk 0 from commit 2",
		"added missing hunk 2 to commit 1",
	}, fixes)

	assert.Equal(t, [][]domain.HunkID{{0, 9}, {1, 0}}, commitHunks(p), "input plan is not modified")
}

func TestRepair_MissingHunkWithoutNeighboursGetsTrailingCommit(t *testing.T) {
	cm := exampleModel(t)
	p := domain.NewPlan("llm", cm, specs([]domain.HunkID{0, 2}))

	fixed, fixes := plan.Repair(p, cm)
	require.NoError(t, plan.Validate(fixed, cm))
	require.Len(t, fixed.Commits, 2)
	assert.Equal(t, []domain.HunkID{1}, fixed.Commits[1].Hunks)
	assert.Equal(t, plan.FallbackSubject, fixed.Commits[1].Message)
	assert.Len(t, fixes, 1)
}

func TestRepair_MissingHunkFollowsItsDependency(t *testing.T) {
	// y.txt is created by hunk 0 and edited by hunk 1
	cm, err := domain.NewChangeModel("aaaaaaa", "ddddddd", []domain.Hunk{
		{Path: "y.txt", Kind: domain.ChangeAdd, NewStart: 1, NewLines: 1,
			Lines: []domain.DiffLine{{Op: domain.LineAdd, Text: "y"}}},
		{Path: "z.txt", Kind: domain.ChangeAdd, NewStart: 1, NewLines: 1,
			Lines: []domain.DiffLine{{Op: domain.LineAdd, Text: "z"}}},
		{Path: "y.txt", Kind: domain.ChangeModify, OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 1,
			Lines: []domain.DiffLine{{Op: domain.LineDelete, Text: "e"}, {Op: domain.LineAdd, Text: "E"}}},
	})
	require.NoError(t, err)
	p := domain.NewPlan("llm", cm, specs([]domain.HunkID{1}, []domain.HunkID{0}))

	fixed, _ := plan.Repair(p, cm)
	require.NoError(t, plan.Validate(fixed, cm))
	assert.Equal(t, [][]domain.HunkID{{1}, {0, 2}}, commitHunks(fixed))
}

func TestRepair_EmptyCommitsAndMessages(t *testing.T) {
	cm := exampleModel(t)
	p := domain.NewPlan("llm", cm, []domain.CommitSpec{
		{Message: "Only unknowns", Hunks: []domain.HunkID{7}},
		{Message: "  ", Hunks: []domain.HunkID{0, 2}},
		{Message: "Add y", Hunks: []domain.HunkID{1}},
	})

	fixed, fixes := plan.Repair(p, cm)
	require.NoError(t, plan.Validate(fixed, cm))
	require.Len(t, fixed.Commits, 2)
	assert.Equal(t, "Update x.txt", fixed.Commits[0].Message)
	assert.Contains(t, fixes, "removed empty commit 1")
	assert.Contains(t, fixes, "wrote a message for commit 2")
}

func TestRepair_LeavesOrderViolations(t *testing.T) {
	cm, err := domain.NewChangeModel("aaaaaaa", "ddddddd", []domain.Hunk{
		{Path: "y.txt", Kind: domain.ChangeAdd, NewStart: 1, NewLines: 1,
			Lines: []domain.DiffLine{{Op: domain.LineAdd, Text: "y"}}},
		{Path: "y.txt", Kind: domain.ChangeModify, OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 1,
			Lines: []domain.DiffLine{{Op: domain.LineDelete, Text: "e"}, {Op: domain.LineAdd, Text: "E"}}},
	})
	require.NoError(t, err)
	p := domain.NewPlan("llm", cm, specs([]domain.HunkID{1}, []domain.HunkID{0}))

	fixed, fixes := plan.Repair(p, cm)
	assert.Empty(t, fixes)
	var perr *domain.PlanError
	require.ErrorAs(t, plan.Validate(fixed, cm), &perr)
	assert.True(t, perr.Has(domain.IssueOrderViolation))
}
