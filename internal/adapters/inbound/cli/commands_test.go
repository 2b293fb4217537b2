package cli_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/inbound/cli"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/testutil/gittest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "reabsorb dev")
}

func TestPlanCommand_JSON(t *testing.T) {
	r, base, tip := gittest.Feature(t)

	out, err := execute(t, "plan", "--path", r.Dir, "--strategy", "by-file", "--json")
	require.NoError(t, err)

	var p domain.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "by-file", p.Strategy)
	assert.Equal(t, base, p.Base)
	assert.Equal(t, tip, p.Tip)
	assert.Len(t, p.Commits, 2)
	assert.Equal(t, tip, r.Head())
}

func TestPlanCommand_Range(t *testing.T) {
	r, base, tip := gittest.Feature(t)
	first := domain.RevisionID(r.Git("rev-parse", string(tip)+"~1"))

	out, err := execute(t, "plan", string(base)+".."+string(first), "--path", r.Dir, "--strategy", "by-file", "--json")
	require.NoError(t, err)
	var p domain.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, base, p.Base)
	assert.Equal(t, first, p.Tip)
	assert.Len(t, p.Commits, 1, "only x.txt changes before the last commit")

	_, err = execute(t, "plan", "main..HEAD", "--base", "main", "--path", r.Dir)
	assert.Equal(t, cli.ExitValidation, cli.ExitCode(err))

	_, err = execute(t, "--path", r.Dir, "not-a-range")
	assert.Equal(t, cli.ExitValidation, cli.ExitCode(err))
}

func TestRunCommand_DryRunRendersPlan(t *testing.T) {
	r, _, tip := gittest.Feature(t)

	out, err := execute(t, "--path", r.Dir, "--strategy", "preserve", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Edit line two")
	assert.Contains(t, out, "x.txt @@")
	assert.Equal(t, tip, r.Head())
}

func TestRunCommand_SquashThenReset(t *testing.T) {
	r, base, tip := gittest.Feature(t)
	tipTree := r.Git("rev-parse", string(tip)+"^{tree}")

	out, err := execute(t, "run", "--path", r.Dir, "--strategy", "squash", "--message", "One change")
	require.NoError(t, err)
	assert.Contains(t, out, "feature rewritten")
	assert.Equal(t, []string{"One change"}, r.Subjects(base))
	assert.Equal(t, tipTree, r.Git("rev-parse", "HEAD^{tree}"))

	out, err = execute(t, "status", "--path", r.Dir, "--json")
	require.NoError(t, err)
	var st domain.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.NotNil(t, st.Anchor)
	assert.Equal(t, tip, st.Anchor.Tip)
	require.NotNil(t, st.Plan)
	assert.Equal(t, "squash", st.Plan.Strategy)

	out, err = execute(t, "reset", "--path", r.Dir)
	require.NoError(t, err)
	assert.Contains(t, out, "feature restored")
	assert.Equal(t, tip, r.Head())
	assert.Equal(t, []string{"Edit line two", "Edit line eight and add y"}, r.Subjects(base))
}

func TestApplyCommand_SavedPlan(t *testing.T) {
	r, base, tip := gittest.Feature(t)
	planPath := filepath.Join(t.TempDir(), "plan.yaml")

	_, err := execute(t, "plan", "--path", r.Dir, "--strategy", "by-file", "--save-plan", planPath)
	require.NoError(t, err)

	out, err := execute(t, "validate", planPath, "--path", r.Dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")

	_, err = execute(t, "apply", "--path", r.Dir, "--plan", planPath)
	require.NoError(t, err)
	assert.Len(t, r.Subjects(base), 2)
	assert.Equal(t, r.Git("rev-parse", string(tip)+"^{tree}"), r.Git("rev-parse", "HEAD^{tree}"))
}

func TestRunCommand_DirtyTreeIsRejected(t *testing.T) {
	r, _, tip := gittest.Feature(t)
	r.Write("y.txt", "uncommitted\n")

	_, err := execute(t, "--path", r.Dir, "--strategy", "by-file")
	require.Error(t, err)
	assert.Equal(t, cli.ExitValidation, cli.ExitCode(err))
	assert.Equal(t, tip, r.Head())
}

func TestRunCommand_UnknownStrategy(t *testing.T) {
	r, _, _ := gittest.Feature(t)
	_, err := execute(t, "--path", r.Dir, "--strategy", "shuffle")
	require.Error(t, err)
	assert.Equal(t, cli.ExitValidation, cli.ExitCode(err))
}

func TestResetCommand_NoAnchor(t *testing.T) {
	r, _, _ := gittest.Feature(t)
	_, err := execute(t, "reset", "--path", r.Dir)
	require.Error(t, err)
	assert.True(t, domain.IsApplyKind(err, domain.ApplyNoAnchor))
}

func TestAssessAndCompare(t *testing.T) {
	r, _, _ := gittest.Feature(t)
	dir := t.TempDir()
	before := filepath.Join(dir, "before.json")
	after := filepath.Join(dir, "after.json")

	out, err := execute(t, "assess", "--path", r.Dir, "--save", before)
	require.NoError(t, err)
	assert.Contains(t, out, "atomicity")
	assert.Contains(t, out, "Edit line two")

	_, err = execute(t, "--path", r.Dir, "--strategy", "squash", "--message", "Edit x and add y")
	require.NoError(t, err)
	_, err = execute(t, "assess", "--path", r.Dir, "--save", after)
	require.NoError(t, err)

	out, err = execute(t, "compare", before, after, "--json")
	require.NoError(t, err)
	var d domain.Delta
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Len(t, d.Before.Commits, 2)
	assert.Len(t, d.After.Commits, 1)

	out, err = execute(t, "assess", "--path", r.Dir, "--history")
	require.NoError(t, err)
	assert.Contains(t, out, "Assessment History")
}

func TestCompareCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "compare", "nope.json", "nope2.json")
	assert.Error(t, err)
}

func TestOutsideRepository(t *testing.T) {
	_, err := execute(t, "status", "--path", t.TempDir())
	assert.ErrorContains(t, err, "not inside a git working tree")
}
