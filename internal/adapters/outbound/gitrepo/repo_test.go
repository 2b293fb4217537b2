package gitrepo_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/gitrepo"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/testutil/gittest"
)

type fixture struct {
	g    *gittest.Repo
	repo *gitrepo.Repo
	base domain.RevisionID
	tip  domain.RevisionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g, base, tip := gittest.Feature(t)
	repo, err := gitrepo.Open(context.Background(), g.Dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	return &fixture{g: g, repo: repo, base: base, tip: tip}
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := gitrepo.Open(context.Background(), t.TempDir(), zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "not inside a git working tree")
}

func TestRevisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	branch, err := f.repo.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "feature", branch)

	tip, err := f.repo.CurrentTip(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.tip, tip)

	base, err := f.repo.DefaultBase(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.base, base)

	resolved, err := f.repo.ResolveRevision(ctx, "HEAD~2")
	require.NoError(t, err)
	assert.Equal(t, f.base, resolved)

	_, err = f.repo.ResolveRevision(ctx, "no-such-branch")
	assert.Error(t, err)

	ok, err := f.repo.IsAncestor(ctx, f.base, f.tip)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.repo.IsAncestor(ctx, f.tip, f.base)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, filepath.Join(f.g.Git("rev-parse", "--absolute-git-dir"), "reabsorb"), f.repo.StateDir())
}

func TestComputeDiff_SplitsAtFinestGrain(t *testing.T) {
	f := newFixture(t)

	hunks, err := f.repo.ComputeDiff(context.Background(), f.base, f.tip)
	require.NoError(t, err)
	require.Len(t, hunks, 3)

	assert.Equal(t, "x.txt", hunks[0].Path)
	assert.Equal(t, domain.ChangeModify, hunks[0].Kind)
	assert.Equal(t, []int{2, 1, 2, 1}, []int{hunks[0].OldStart, hunks[0].OldLines, hunks[0].NewStart, hunks[0].NewLines})
	assert.Equal(t, []domain.DiffLine{
		{Op: domain.LineDelete, Text: "l02"},
		{Op: domain.LineAdd, Text: "two"},
	}, hunks[0].Lines)

	assert.Equal(t, 8, hunks[1].OldStart)
	assert.Equal(t, "x.txt", hunks[1].Path)

	assert.Equal(t, "y.txt", hunks[2].Path)
	assert.Equal(t, domain.ChangeAdd, hunks[2].Kind)
	assert.True(t, hunks[2].WholeFile())
	assert.Equal(t, 1, hunks[2].NewLines)
	assert.Equal(t, uint32(0o100644), hunks[2].NewMode)
}

func TestComputeDiff_PureInsertionAndMissingNewline(t *testing.T) {
	f := newFixture(t)
	f.g.Write("x.txt", gittest.Numbered(3, nil)+"inserted\n"+strings.TrimSuffix(gittest.Numbered(10, nil)[len(gittest.Numbered(3, nil)):], "\n"))
	tip := f.g.Commit("Insert and drop final newline")

	hunks, err := f.repo.ComputeDiff(context.Background(), f.base, tip)
	require.NoError(t, err)
	require.Len(t, hunks, 3, "two x.txt hunks and the y.txt add")

	ins := hunks[0]
	assert.Equal(t, []int{3, 0, 4, 1}, []int{ins.OldStart, ins.OldLines, ins.NewStart, ins.NewLines})

	eof := hunks[1]
	assert.Equal(t, 10, eof.OldStart)
	require.Len(t, eof.Lines, 2)
	assert.False(t, eof.Lines[0].NoNewline)
	assert.True(t, eof.Lines[1].NoNewline)
}

func TestComputeDiff_RenameModeBinaryAndDelete(t *testing.T) {
	f := newFixture(t)
	f.g.Git("mv", "x.txt", "z.txt")
	f.g.Write("z.txt", gittest.Numbered(10, map[int]string{2: "two", 8: "eight", 10: "ten"}))
	require.NoError(t, os.WriteFile(filepath.Join(f.g.Dir, "bin.dat"), []byte{0, 1, 2, 0, 3}, 0o644))
	require.NoError(t, os.Chmod(filepath.Join(f.g.Dir, "y.txt"), 0o755))
	base := f.g.Commit("Prepare")

	f.g.Git("rm", "--quiet", "bin.dat")
	f.g.Git("mv", "z.txt", "w.txt")
	f.g.Write("w.txt", gittest.Numbered(10, map[int]string{2: "two", 8: "eight", 10: "TEN"}))
	require.NoError(t, os.Chmod(filepath.Join(f.g.Dir, "y.txt"), 0o644))
	tip := f.g.Commit("Rename, chmod, delete")

	hunks, err := f.repo.ComputeDiff(context.Background(), base, tip)
	require.NoError(t, err)

	byKind := map[string]domain.Hunk{}
	for _, h := range hunks {
		key := string(h.Kind)
		if h.ModeOnly {
			key = "mode"
		}
		byKind[key] = h
	}

	require.Contains(t, byKind, "rename")
	assert.Equal(t, "z.txt", byKind["rename"].OldPath)
	assert.Equal(t, "w.txt", byKind["rename"].Path)

	require.Contains(t, byKind, "modify")
	assert.Equal(t, "w.txt", byKind["modify"].Path)
	assert.Equal(t, 10, byKind["modify"].OldStart)

	require.Contains(t, byKind, "mode")
	assert.Equal(t, uint32(0o100644), byKind["mode"].NewMode)

	require.Contains(t, byKind, "delete")
	assert.True(t, byKind["delete"].Binary)
}

func TestSourceCommits_AttributesTipLines(t *testing.T) {
	f := newFixture(t)

	sources, err := f.repo.SourceCommits(context.Background(), f.base, f.tip)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "Edit line two", sources[0].Subject())
	assert.Equal(t, []string{"x.txt"}, sources[0].Paths)
	assert.True(t, sources[0].TouchesLines("x.txt", 2, 3))
	assert.False(t, sources[0].TouchesLines("x.txt", 8, 9))

	assert.ElementsMatch(t, []string{"x.txt", "y.txt"}, sources[1].Paths)
	assert.True(t, sources[1].TouchesLines("x.txt", 8, 9))
	assert.True(t, sources[1].TouchesLines("y.txt", 1, 2))
}

func TestCommitStats(t *testing.T) {
	f := newFixture(t)

	stats, err := f.repo.CommitStats(context.Background(), f.base, f.tip)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Edit line two", stats[0].Message)
	assert.Equal(t, 2, stats[0].Lines())
	assert.Equal(t, 3, stats[1].Lines())
}

func TestDirtyState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dirty, err := f.repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)

	f.g.Write("untracked.txt", "ignored\n")
	dirty, err = f.repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty, "untracked files do not count")

	f.g.Write("y.txt", "changed\n")
	dirty, err = f.repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.True(t, dirty)

	matches, err := f.repo.WorktreeMatches(ctx, f.tip)
	require.NoError(t, err)
	assert.False(t, matches)
}

// TestRewrite_ReordersHunks commits the later x.txt edit and y.txt first,
// then the line-two edit, and checks the result reproduces the tip tree.
func TestRewrite_ReordersHunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hunks, err := f.repo.ComputeDiff(ctx, f.base, f.tip)
	require.NoError(t, err)
	require.Len(t, hunks, 3)

	anchor, err := f.repo.CaptureAnchor(ctx, "feature")
	require.NoError(t, err)
	assert.Equal(t, f.tip, anchor.Tip)
	assert.NotEmpty(t, anchor.ID)
	f.g.Git("show-ref", "--verify", gitrepo.AnchorRefPrefix+"feature")

	require.NoError(t, f.repo.SoftReset(ctx, f.base))
	matches, err := f.repo.WorktreeMatches(ctx, f.tip)
	require.NoError(t, err)
	assert.True(t, matches, "reset keeps the working tree")

	first := []domain.Hunk{hunks[1], hunks[2]}
	require.NoError(t, f.repo.Stage(ctx, first, nil))
	c1, err := f.repo.Commit(ctx, "Edit line eight\n\nand add y", true)
	require.NoError(t, err)

	require.NoError(t, f.repo.Stage(ctx, []domain.Hunk{hunks[0]}, first))
	c2, err := f.repo.Commit(ctx, "Edit line two", true)
	require.NoError(t, err)

	assert.Equal(t, string(c1), f.g.Git("rev-parse", "HEAD~1"))
	assert.Equal(t, "Edit line eight\n\nand add y", f.g.Git("log", "-1", "--format=%B", string(c1)))

	equal, err := f.repo.TreesEqual(ctx, c2, f.tip)
	require.NoError(t, err)
	assert.True(t, equal)

	dirty, err := f.repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestStage_RenameAndBinaryEditInAnyOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blob := make([]byte, 256)
	for i := range blob {
		blob[i] = byte(i % 7)
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.g.Dir, "a.bin"), blob, 0o644))
	base := f.g.Commit("Add a.bin")

	f.g.Git("mv", "a.bin", "b.bin")
	blob[100] = 0xff
	require.NoError(t, os.WriteFile(filepath.Join(f.g.Dir, "b.bin"), blob, 0o644))
	tip := f.g.Commit("Rename and edit a.bin")

	hunks, err := f.repo.ComputeDiff(ctx, base, tip)
	require.NoError(t, err)
	require.Len(t, hunks, 2)
	require.Equal(t, domain.ChangeRename, hunks[0].Kind)
	require.True(t, hunks[1].Binary)

	require.NoError(t, f.repo.SoftReset(ctx, base))
	reversed := []domain.Hunk{hunks[1], hunks[0]}
	require.NoError(t, f.repo.Stage(ctx, reversed, nil))
	rewritten, err := f.repo.Commit(ctx, "Move a.bin", true)
	require.NoError(t, err)

	equal, err := f.repo.TreesEqual(ctx, rewritten, tip)
	require.NoError(t, err)
	assert.True(t, equal, "edit listed before its rename still yields the tip tree")
}

func TestRestoreAnchor_UndoesPartialRewrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hunks, err := f.repo.ComputeDiff(ctx, f.base, f.tip)
	require.NoError(t, err)

	anchor, err := f.repo.CaptureAnchor(ctx, "feature")
	require.NoError(t, err)
	require.NoError(t, f.repo.SoftReset(ctx, f.base))
	require.NoError(t, f.repo.Stage(ctx, hunks[:1], nil))
	_, err = f.repo.Commit(ctx, "Partial", false)
	require.NoError(t, err)

	require.NoError(t, f.repo.RestoreAnchor(ctx, anchor))
	tip, err := f.repo.CurrentTip(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.tip, tip)

	dirty, err := f.repo.IsDirty(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, f.repo.ReleaseAnchor(ctx, anchor))
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", gitrepo.AnchorRefPrefix+"feature")
	cmd.Dir = f.g.Dir
	assert.Error(t, cmd.Run(), "anchor ref is deleted")
}

func TestCommit_RejectedByHookUnlessNoVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hook := filepath.Join(f.g.Git("rev-parse", "--absolute-git-dir"), "hooks", "pre-commit")
	require.NoError(t, os.MkdirAll(filepath.Dir(hook), 0o755))
	require.NoError(t, os.WriteFile(hook, []byte("#!/bin/sh\necho nope >&2\nexit 1\n"), 0o755))

	f.g.Write("y.txt", "changed\n")
	f.g.Git("add", "y.txt")

	_, err := f.repo.Commit(ctx, "Blocked", false)
	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "commit", be.Op)
	assert.Contains(t, be.Stderr, "nope")

	_, err = f.repo.Commit(ctx, "Allowed", true)
	assert.NoError(t, err)
}
