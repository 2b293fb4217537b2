package anchors_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/anchors"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

func anchor(id, branch string, tip domain.RevisionID) domain.UndoAnchor {
	return domain.UndoAnchor{
		ID: id, Branch: branch, Tip: tip, IndexTree: "tree-" + id,
		CapturedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestJournal_EmptyBranch(t *testing.T) {
	j := anchors.New(t.TempDir())
	cur, err := j.Current("feature")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestJournal_LatestEntryIsCurrent(t *testing.T) {
	j := anchors.New(t.TempDir())
	require.NoError(t, j.Append(anchor("a1", "feature", "tip1")))
	require.NoError(t, j.Append(anchor("a2", "feature", "tip2")))
	require.NoError(t, j.Append(anchor("b1", "other", "tip9")))

	cur, err := j.Current("feature")
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "a2", cur.ID)
	assert.Equal(t, anchor("a2", "feature", "tip2"), *cur)

	entries, err := j.Entries("feature")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestJournal_ConsumptionMarker(t *testing.T) {
	j := anchors.New(t.TempDir())
	a := anchor("a1", "feature", "tip1")
	require.NoError(t, j.Append(a))

	a.Consumed = true
	require.NoError(t, j.Append(a))

	cur, err := j.Current("feature")
	require.NoError(t, err)
	assert.Nil(t, cur)

	require.NoError(t, j.Append(anchor("a2", "feature", "tip2")))
	cur, err = j.Current("feature")
	require.NoError(t, err)
	assert.Equal(t, "a2", cur.ID, "a new apply supersedes the consumed anchor")
}

func TestJournal_SlashedBranchNames(t *testing.T) {
	dir := t.TempDir()
	j := anchors.New(dir)
	require.NoError(t, j.Append(anchor("", "team/feature", "tip1")))

	cur, err := j.Current("team/feature")
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.NotEmpty(t, cur.ID, "missing ids are generated")
	assert.FileExists(t, filepath.Join(dir, "team", "feature.jsonl"))
}

func TestJournal_CorruptLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature.jsonl"), []byte("{not json\n"), 0644))

	_, err := anchors.New(dir).Entries("feature")
	assert.ErrorContains(t, err, "line 1")
}
