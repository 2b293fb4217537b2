package application_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AllyMarthaJ/git-reabsorb/internal/application"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/strategy"
)

type applyFixture struct {
	backend *fakeBackend
	journal *memJournal
	locker  *memLocker
	plans   *memPlans
	svc     *application.ApplyService
	plan    *domain.Plan
	model   *domain.ChangeModel
}

func newApplyFixture(t *testing.T) *applyFixture {
	t.Helper()
	b := newFakeBackend(exampleHunks())
	f := &applyFixture{backend: b, journal: &memJournal{}, locker: &memLocker{}, plans: &memPlans{}}
	f.svc = application.NewApplyService(b, f.journal, f.locker, f.plans, zaptest.NewLogger(t))

	res, err := newPlanService(t, b).Plan(context.Background(), application.PlanRequest{Strategy: strategy.ByFile})
	require.NoError(t, err)
	f.plan, f.model = res.Plan, res.Model
	return f
}

func applyKind(t *testing.T, err error) *domain.ApplyError {
	t.Helper()
	var ae *domain.ApplyError
	require.ErrorAs(t, err, &ae)
	return ae
}

func TestApply_RewritesBranch(t *testing.T) {
	f := newApplyFixture(t)

	report, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{NoVerify: true})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, report.State)
	assert.Equal(t, "done", report.StateName)
	require.Len(t, report.Commits, 2)
	assert.Equal(t, "Update x.txt", report.Commits[0].Subject)
	assert.Equal(t, f.backend.head, report.NewTip)
	assert.Equal(t, []bool{true, true}, f.backend.noVerify)

	require.Len(t, f.backend.committed, 2)
	assert.Equal(t, []domain.HunkID{0, 2}, []domain.HunkID{f.backend.committed[0][0].ID, f.backend.committed[0][1].ID})
	assert.Empty(t, f.backend.stageCall[0])
	assert.Len(t, f.backend.stageCall[1], 2, "second commit is staged against the hunks already applied")

	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, domain.RevisionID("tip00000"), f.journal.entries[0].Tip)
	assert.Equal(t, f.plan.Base, f.journal.entries[0].Base)

	last, err := f.svc.LastPlan("feature")
	require.NoError(t, err)
	assert.Equal(t, f.plan.Commits, last.Commits)
}

func TestApply_PreconditionsLeaveNoAnchor(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *applyFixture)
		want  domain.ApplyErrorKind
	}{
		{"dirty", func(f *applyFixture) { f.backend.dirty = true }, domain.ApplyDirtyState},
		{"tip moved", func(f *applyFixture) { f.backend.head = "other000" }, domain.ApplyTipMismatch},
		{"locked", func(f *applyFixture) {
			_, err := f.locker.Lock("feature")
			require.NoError(t, err)
		}, domain.ApplyConcurrent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newApplyFixture(t)
			tt.setup(f)

			_, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
			ae := applyKind(t, err)
			assert.Equal(t, tt.want, ae.Kind)
			assert.False(t, ae.AnchorCaptured)
			assert.Empty(t, f.journal.entries)
			assert.Empty(t, f.backend.committed)
		})
	}
}

func TestApply_InvalidPlanIsRejected(t *testing.T) {
	f := newApplyFixture(t)
	f.plan.Commits = f.plan.Commits[:1]

	_, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	var perr *domain.PlanError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, f.journal.entries)
}

func TestApply_CommitRejectedThenReset(t *testing.T) {
	f := newApplyFixture(t)
	f.backend.rejectAt = 1

	report, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	ae := applyKind(t, err)
	assert.Equal(t, domain.ApplyCommitRejected, ae.Kind)
	assert.Equal(t, 1, ae.Index)
	assert.True(t, ae.AnchorCaptured)
	assert.Equal(t, domain.StateCommitting, ae.State)
	assert.Equal(t, domain.StateFailed, report.State)
	assert.Len(t, report.Commits, 1)

	hints := errors.GetAllHints(err)
	assert.Contains(t, hints, domain.HintReset)
	assert.Contains(t, hints, domain.HintRetry)

	var be *domain.BackendError
	assert.ErrorAs(t, err, &be)

	anchor, err := f.svc.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RevisionID("tip00000"), anchor.Tip)
	assert.Equal(t, domain.RevisionID("tip00000"), f.backend.head)
	require.Len(t, f.backend.restored, 1)
	require.Len(t, f.backend.released, 1)

	current, err := f.journal.Current("feature")
	require.NoError(t, err)
	assert.Nil(t, current, "reset consumes the anchor")

	_, err = f.svc.Reset(context.Background())
	assert.Equal(t, domain.ApplyNoAnchor, applyKind(t, err).Kind)
}

func TestApply_StageFailure(t *testing.T) {
	f := newApplyFixture(t)
	f.backend.stageFailAt = 0

	_, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	ae := applyKind(t, err)
	assert.Equal(t, domain.ApplyStageFailed, ae.Kind)
	assert.Equal(t, 0, ae.Index)
	assert.True(t, ae.AnchorCaptured)
}

func TestApply_IntegrityMismatchOffersResetOnly(t *testing.T) {
	f := newApplyFixture(t)
	f.backend.treeMismatch = true

	report, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	ae := applyKind(t, err)
	assert.Equal(t, domain.ApplyIntegrityMismatch, ae.Kind)
	assert.Equal(t, domain.RecoveryReset, ae.Recovery())
	assert.Equal(t, domain.StateFailed, report.State)

	hints := errors.GetAllHints(err)
	assert.Contains(t, hints, domain.HintReset)
	assert.NotContains(t, hints, domain.HintRetry)
}

func TestApply_CancelledBeforeFirstCommit(t *testing.T) {
	f := newApplyFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Apply(ctx, f.plan, f.model, application.ApplyOptions{})
	ae := applyKind(t, err)
	assert.Equal(t, domain.ApplyCancelled, ae.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.backend.committed)
	assert.Len(t, f.journal.entries, 1, "anchor stays recorded for reset")
}

func TestApply_IndexWritesIgnoreCancellation(t *testing.T) {
	f := newApplyFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.svc.Apply(ctx, f.plan, f.model, application.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, f.backend.interruptible,
		"reset and each stage run to completion once started")
}

func TestRetry_CompletesAfterFailure(t *testing.T) {
	f := newApplyFixture(t)
	f.backend.rejectAt = 1

	_, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	require.Error(t, err)

	f.backend.rejectAt = -1
	report, err := f.svc.Retry(context.Background(), f.plan, f.model, application.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, report.State)
	assert.Len(t, report.Commits, 2)
	assert.Len(t, f.journal.entries, 1, "retry reuses the existing anchor")
	require.NotNil(t, report.Anchor)
	assert.Equal(t, "anchor-1", report.Anchor.ID)
}

func TestRetry_ResumesAfterLastCreatedCommit(t *testing.T) {
	f := newApplyFixture(t)
	f.backend.rejectAt = 1

	_, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	assert.Equal(t, 1, applyKind(t, err).Index)

	last, err := f.svc.LastPlan("feature")
	require.NoError(t, err)
	require.Equal(t, 1, last.Done())
	assert.Equal(t, domain.RevisionID("new00001"), last.Progress.Created[0])

	f.backend.rejectAt = -1
	f.backend.stageCall = nil
	report, err := f.svc.Retry(context.Background(), last, f.model, application.ApplyOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, report.State)

	require.Len(t, f.backend.stageCall, 1, "only the failed commit is staged again")
	assert.Len(t, f.backend.stageCall[0], 2, "staged against the hunks of the kept commit")
	require.Len(t, report.Commits, 2)
	assert.Equal(t, domain.RevisionID("new00001"), report.Commits[0].ID)
	assert.Equal(t, domain.RevisionID("new00002"), report.Commits[1].ID)

	last, err = f.svc.LastPlan("feature")
	require.NoError(t, err)
	assert.Equal(t, 2, last.Done())
}

func TestRetry_RestartsFromBaseWhenBranchMoved(t *testing.T) {
	f := newApplyFixture(t)
	f.backend.rejectAt = 1
	_, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	require.Error(t, err)

	last, err := f.svc.LastPlan("feature")
	require.NoError(t, err)

	f.backend.rejectAt = -1
	f.backend.head = "moved000"
	f.backend.stageCall = nil
	report, err := f.svc.Retry(context.Background(), last, f.model, application.ApplyOptions{})
	require.NoError(t, err)
	assert.Len(t, f.backend.stageCall, 2)
	assert.Empty(t, f.backend.stageCall[0])
	assert.Len(t, report.Commits, 2)
}

func TestRetry_RequiresAnchor(t *testing.T) {
	f := newApplyFixture(t)
	_, err := f.svc.Retry(context.Background(), f.plan, f.model, application.ApplyOptions{})
	assert.Equal(t, domain.ApplyNoAnchor, applyKind(t, err).Kind)
}

func TestRetry_RequiresUntouchedWorktree(t *testing.T) {
	f := newApplyFixture(t)
	f.backend.rejectAt = 0
	_, err := f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	require.Error(t, err)

	f.backend.worktreeDiff = true
	_, err = f.svc.Retry(context.Background(), f.plan, f.model, application.ApplyOptions{})
	ae := applyKind(t, err)
	assert.Equal(t, domain.ApplyDirtyState, ae.Kind)
	assert.True(t, ae.AnchorCaptured)
	assert.Contains(t, errors.GetAllHints(err), domain.HintReset)
}

func TestStatus(t *testing.T) {
	f := newApplyFixture(t)

	st, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "feature", st.Branch)
	assert.Nil(t, st.Anchor)
	assert.Nil(t, st.Plan)

	_, err = f.svc.Apply(context.Background(), f.plan, f.model, application.ApplyOptions{})
	require.NoError(t, err)

	st, err = f.svc.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st.Anchor)
	require.NotNil(t, st.Plan)
	assert.Equal(t, "by-file", st.Plan.Strategy)
}
