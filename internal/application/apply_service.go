package application

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/plan"
)

// ApplyService rewrites a branch according to a plan:
// lock → validate → anchor → soft reset → stage and commit each spec → verify tree.
type ApplyService struct {
	backend domain.Backend
	journal domain.AnchorJournal
	locker  domain.BranchLocker
	plans   domain.PlanStore
	logger  *zap.Logger
}

func NewApplyService(
	backend domain.Backend,
	journal domain.AnchorJournal,
	locker domain.BranchLocker,
	plans domain.PlanStore,
	logger *zap.Logger,
) *ApplyService {
	return &ApplyService{
		backend: backend,
		journal: journal,
		locker:  locker,
		plans:   plans,
		logger:  logger.Named("apply"),
	}
}

// ApplyOptions tune a single apply.
type ApplyOptions struct {
	NoVerify bool
}

// Apply rewrites the current branch so that its commits are exactly p's
// specs on top of p.Base. The resulting tree always equals the original tip
// tree. On failure after the anchor is captured the returned error carries
// the recovery hints and the report records how far the apply got.
func (s *ApplyService) Apply(ctx context.Context, p *domain.Plan, cm *domain.ChangeModel, opts ApplyOptions) (*domain.ApplyReport, error) {
	branch, unlock, err := s.lockBranch(ctx)
	if err != nil {
		return nil, err
	}
	defer s.unlock(unlock)

	report := newReport(branch, p)
	log := s.logger.With(zap.String("branch", branch))

	// 1. Validate against the live repository
	tip, err := s.backend.CurrentTip(ctx)
	if err != nil {
		return report, err
	}
	if tip != p.Tip {
		return report, errors.WithHint(&domain.ApplyError{
			Kind:  domain.ApplyTipMismatch,
			State: domain.StateIdle,
			Err:   fmt.Errorf("plan targets %s, branch is at %s", p.Tip.Short(), tip.Short()),
		}, "regenerate the plan for the current tip")
	}
	if err := plan.Validate(p, cm); err != nil {
		return report, errors.WithHint(err, domain.HintHandEdit)
	}

	// 2. Idle → AnchorCaptured
	dirty, err := s.backend.IsDirty(ctx)
	if err != nil {
		return report, err
	}
	if dirty {
		return report, errors.WithHint(&domain.ApplyError{Kind: domain.ApplyDirtyState, State: domain.StateIdle},
			"commit or stash your changes first")
	}

	anchor, err := s.backend.CaptureAnchor(ctx, branch)
	if err != nil {
		return report, fmt.Errorf("capturing undo anchor: %w", err)
	}
	anchor.Base = p.Base
	if err := s.journal.Append(anchor); err != nil {
		if rerr := s.backend.ReleaseAnchor(ctx, anchor); rerr != nil {
			log.Warn("releasing unrecorded anchor", zap.Error(rerr))
		}
		return report, fmt.Errorf("recording undo anchor: %w", err)
	}
	report.Anchor = &anchor
	report.Transition(domain.StateAnchorCaptured)
	log.Info("captured undo anchor", zap.String("anchor", anchor.ID), zap.String("tip", anchor.Tip.Short()))

	return s.rewrite(ctx, p, cm, report, opts, 0, log)
}

// Retry re-runs an apply that failed after its anchor was captured. The
// working tree must still hold the anchor's content. When p carries the
// progress of the failed run and the branch still ends at its last created
// commit, the apply resumes after that commit; otherwise it starts again
// from the base.
func (s *ApplyService) Retry(ctx context.Context, p *domain.Plan, cm *domain.ChangeModel, opts ApplyOptions) (*domain.ApplyReport, error) {
	branch, unlock, err := s.lockBranch(ctx)
	if err != nil {
		return nil, err
	}
	defer s.unlock(unlock)

	report := newReport(branch, p)
	log := s.logger.With(zap.String("branch", branch), zap.Bool("retry", true))

	anchor, err := s.currentAnchor(branch)
	if err != nil {
		return report, err
	}
	report.Anchor = anchor

	if anchor.Tip != p.Tip {
		return report, errors.WithHint(&domain.ApplyError{
			Kind:           domain.ApplyTipMismatch,
			State:          domain.StateIdle,
			AnchorCaptured: true,
			Err:            fmt.Errorf("plan targets %s, anchor is %s", p.Tip.Short(), anchor.Tip.Short()),
		}, domain.HintReset)
	}
	if err := plan.Validate(p, cm); err != nil {
		return report, errors.WithHint(err, domain.HintHandEdit)
	}

	matches, err := s.backend.WorktreeMatches(ctx, anchor.Tip)
	if err != nil {
		return report, err
	}
	if !matches {
		return report, errors.WithHint(&domain.ApplyError{
			Kind:           domain.ApplyDirtyState,
			State:          domain.StateAnchorCaptured,
			AnchorCaptured: true,
			Err:            fmt.Errorf("working tree no longer matches %s", anchor.Tip.Short()),
		}, domain.HintReset)
	}

	report.Transition(domain.StateAnchorCaptured)
	start := s.resumePoint(ctx, p, log)
	log.Info("retrying from existing anchor", zap.String("anchor", anchor.ID), zap.Int("resume_at", start+1))
	return s.rewrite(ctx, p, cm, report, opts, start, log)
}

// resumePoint is the index of the first spec still to commit.
func (s *ApplyService) resumePoint(ctx context.Context, p *domain.Plan, log *zap.Logger) int {
	done := p.Done()
	if done == 0 || done > len(p.Commits) {
		return 0
	}
	head, err := s.backend.CurrentTip(ctx)
	if err != nil {
		log.Warn("reading branch tip, restarting from base", zap.Error(err))
		return 0
	}
	last := p.Progress.Created[done-1]
	if head != last {
		log.Info("branch moved since the failed apply, restarting from base",
			zap.String("head", head.Short()), zap.String("expected", last.Short()))
		return 0
	}
	return done
}

func (s *ApplyService) rewrite(ctx context.Context, p *domain.Plan, cm *domain.ChangeModel, report *domain.ApplyReport, opts ApplyOptions, start int, log *zap.Logger) (*domain.ApplyReport, error) {
	// index writers are never interrupted mid-run; cancellation is checked
	// between commits
	mut := context.WithoutCancel(ctx)

	run := *p
	run.Progress = &domain.Progress{}
	if start > 0 {
		run.Progress.Created = append(run.Progress.Created, p.Progress.Created[:start]...)
	}
	s.remember(report.Branch, &run, log)

	// 3. Resetting
	report.Transition(domain.StateResetting)
	from := run.Base
	if start > 0 {
		from = run.Progress.Created[start-1]
	}
	if err := s.backend.SoftReset(mut, from); err != nil {
		return report, s.fail(report, domain.ApplyStageFailed, start, err, log)
	}

	// 4. Committing(i)
	var applied []domain.Hunk
	for i, spec := range run.Commits {
		hunks := make([]domain.Hunk, 0, len(spec.Hunks))
		for _, id := range spec.Hunks {
			h, _ := cm.Hunk(id)
			hunks = append(hunks, h)
		}
		if i < start {
			applied = append(applied, hunks...)
			report.Commits = append(report.Commits, domain.AppliedCommit{Index: i, ID: run.Progress.Created[i], Subject: spec.Subject()})
			continue
		}

		if err := ctx.Err(); err != nil {
			return report, s.fail(report, domain.ApplyCancelled, i, err, log)
		}
		report.Transition(domain.StateCommitting)

		if err := s.backend.Stage(mut, hunks, applied); err != nil {
			return report, s.fail(report, domain.ApplyStageFailed, i, err, log)
		}
		id, err := s.backend.Commit(mut, spec.Message, opts.NoVerify)
		if err != nil {
			return report, s.fail(report, domain.ApplyCommitRejected, i, err, log)
		}
		applied = append(applied, hunks...)
		report.Commits = append(report.Commits, domain.AppliedCommit{Index: i, ID: id, Subject: spec.Subject()})
		run.Progress = &domain.Progress{Created: append(append([]domain.RevisionID(nil), run.Progress.Created...), id)}
		s.remember(report.Branch, &run, log)
		log.Info("committed",
			zap.Int("commit", i+1),
			zap.Int("of", len(p.Commits)),
			zap.String("id", id.Short()),
			zap.String("subject", spec.Subject()))
	}

	// 5. Done
	newTip, err := s.backend.CurrentTip(ctx)
	if err != nil {
		return report, s.fail(report, domain.ApplyIntegrityMismatch, len(p.Commits), err, log)
	}
	report.NewTip = newTip
	equal, err := s.backend.TreesEqual(ctx, newTip, p.Tip)
	if err != nil {
		return report, s.fail(report, domain.ApplyIntegrityMismatch, len(p.Commits), err, log)
	}
	if !equal {
		return report, s.fail(report, domain.ApplyIntegrityMismatch, len(p.Commits),
			fmt.Errorf("tree of %s differs from %s", newTip.Short(), p.Tip.Short()), log)
	}

	report.Transition(domain.StateDone)
	log.Info("apply complete", zap.String("new_tip", newTip.Short()), zap.Int("commits", len(report.Commits)))
	return report, nil
}

// fail moves the report to Failed and builds the hinted error.
func (s *ApplyService) fail(report *domain.ApplyReport, kind domain.ApplyErrorKind, index int, cause error, log *zap.Logger) error {
	ae := &domain.ApplyError{
		Kind:           kind,
		State:          report.State,
		Index:          index,
		AnchorCaptured: true,
		Err:            cause,
	}
	report.Transition(domain.StateFailed)
	log.Error("apply failed",
		zap.String("kind", string(kind)),
		zap.String("state", ae.State.String()),
		zap.Int("commit", index+1),
		zap.Error(cause))

	var err error = ae
	if ae.Recovery() == domain.RecoveryFixAndRetry {
		err = errors.WithHint(err, domain.HintRetry)
	}
	return errors.WithHint(err, domain.HintReset)
}

// Reset restores the branch, index and working tree to the current anchor
// and consumes it.
func (s *ApplyService) Reset(ctx context.Context) (*domain.UndoAnchor, error) {
	branch, unlock, err := s.lockBranch(ctx)
	if err != nil {
		return nil, err
	}
	defer s.unlock(unlock)

	anchor, err := s.currentAnchor(branch)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("branch", branch), zap.String("anchor", anchor.ID))

	if err := s.backend.RestoreAnchor(ctx, *anchor); err != nil {
		return nil, errors.WithHint(&domain.ApplyError{
			Kind:           domain.ApplyResetFailed,
			AnchorCaptured: true,
			Err:            err,
		}, "the anchor is still recorded; fix the error and run `reabsorb reset` again")
	}

	consumed := *anchor
	consumed.Consumed = true
	if err := s.journal.Append(consumed); err != nil {
		return nil, fmt.Errorf("recording reset: %w", err)
	}
	if err := s.backend.ReleaseAnchor(ctx, *anchor); err != nil {
		log.Warn("releasing anchor ref", zap.Error(err))
	}
	log.Info("branch restored", zap.String("tip", anchor.Tip.Short()))
	return anchor, nil
}

// Status reports the branch state and any recorded anchor and plan.
func (s *ApplyService) Status(ctx context.Context) (*domain.Status, error) {
	branch, err := s.backend.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	tip, err := s.backend.CurrentTip(ctx)
	if err != nil {
		return nil, err
	}
	dirty, err := s.backend.IsDirty(ctx)
	if err != nil {
		return nil, err
	}
	anchor, err := s.journal.Current(branch)
	if err != nil {
		return nil, err
	}
	st := &domain.Status{Branch: branch, Tip: tip, Dirty: dirty, Anchor: anchor}
	if p, err := s.LastPlan(branch); err == nil {
		st.Plan = p
	} else if !errors.Is(err, domain.ErrNoSavedPlan) {
		s.logger.Warn("reading last plan", zap.Error(err))
	}
	return st, nil
}

// LastPlan returns the plan most recently applied to branch.
func (s *ApplyService) LastPlan(branch string) (*domain.Plan, error) {
	return s.plans.Load(s.lastPlanPath(branch))
}

func (s *ApplyService) lastPlanPath(branch string) string {
	return filepath.Join(s.backend.StateDir(), "plans", filepath.FromSlash(branch)+".json")
}

func (s *ApplyService) remember(branch string, p *domain.Plan, log *zap.Logger) {
	if err := s.plans.Save(s.lastPlanPath(branch), p); err != nil {
		log.Warn("saving applied plan", zap.Error(err))
	}
}

func (s *ApplyService) lockBranch(ctx context.Context) (string, func() error, error) {
	branch, err := s.backend.CurrentBranch(ctx)
	if err != nil {
		return "", nil, err
	}
	unlock, err := s.locker.Lock(branch)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return "", nil, errors.WithHint(&domain.ApplyError{Kind: domain.ApplyConcurrent, Err: err},
				"wait for the other reabsorb process to finish")
		}
		return "", nil, fmt.Errorf("locking branch %s: %w", branch, err)
	}
	return branch, unlock, nil
}

func (s *ApplyService) unlock(unlock func() error) {
	if err := unlock(); err != nil {
		s.logger.Warn("releasing branch lock", zap.Error(err))
	}
}

func (s *ApplyService) currentAnchor(branch string) (*domain.UndoAnchor, error) {
	anchor, err := s.journal.Current(branch)
	if err != nil {
		return nil, fmt.Errorf("reading anchor journal: %w", err)
	}
	if anchor == nil {
		return nil, errors.WithHint(&domain.ApplyError{Kind: domain.ApplyNoAnchor},
			"nothing to undo: no apply has run on this branch since the last reset")
	}
	return anchor, nil
}

func newReport(branch string, p *domain.Plan) *domain.ApplyReport {
	r := &domain.ApplyReport{
		Branch:      branch,
		Base:        p.Base,
		OriginalTip: p.Tip,
		Planned:     len(p.Commits),
	}
	r.Transition(domain.StateIdle)
	return r
}
