package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// fakeBackend models a repository as a list of hunks and a list of commits,
// each commit holding the hunks staged for it.
type fakeBackend struct {
	branch  string
	base    domain.RevisionID
	tip     domain.RevisionID
	head    domain.RevisionID
	hunks   []domain.Hunk
	sources []domain.SourceCommit
	stats   []domain.CommitStat

	notAncestor  bool
	dirty        bool
	worktreeDiff bool
	sourceErr    error
	diffErr      error
	stageFailAt  int
	rejectAt     int
	treeMismatch bool

	staged    []domain.Hunk
	committed [][]domain.Hunk
	messages  []string
	noVerify  []bool
	stageCall [][]domain.Hunk // applied argument per Stage call
	// interruptible records, per index write, whether its context could be cancelled
	interruptible []bool
	restored  []domain.UndoAnchor
	released  []domain.UndoAnchor
	stateDir  string
}

func newFakeBackend(hunks []domain.Hunk) *fakeBackend {
	return &fakeBackend{
		branch:      "feature",
		base:        "base0000",
		tip:         "tip00000",
		head:        "tip00000",
		hunks:       hunks,
		stageFailAt: -1,
		rejectAt:    -1,
		stateDir:    "/repo/.git/reabsorb",
	}
}

func (b *fakeBackend) ResolveRevision(_ context.Context, rev string) (domain.RevisionID, error) {
	switch rev {
	case "main", string(b.base):
		return b.base, nil
	case "HEAD", string(b.tip):
		return b.tip, nil
	}
	return "", fmt.Errorf("unknown revision %q", rev)
}

func (b *fakeBackend) DefaultBase(context.Context) (domain.RevisionID, error) { return b.base, nil }
func (b *fakeBackend) CurrentTip(context.Context) (domain.RevisionID, error)  { return b.head, nil }
func (b *fakeBackend) CurrentBranch(context.Context) (string, error)          { return b.branch, nil }

func (b *fakeBackend) IsAncestor(context.Context, domain.RevisionID, domain.RevisionID) (bool, error) {
	return !b.notAncestor, nil
}

func (b *fakeBackend) ComputeDiff(context.Context, domain.RevisionID, domain.RevisionID) ([]domain.Hunk, error) {
	return b.hunks, b.diffErr
}

func (b *fakeBackend) SourceCommits(context.Context, domain.RevisionID, domain.RevisionID) ([]domain.SourceCommit, error) {
	return b.sources, b.sourceErr
}

func (b *fakeBackend) CommitStats(context.Context, domain.RevisionID, domain.RevisionID) ([]domain.CommitStat, error) {
	return b.stats, nil
}

func (b *fakeBackend) IsDirty(context.Context) (bool, error) { return b.dirty, nil }

func (b *fakeBackend) WorktreeMatches(context.Context, domain.RevisionID) (bool, error) {
	return !b.worktreeDiff, nil
}

func (b *fakeBackend) SoftReset(ctx context.Context, rev domain.RevisionID) error {
	b.interruptible = append(b.interruptible, ctx.Done() != nil)
	b.head = rev
	b.staged = nil
	// resetting to a rewritten commit keeps the commits below it
	if rev == b.base {
		b.committed = nil
		b.messages = nil
	}
	return nil
}

func (b *fakeBackend) Stage(ctx context.Context, hunks, applied []domain.Hunk) error {
	b.interruptible = append(b.interruptible, ctx.Done() != nil)
	b.stageCall = append(b.stageCall, applied)
	if len(b.committed) == b.stageFailAt {
		return &domain.BackendError{Op: "apply", Stderr: "patch does not apply"}
	}
	b.staged = hunks
	return nil
}

func (b *fakeBackend) Commit(_ context.Context, message string, noVerify bool) (domain.RevisionID, error) {
	if len(b.committed) == b.rejectAt {
		return "", &domain.BackendError{Op: "commit", Stderr: "hook declined"}
	}
	b.committed = append(b.committed, b.staged)
	b.messages = append(b.messages, message)
	b.noVerify = append(b.noVerify, noVerify)
	b.staged = nil
	b.head = domain.RevisionID(fmt.Sprintf("new%05d", len(b.committed)))
	return b.head, nil
}

func (b *fakeBackend) CaptureAnchor(_ context.Context, branch string) (domain.UndoAnchor, error) {
	return domain.UndoAnchor{
		ID:         "anchor-1",
		Branch:     branch,
		Tip:        b.head,
		IndexTree:  "indextree",
		CapturedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

func (b *fakeBackend) RestoreAnchor(_ context.Context, a domain.UndoAnchor) error {
	b.restored = append(b.restored, a)
	b.head = a.Tip
	b.committed = nil
	return nil
}

func (b *fakeBackend) ReleaseAnchor(_ context.Context, a domain.UndoAnchor) error {
	b.released = append(b.released, a)
	return nil
}

// TreesEqual holds when every hunk has been committed exactly once.
func (b *fakeBackend) TreesEqual(context.Context, domain.RevisionID, domain.RevisionID) (bool, error) {
	if b.treeMismatch {
		return false, nil
	}
	n := 0
	for _, c := range b.committed {
		n += len(c)
	}
	return n == len(b.hunks), nil
}

func (b *fakeBackend) StateDir() string { return b.stateDir }
func (b *fakeBackend) Root() string     { return "/repo" }

type memJournal struct {
	entries []domain.UndoAnchor
}

func (j *memJournal) Append(a domain.UndoAnchor) error {
	j.entries = append(j.entries, a)
	return nil
}

func (j *memJournal) Current(branch string) (*domain.UndoAnchor, error) {
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].Branch != branch {
			continue
		}
		if j.entries[i].Consumed {
			return nil, nil
		}
		a := j.entries[i]
		return &a, nil
	}
	return nil, nil
}

func (j *memJournal) Entries(branch string) ([]domain.UndoAnchor, error) {
	var out []domain.UndoAnchor
	for _, e := range j.entries {
		if e.Branch == branch {
			out = append(out, e)
		}
	}
	return out, nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Lock(branch string) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[branch] {
		return nil, domain.ErrLockHeld
	}
	l.held[branch] = true
	return func() error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, branch)
		return nil
	}, nil
}

type memPlans struct {
	plans map[string]*domain.Plan
}

func (m *memPlans) Save(path string, p *domain.Plan) error {
	if m.plans == nil {
		m.plans = map[string]*domain.Plan{}
	}
	cp := *p
	m.plans[path] = &cp
	return nil
}

func (m *memPlans) Load(path string) (*domain.Plan, error) {
	p, ok := m.plans[path]
	if !ok {
		return nil, domain.ErrNoSavedPlan
	}
	cp := *p
	return &cp, nil
}

type memSnapshots struct {
	files    map[string]*domain.AssessmentScore
	recorded []domain.AssessmentScore
}

func (m *memSnapshots) Save(path string, s *domain.AssessmentScore) error {
	if m.files == nil {
		m.files = map[string]*domain.AssessmentScore{}
	}
	m.files[path] = s
	return nil
}

func (m *memSnapshots) Load(path string) (*domain.AssessmentScore, error) {
	s, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	return s, nil
}

func (m *memSnapshots) Record(s *domain.AssessmentScore) (string, error) {
	m.recorded = append(m.recorded, *s)
	return fmt.Sprintf("history/%d.json", len(m.recorded)), nil
}

func (m *memSnapshots) History() ([]domain.AssessmentScore, error) { return m.recorded, nil }

func lines(op domain.LineOp, texts ...string) []domain.DiffLine {
	out := make([]domain.DiffLine, len(texts))
	for i, t := range texts {
		out[i] = domain.DiffLine{Op: op, Text: t}
	}
	return out
}

// exampleHunks: x.txt lines 1-2, new y.txt, x.txt lines 10-12.
func exampleHunks() []domain.Hunk {
	return []domain.Hunk{
		{Path: "x.txt", Kind: domain.ChangeModify, OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 2,
			Lines: append(lines(domain.LineDelete, "a", "b"), lines(domain.LineAdd, "A", "B")...)},
		{Path: "y.txt", Kind: domain.ChangeAdd, NewStart: 1, NewLines: 1, Lines: lines(domain.LineAdd, "y")},
		{Path: "x.txt", Kind: domain.ChangeModify, OldStart: 10, OldLines: 3, NewStart: 10, NewLines: 3,
			Lines: append(lines(domain.LineDelete, "j", "k", "l"), lines(domain.LineAdd, "J", "K", "L")...)},
	}
}
