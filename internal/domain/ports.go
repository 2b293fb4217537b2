package domain

import "context"

// ChangeSource reads revisions and diffs from the repository.
type ChangeSource interface {
	ResolveRevision(ctx context.Context, rev string) (RevisionID, error)
	DefaultBase(ctx context.Context) (RevisionID, error)
	CurrentTip(ctx context.Context) (RevisionID, error)
	IsAncestor(ctx context.Context, base, tip RevisionID) (bool, error)
	ComputeDiff(ctx context.Context, base, tip RevisionID) ([]Hunk, error)
	SourceCommits(ctx context.Context, base, tip RevisionID) ([]SourceCommit, error)
}

// HistoryReader reads per-commit statistics for assessment.
type HistoryReader interface {
	CurrentBranch(ctx context.Context) (string, error)
	CurrentTip(ctx context.Context) (RevisionID, error)
	CommitStats(ctx context.Context, base, tip RevisionID) ([]CommitStat, error)
}

// Workspace mutates the branch, index and working tree.
type Workspace interface {
	CurrentBranch(ctx context.Context) (string, error)
	CurrentTip(ctx context.Context) (RevisionID, error)
	IsDirty(ctx context.Context) (bool, error)
	WorktreeMatches(ctx context.Context, rev RevisionID) (bool, error)
	SoftReset(ctx context.Context, rev RevisionID) error
	// Stage adds exactly hunks to the index. applied lists the hunks already
	// committed since the reset, which shift line positions in the index.
	Stage(ctx context.Context, hunks, applied []Hunk) error
	Commit(ctx context.Context, message string, noVerify bool) (RevisionID, error)
	CaptureAnchor(ctx context.Context, branch string) (UndoAnchor, error)
	RestoreAnchor(ctx context.Context, anchor UndoAnchor) error
	ReleaseAnchor(ctx context.Context, anchor UndoAnchor) error
	TreesEqual(ctx context.Context, a, b RevisionID) (bool, error)
}

// Backend is the full version control collaborator.
type Backend interface {
	ChangeSource
	HistoryReader
	Workspace
	// StateDir is where reabsorb keeps plans, anchors and locks.
	StateDir() string
	// Root is the working tree root.
	Root() string
}

// LLMClient turns a grouping request into a grouping response.
type LLMClient interface {
	Group(ctx context.Context, req *GroupingRequest) (*GroupingResponse, error)
}

// PlanStore persists plans as versioned documents.
type PlanStore interface {
	Save(path string, p *Plan) error
	Load(path string) (*Plan, error)
}

// AnchorJournal is an append-only log of undo anchors keyed by branch.
type AnchorJournal interface {
	Append(anchor UndoAnchor) error
	// Current returns the latest unconsumed anchor, or nil.
	Current(branch string) (*UndoAnchor, error)
	Entries(branch string) ([]UndoAnchor, error)
}

// BranchLocker grants exclusive apply access to a branch.
type BranchLocker interface {
	Lock(branch string) (unlock func() error, err error)
}

// SnapshotStore saves and loads assessment snapshots.
type SnapshotStore interface {
	Save(path string, score *AssessmentScore) error
	Load(path string) (*AssessmentScore, error)
	Record(score *AssessmentScore) (string, error)
	History() ([]AssessmentScore, error)
}

// ConfigLoader loads configuration for a repository.
type ConfigLoader interface {
	Load(repoRoot string) (Config, error)
}
