package domain

import "time"

// ApplyState is a state of the apply engine.
type ApplyState int

const (
	StateIdle ApplyState = iota
	StateAnchorCaptured
	StateResetting
	StateCommitting
	StateDone
	StateFailed
)

func (s ApplyState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnchorCaptured:
		return "anchor-captured"
	case StateResetting:
		return "resetting"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// UndoAnchor is the pre-apply snapshot of a branch. Anchors are journaled
// per branch; the latest entry is current and Consumed marks it as used by a
// reset.
type UndoAnchor struct {
	ID         string     `json:"id"`
	Branch     string     `json:"branch"`
	Tip        RevisionID `json:"tip"`
	IndexTree  string     `json:"index_tree"`
	Base       RevisionID `json:"base,omitempty"`
	CapturedAt time.Time  `json:"captured_at"`
	Consumed   bool       `json:"consumed,omitempty"`
}

// AppliedCommit is a commit created by the apply engine.
type AppliedCommit struct {
	Index   int        `json:"index"`
	ID      RevisionID `json:"id"`
	Subject string     `json:"subject"`
}

// ApplyReport describes the outcome of an apply, successful or not.
type ApplyReport struct {
	Branch      string          `json:"branch"`
	State       ApplyState      `json:"-"`
	StateName   string          `json:"state"`
	Anchor      *UndoAnchor     `json:"anchor,omitempty"`
	Base        RevisionID      `json:"base"`
	OriginalTip RevisionID      `json:"original_tip"`
	NewTip      RevisionID      `json:"new_tip,omitempty"`
	Commits     []AppliedCommit `json:"commits"`
	Planned     int             `json:"planned"`
}

// Transition moves the report to state s.
func (r *ApplyReport) Transition(s ApplyState) {
	r.State = s
	r.StateName = s.String()
}

// Status summarizes reabsorb's recorded state for a branch.
type Status struct {
	Branch string      `json:"branch"`
	Tip    RevisionID  `json:"tip"`
	Dirty  bool        `json:"dirty"`
	Anchor *UndoAnchor `json:"anchor,omitempty"`
	Plan   *Plan       `json:"plan,omitempty"`
}
