package domain

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
)

// Recovery names the action a user can take after a failure.
type Recovery string

const (
	RecoveryNone        Recovery = ""
	RecoveryReset       Recovery = "reset"
	RecoveryRetry       Recovery = "retry"
	RecoveryFixAndRetry Recovery = "fix-and-retry-apply"
)

// Hints attached to errors. They are printed by the CLI after the error.
const (
	HintReset     = "run `reabsorb reset` to restore the branch exactly as it was before apply"
	HintRetry     = "fix the blocking condition (for example a failing hook) and run `reabsorb apply --retry`"
	HintRerun     = "the branch was not modified; fix the problem and run reabsorb again"
	HintLLMRetry  = "the language model could not be reached; check provider settings and retry"
	HintStrategy  = "pick one of: preserve, by-file, squash, llm, hierarchical"
	HintHandEdit  = "if the plan was edited by hand, fix the listed hunks or regenerate it with `reabsorb plan --save-plan`"
	HintThreshold = "raise hierarchical.threshold or llm.request_budget in .reabsorb.yaml, or use another strategy"
)

// ErrLockHeld is returned by a BranchLocker when another process holds the
// branch lock.
var ErrLockHeld = errors.New("branch lock is held by another process")

// ErrNoSavedPlan is returned by PlanStore.Load when no plan exists at path.
var ErrNoSavedPlan = errors.New("no saved plan")

type DiffErrorKind string

const (
	DiffNotAncestor     DiffErrorKind = "not-ancestor"
	DiffUnknownRevision DiffErrorKind = "unknown-revision"
	DiffBackend         DiffErrorKind = "backend"
	DiffNoChanges       DiffErrorKind = "no-changes"
	DiffMalformed       DiffErrorKind = "malformed"
)

// DiffError reports that a change model could not be built.
type DiffError struct {
	Kind DiffErrorKind
	Base RevisionID
	Tip  RevisionID
	Err  error
}

func (e *DiffError) Error() string {
	var msg string
	switch e.Kind {
	case DiffNotAncestor:
		msg = fmt.Sprintf("base %s is not an ancestor of %s", e.Base.Short(), e.Tip.Short())
	case DiffNoChanges:
		msg = fmt.Sprintf("no changes between %s and %s", e.Base.Short(), e.Tip.Short())
	case DiffUnknownRevision:
		msg = "unknown revision"
	default:
		msg = fmt.Sprintf("computing diff %s..%s", e.Base.Short(), e.Tip.Short())
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *DiffError) Unwrap() error { return e.Err }

type PlanIssueKind string

const (
	IssueMissingHunks     PlanIssueKind = "missing-hunks"
	IssueDuplicateHunk    PlanIssueKind = "duplicate-hunk"
	IssueOrderViolation   PlanIssueKind = "order-violation"
	IssueUnknownHunk      PlanIssueKind = "unknown-hunk"
	IssueEmptyCommit      PlanIssueKind = "empty-commit"
	IssueEmptyPlan        PlanIssueKind = "empty-plan"
	IssueEmptyMessage     PlanIssueKind = "empty-message"
	IssueStaleChangeModel PlanIssueKind = "stale-change-model"
)

// PlanIssue is one validation finding.
type PlanIssue struct {
	Kind    PlanIssueKind `json:"kind"`
	Hunks   []HunkID      `json:"hunks,omitempty"`
	Commits []int         `json:"commits,omitempty"`
	Path    string        `json:"path,omitempty"`
}

func (i PlanIssue) Error() string {
	switch i.Kind {
	case IssueMissingHunks:
		return fmt.Sprintf("hunks %s are not in any commit", formatIDs(i.Hunks))
	case IssueDuplicateHunk:
		return fmt.Sprintf("hunk %s appears in commits %s", formatIDs(i.Hunks), formatInts(i.Commits))
	case IssueOrderViolation:
		return fmt.Sprintf("%s: hunk %d (commit %d) must not come after hunk %d (commit %d)",
			i.Path, i.Hunks[0], i.Commits[0]+1, i.Hunks[1], i.Commits[1]+1)
	case IssueUnknownHunk:
		return fmt.Sprintf("commit %s references unknown hunks %s", formatInts(i.Commits), formatIDs(i.Hunks))
	case IssueEmptyCommit:
		return fmt.Sprintf("commit %s has no hunks", formatInts(i.Commits))
	case IssueEmptyPlan:
		return "plan has no commits"
	case IssueEmptyMessage:
		return fmt.Sprintf("commit %s has an empty message", formatInts(i.Commits))
	case IssueStaleChangeModel:
		return "plan was built for a different set of changes"
	}
	return string(i.Kind)
}

// PlanError carries every issue found while validating a plan.
type PlanError struct {
	Issues []PlanIssue
	errs   *multierror.Error
}

// NewPlanError aggregates issues. It returns nil when there are none.
func NewPlanError(issues []PlanIssue) *PlanError {
	if len(issues) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, issue := range issues {
		merr = multierror.Append(merr, issue)
	}
	merr.ErrorFormat = func(es []error) string {
		parts := make([]string, len(es))
		for i, e := range es {
			parts[i] = e.Error()
		}
		return strings.Join(parts, "; ")
	}
	return &PlanError{Issues: issues, errs: merr}
}

func (e *PlanError) Error() string {
	if e.errs == nil {
		return "invalid plan"
	}
	return "invalid plan: " + e.errs.Error()
}

func (e *PlanError) Unwrap() error {
	if e.errs == nil {
		return nil
	}
	return e.errs.ErrorOrNil()
}

// Has reports whether any issue has the given kind.
func (e *PlanError) Has(kind PlanIssueKind) bool {
	for _, i := range e.Issues {
		if i.Kind == kind {
			return true
		}
	}
	return false
}

type StrategyErrorKind string

const (
	StrategyUnknown           StrategyErrorKind = "unknown-strategy"
	StrategyInvalidLLMOutput  StrategyErrorKind = "invalid-llm-output"
	StrategyOversizedRequest  StrategyErrorKind = "oversized-request"
	StrategyPartitionTooLarge StrategyErrorKind = "partition-too-large"
	StrategyMissingInput      StrategyErrorKind = "missing-input"
)

// StrategyError reports that a strategy could not produce a valid plan.
// Raw holds the last language model response when one was received.
type StrategyError struct {
	Kind     StrategyErrorKind
	Strategy string
	Detail   string
	Raw      string
	Err      error
}

func (e *StrategyError) Error() string {
	msg := fmt.Sprintf("strategy %q: %s", e.Strategy, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StrategyError) Unwrap() error { return e.Err }

type ApplyErrorKind string

const (
	ApplyDirtyState        ApplyErrorKind = "dirty-state"
	ApplyTipMismatch       ApplyErrorKind = "tip-mismatch"
	ApplyConcurrent        ApplyErrorKind = "concurrent-apply"
	ApplyStageFailed       ApplyErrorKind = "stage-failed"
	ApplyCommitRejected    ApplyErrorKind = "commit-rejected"
	ApplyCancelled         ApplyErrorKind = "cancelled"
	ApplyIntegrityMismatch ApplyErrorKind = "integrity-mismatch"
	ApplyResetFailed       ApplyErrorKind = "reset-failed"
	ApplyNoAnchor          ApplyErrorKind = "no-anchor"
)

// ApplyError reports a failure of the apply engine. Once AnchorCaptured is
// set the branch may have been rewritten and the anchor is the way back.
type ApplyError struct {
	Kind           ApplyErrorKind
	State          ApplyState
	Index          int
	AnchorCaptured bool
	Err            error
}

func (e *ApplyError) Error() string {
	var msg string
	switch e.Kind {
	case ApplyDirtyState:
		msg = "working tree has local modifications"
	case ApplyTipMismatch:
		msg = "branch tip moved since the plan was made"
	case ApplyConcurrent:
		msg = "another apply is in progress on this branch"
	case ApplyStageFailed:
		msg = fmt.Sprintf("staging commit %d failed", e.Index+1)
	case ApplyCommitRejected:
		msg = fmt.Sprintf("commit %d was rejected", e.Index+1)
	case ApplyCancelled:
		msg = fmt.Sprintf("apply cancelled before commit %d", e.Index+1)
	case ApplyIntegrityMismatch:
		msg = "rewritten branch does not match the original tip"
	case ApplyResetFailed:
		msg = "restoring the undo anchor failed"
	case ApplyNoAnchor:
		msg = "no undo anchor recorded for this branch"
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Recovery returns the action available after this failure.
func (e *ApplyError) Recovery() Recovery {
	switch {
	case e.Kind == ApplyResetFailed:
		return RecoveryReset
	case e.AnchorCaptured && e.Kind == ApplyIntegrityMismatch:
		return RecoveryReset
	case e.AnchorCaptured:
		return RecoveryFixAndRetry
	case e.Kind == ApplyConcurrent:
		return RecoveryRetry
	}
	return RecoveryNone
}

type AssessmentErrorKind string

const (
	AssessmentRubricMismatch AssessmentErrorKind = "rubric-mismatch"
	AssessmentEmptyRange     AssessmentErrorKind = "empty-range"
)

// AssessmentError reports a failure scoring or comparing assessments.
type AssessmentError struct {
	Kind   AssessmentErrorKind
	Before string
	After  string
}

func (e *AssessmentError) Error() string {
	if e.Kind == AssessmentRubricMismatch {
		return fmt.Sprintf("rubric mismatch: %s vs %s", e.Before, e.After)
	}
	return "no commits to assess"
}

type LLMErrorKind string

const (
	LLMTimeout           LLMErrorKind = "timeout"
	LLMUnreachable       LLMErrorKind = "unreachable"
	LLMMalformedResponse LLMErrorKind = "malformed-response"
)

// LLMError reports a failed language model request.
type LLMError struct {
	Kind     LLMErrorKind
	Provider string
	Raw      string
	Err      error
}

func (e *LLMError) Error() string {
	msg := fmt.Sprintf("llm %s: %s", e.Provider, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LLMError) Unwrap() error { return e.Err }

// BackendError wraps a failed version control operation.
type BackendError struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *BackendError) Error() string {
	msg := "git " + e.Op
	if len(e.Args) > 0 {
		msg += " " + strings.Join(e.Args, " ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsKind helpers keep call sites short.

func IsApplyKind(err error, kind ApplyErrorKind) bool {
	var ae *ApplyError
	return errors.As(err, &ae) && ae.Kind == kind
}

func IsStrategyKind(err error, kind StrategyErrorKind) bool {
	var se *StrategyError
	return errors.As(err, &se) && se.Kind == kind
}

func IsLLMKind(err error, kind LLMErrorKind) bool {
	var le *LLMError
	return errors.As(err, &le) && le.Kind == kind
}

func formatIDs(ids []HunkID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

func formatInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n+1)
	}
	return strings.Join(parts, ",")
}
