package cli

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/tui"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// Exit statuses.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitValidation   = 2
	ExitPartialApply = 3
	ExitCollaborator = 4
)

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var ae *domain.ApplyError
	if errors.As(err, &ae) {
		switch {
		case ae.AnchorCaptured:
			return ExitPartialApply
		case ae.Kind == domain.ApplyDirtyState, ae.Kind == domain.ApplyTipMismatch:
			return ExitValidation
		}
		return ExitFailure
	}

	var le *domain.LLMError
	if errors.As(err, &le) {
		return ExitCollaborator
	}

	var de *domain.DiffError
	if errors.As(err, &de) {
		switch de.Kind {
		case domain.DiffNotAncestor, domain.DiffNoChanges, domain.DiffUnknownRevision:
			return ExitValidation
		}
		return ExitCollaborator
	}

	var (
		pe  *domain.PlanError
		se  *domain.StrategyError
		ase *domain.AssessmentError
	)
	switch {
	case errors.As(err, &pe), errors.As(err, &se):
		return ExitValidation
	case errors.As(err, &ase) && ase.Kind == domain.AssessmentRubricMismatch:
		return ExitValidation
	}

	var be *domain.BackendError
	if errors.As(err, &be) {
		return ExitCollaborator
	}
	return ExitFailure
}

// PrintError writes err and every recovery hint attached to it.
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		fmt.Fprint(w, tui.RenderHints(hints))
	}
}
