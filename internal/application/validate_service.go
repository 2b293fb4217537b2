package application

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/plan"
)

// ValidationReport describes how a persisted plan relates to the change it
// targets.
type ValidationReport struct {
	Path   string             `json:"path"`
	Plan   *domain.Plan       `json:"plan"`
	Valid  bool               `json:"valid"`
	Diff   plan.Diff          `json:"diff"`
	Issues []domain.PlanIssue `json:"issues,omitempty"`
}

// ValidateService checks saved plans against the current repository.
type ValidateService struct {
	plans *PlanService
}

func NewValidateService(plans *PlanService) *ValidateService {
	return &ValidateService{plans: plans}
}

// ValidateFile loads the plan at path and validates it against the change
// model for its base and tip. An invalid plan returns both the report and
// the *domain.PlanError.
func (s *ValidateService) ValidateFile(ctx context.Context, path string) (*ValidationReport, error) {
	p, err := s.plans.store.Load(path)
	if err != nil {
		return nil, err
	}
	cm, err := s.plans.BuildChangeModel(ctx, p.Base, p.Tip)
	if err != nil {
		return nil, err
	}
	return s.Validate(path, p, cm)
}

// Validate checks p against cm.
func (s *ValidateService) Validate(path string, p *domain.Plan, cm *domain.ChangeModel) (*ValidationReport, error) {
	report := &ValidationReport{Path: path, Plan: p, Diff: plan.Compare(p, cm)}
	err := plan.Validate(p, cm)
	if err == nil {
		report.Valid = true
		return report, nil
	}
	var perr *domain.PlanError
	if errors.As(err, &perr) {
		report.Issues = perr.Issues
	}
	return report, errors.WithHint(err, domain.HintHandEdit)
}
