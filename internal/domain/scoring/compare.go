package scoring

import (
	"github.com/cockroachdb/errors"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// SignificantChange is how far a criterion must move to count as an
// improvement or a regression.
const SignificantChange = 0.1

const epsilon = 1e-9

// Compare reports how after differs from before. Both must have been scored
// under the same rubric version.
func Compare(before, after *domain.AssessmentScore) (*domain.Delta, error) {
	if before == nil || after == nil {
		return nil, errors.New("compare needs two assessments")
	}
	if before.RubricVersion != after.RubricVersion {
		return nil, errors.WithHint(&domain.AssessmentError{
			Kind:   domain.AssessmentRubricMismatch,
			Before: before.RubricVersion,
			After:  after.RubricVersion,
		}, "re-run assess under the same assessment.weights for both snapshots")
	}

	d := &domain.Delta{
		RubricVersion: before.RubricVersion,
		Before:        before,
		After:         after,
		Criteria:      make(map[domain.Criterion]float64, len(domain.Criteria)),
		Overall:       after.Overall - before.Overall,
	}
	for _, c := range domain.Criteria {
		diff := after.Criteria[c] - before.Criteria[c]
		d.Criteria[c] = diff
		switch {
		case diff > SignificantChange+epsilon:
			d.Improvements = append(d.Improvements, c)
		case diff < -SignificantChange-epsilon:
			d.Regressions = append(d.Regressions, c)
		}
	}
	return d, nil
}
