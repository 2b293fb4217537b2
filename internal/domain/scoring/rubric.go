// Package scoring grades a range of commits against a weighted rubric and
// compares two grades made under the same rubric.
package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// BaseVersion identifies the criteria definitions. Bump it whenever a
// criterion's formula changes so old snapshots stop comparing.
const BaseVersion = "1"

// DefaultWeights is the shipped weighting of the rubric.
var DefaultWeights = map[domain.Criterion]float64{
	domain.CriterionAtomicity:      0.40,
	domain.CriterionMessageQuality: 0.35,
	domain.CriterionSizeBalance:    0.25,
}

// Rubric is a versioned set of criterion weights.
type Rubric struct {
	Version string
	Weights map[domain.Criterion]float64
}

// DefaultRubric returns the rubric with the shipped weights.
func DefaultRubric() Rubric {
	w := make(map[domain.Criterion]float64, len(DefaultWeights))
	for c, v := range DefaultWeights {
		w[c] = v
	}
	return Rubric{Version: BaseVersion, Weights: w}
}

// NewRubric applies the configured weights over the defaults. Any
// deviation from the defaults yields a distinct version so that scores
// made under different weights are never compared.
func NewRubric(cfg domain.Config) Rubric {
	r := DefaultRubric()
	custom := false
	for _, c := range domain.Criteria {
		w := cfg.EffectiveWeight(c, DefaultWeights[c])
		if math.Abs(w-DefaultWeights[c]) > 1e-9 {
			custom = true
		}
		r.Weights[c] = w
	}
	if custom {
		r.Version = BaseVersion + "+w" + weightsHash(r.Weights)
	}
	return r
}

func weightsHash(weights map[domain.Criterion]float64) string {
	keys := make([]string, 0, len(weights))
	for c := range weights {
		keys = append(keys, string(c))
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%.4f;", k, weights[domain.Criterion(k)])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:8]
}

// Meta identifies the assessed range.
type Meta struct {
	Branch string
	Base   domain.RevisionID
	Tip    domain.RevisionID
	// Now defaults to time.Now.
	Now func() time.Time
}

// Score grades commits, oldest first, under rubric r.
func Score(commits []domain.CommitStat, r Rubric, meta Meta) (*domain.AssessmentScore, error) {
	if len(commits) == 0 {
		return nil, &domain.AssessmentError{Kind: domain.AssessmentEmptyRange}
	}
	now := time.Now
	if meta.Now != nil {
		now = meta.Now
	}

	sizes := make([]int, len(commits))
	for i, c := range commits {
		sizes[i] = c.Lines()
	}
	mean := meanOf(sizes)

	score := &domain.AssessmentScore{
		ID:            uuid.NewString(),
		RubricVersion: r.Version,
		Timestamp:     now().UTC(),
		Branch:        meta.Branch,
		Base:          meta.Base,
		Tip:           meta.Tip,
		Commits:       make([]domain.CommitScore, 0, len(commits)),
		Criteria:      make(map[domain.Criterion]float64, len(domain.Criteria)),
	}

	var atomic, messages float64
	for i, c := range commits {
		cs := domain.CommitScore{
			ID:      c.ID,
			Subject: domain.Subject(c.Message),
			Lines:   sizes[i],
			Criteria: map[domain.Criterion]float64{
				domain.CriterionAtomicity:      atomicity(c),
				domain.CriterionMessageQuality: messageQuality(c.Message),
				domain.CriterionSizeBalance:    sizeDeviation(sizes[i], mean),
			},
		}
		cs.Score = r.weigh(cs.Criteria)
		atomic += cs.Criteria[domain.CriterionAtomicity]
		messages += cs.Criteria[domain.CriterionMessageQuality]
		score.Commits = append(score.Commits, cs)
	}

	n := float64(len(commits))
	score.Criteria[domain.CriterionAtomicity] = atomic / n
	score.Criteria[domain.CriterionMessageQuality] = messages / n
	score.Criteria[domain.CriterionSizeBalance] = balance(sizes)
	score.Overall = r.weigh(score.Criteria)
	return score, nil
}

// weigh is the weighted mean of the criteria, normalized by total weight.
func (r Rubric) weigh(values map[domain.Criterion]float64) float64 {
	var sum, total float64
	for _, c := range domain.Criteria {
		w := r.Weights[c]
		sum += w * values[c]
		total += w
	}
	if total == 0 {
		return 0
	}
	return sum / total
}
