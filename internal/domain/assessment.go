package domain

import "time"

// Criterion is a rubric dimension scored in [0, 1].
type Criterion string

const (
	CriterionAtomicity      Criterion = "atomicity"
	CriterionMessageQuality Criterion = "message_quality"
	CriterionSizeBalance    Criterion = "size_balance"
)

// Criteria lists every rubric criterion in display order.
var Criteria = []Criterion{CriterionAtomicity, CriterionMessageQuality, CriterionSizeBalance}

// FileStat is the line churn of one file in one commit.
type FileStat struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Deleted int    `json:"deleted"`
}

// CommitStat is the input to scoring for a single commit.
type CommitStat struct {
	ID      RevisionID `json:"id"`
	Message string     `json:"message"`
	Files   []FileStat `json:"files"`
}

// Lines is the total number of lines added and deleted.
func (c CommitStat) Lines() int {
	n := 0
	for _, f := range c.Files {
		n += f.Added + f.Deleted
	}
	return n
}

// CommitScore is the per-commit breakdown of an assessment.
type CommitScore struct {
	ID       RevisionID            `json:"id"`
	Subject  string                `json:"subject"`
	Lines    int                   `json:"lines"`
	Criteria map[Criterion]float64 `json:"criteria"`
	Score    float64               `json:"score"`
}

// AssessmentScore is an immutable snapshot of a commit range's quality.
type AssessmentScore struct {
	ID            string                `json:"id"`
	RubricVersion string                `json:"rubric_version"`
	Timestamp     time.Time             `json:"timestamp"`
	Branch        string                `json:"branch,omitempty"`
	Base          RevisionID            `json:"base"`
	Tip           RevisionID            `json:"tip"`
	Commits       []CommitScore         `json:"commits"`
	Criteria      map[Criterion]float64 `json:"criteria"`
	Overall       float64               `json:"overall"`
}

// Delta is the difference between two assessments under the same rubric.
type Delta struct {
	RubricVersion string                `json:"rubric_version"`
	Before        *AssessmentScore      `json:"before"`
	After         *AssessmentScore      `json:"after"`
	Criteria      map[Criterion]float64 `json:"criteria"`
	Overall       float64               `json:"overall"`
	Improvements  []Criterion           `json:"improvements,omitempty"`
	Regressions   []Criterion           `json:"regressions,omitempty"`
}
