// Package plan validates commit plans against the change model they target.
package plan

import (
	"sort"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// Diff is the set difference between a plan's hunk references and a model.
type Diff struct {
	Missing    []domain.HunkID         `json:"missing,omitempty"`
	Duplicates map[domain.HunkID][]int `json:"duplicates,omitempty"`
	Unknown    map[int][]domain.HunkID `json:"unknown,omitempty"`
}

// Clean reports whether every hunk is referenced exactly once.
func (d Diff) Clean() bool {
	return len(d.Missing) == 0 && len(d.Duplicates) == 0 && len(d.Unknown) == 0
}

// Compare diffs the plan's hunk references against the change model.
func Compare(p *domain.Plan, cm *domain.ChangeModel) Diff {
	seen := make(map[domain.HunkID][]int)
	d := Diff{}
	for ci, c := range p.Commits {
		for _, id := range c.Hunks {
			if !cm.Has(id) {
				if d.Unknown == nil {
					d.Unknown = make(map[int][]domain.HunkID)
				}
				d.Unknown[ci] = append(d.Unknown[ci], id)
				continue
			}
			seen[id] = append(seen[id], ci)
		}
	}
	for _, id := range cm.IDs() {
		commits, ok := seen[id]
		if !ok {
			d.Missing = append(d.Missing, id)
			continue
		}
		if len(commits) > 1 {
			if d.Duplicates == nil {
				d.Duplicates = make(map[domain.HunkID][]int)
			}
			d.Duplicates[id] = commits
		}
	}
	return d
}

// Validate checks completeness, uniqueness and intra-file ordering. It returns
// nil or a *domain.PlanError listing every issue found.
func Validate(p *domain.Plan, cm *domain.ChangeModel) error {
	var issues []domain.PlanIssue

	if p.Fingerprint != "" && p.Fingerprint != cm.Fingerprint() {
		issues = append(issues, domain.PlanIssue{Kind: domain.IssueStaleChangeModel})
	}
	if len(p.Commits) == 0 {
		issues = append(issues, domain.PlanIssue{Kind: domain.IssueEmptyPlan})
	}
	for ci, c := range p.Commits {
		if len(c.Hunks) == 0 {
			issues = append(issues, domain.PlanIssue{Kind: domain.IssueEmptyCommit, Commits: []int{ci}})
		}
		if strings.TrimSpace(c.Message) == "" {
			issues = append(issues, domain.PlanIssue{Kind: domain.IssueEmptyMessage, Commits: []int{ci}})
		}
	}

	d := Compare(p, cm)
	if len(d.Missing) > 0 {
		issues = append(issues, domain.PlanIssue{Kind: domain.IssueMissingHunks, Hunks: d.Missing})
	}
	for _, id := range sortedKeys(d.Duplicates) {
		issues = append(issues, domain.PlanIssue{
			Kind:    domain.IssueDuplicateHunk,
			Hunks:   []domain.HunkID{id},
			Commits: d.Duplicates[id],
		})
	}
	for _, ci := range sortedInts(d.Unknown) {
		issues = append(issues, domain.PlanIssue{
			Kind:    domain.IssueUnknownHunk,
			Hunks:   d.Unknown[ci],
			Commits: []int{ci},
		})
	}

	issues = append(issues, orderIssues(p, cm)...)

	if perr := domain.NewPlanError(issues); perr != nil {
		return perr
	}
	return nil
}

// orderIssues reports dependencies whose earlier hunk is committed after the
// later one. Duplicated hunks are judged by their first occurrence.
func orderIssues(p *domain.Plan, cm *domain.ChangeModel) []domain.PlanIssue {
	commitOf := CommitOf(p)
	var issues []domain.PlanIssue
	for _, dep := range cm.Dependencies() {
		before, okB := commitOf[dep.Before]
		after, okA := commitOf[dep.After]
		if !okB || !okA {
			continue
		}
		if before > after {
			issues = append(issues, domain.PlanIssue{
				Kind:    domain.IssueOrderViolation,
				Hunks:   []domain.HunkID{dep.Before, dep.After},
				Commits: []int{before, after},
				Path:    dep.Path,
			})
		}
	}
	return issues
}

// CommitOf maps each hunk to the index of the first commit that stages it.
func CommitOf(p *domain.Plan) map[domain.HunkID]int {
	m := make(map[domain.HunkID]int)
	for ci, c := range p.Commits {
		for _, id := range c.Hunks {
			if _, ok := m[id]; !ok {
				m[id] = ci
			}
		}
	}
	return m
}

func sortedKeys(m map[domain.HunkID][]int) []domain.HunkID {
	keys := make([]domain.HunkID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedInts(m map[int][]domain.HunkID) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
