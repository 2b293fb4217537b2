package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// FallbackSubject names the commit that collects hunks Repair could not
// place next to related work.
const FallbackSubject = "Include remaining changes"

// Repair fixes the reference errors a grouping commonly has without asking
// for a new one: unknown ids are dropped, duplicate references keep their
// first occurrence, and missing hunks join the commit their ordering
// neighbours or same-file hunks live in, or a trailing commit when they have
// none. Commits left empty are removed and blank messages are filled in.
// Order violations are left alone.
//
// It returns a new plan and one line per fix; no fixes means p was returned
// as is.
func Repair(p *domain.Plan, cm *domain.ChangeModel) (*domain.Plan, []string) {
	var fixes []string
	commits := make([]domain.CommitSpec, len(p.Commits))

	// 1. unknown and duplicate references
	seen := make(map[domain.HunkID]bool)
	for ci, c := range p.Commits {
		commits[ci].Message = c.Message
		for _, id := range c.Hunks {
			switch {
			case !cm.Has(id):
				fixes = append(fixes, fmt.Sprintf("dropped unknown hunk %d from commit %d", id, ci+1))
			case seen[id]:
				fixes = append(fixes, fmt.Sprintf("dropped repeated hunk %d from commit %d", id, ci+1))
			default:
				seen[id] = true
				commits[ci].Hunks = append(commits[ci].Hunks, id)
			}
		}
	}

	// 2. missing hunks, in model order so earlier placements guide later ones
	commitOf := make(map[domain.HunkID]int)
	for ci, c := range commits {
		for _, id := range c.Hunks {
			commitOf[id] = ci
		}
	}
	deps := cm.Dependencies()
	trailing := -1
	for _, id := range cm.IDs() {
		if seen[id] {
			continue
		}
		ci, ok := placement(id, cm, deps, commitOf)
		if !ok {
			if trailing < 0 {
				trailing = len(commits)
				commits = append(commits, domain.CommitSpec{Message: FallbackSubject})
			}
			ci = trailing
		}
		commits[ci].Hunks = append(commits[ci].Hunks, id)
		commitOf[id] = ci
		seen[id] = true
		fixes = append(fixes, fmt.Sprintf("added missing hunk %d to commit %d", id, ci+1))
	}

	// 3. empty commits and blank messages
	out := commits[:0]
	for ci, c := range commits {
		if len(c.Hunks) == 0 {
			fixes = append(fixes, fmt.Sprintf("removed empty commit %d", ci+1))
			continue
		}
		if strings.TrimSpace(c.Message) == "" {
			c.Message = fallbackMessage(c, cm)
			fixes = append(fixes, fmt.Sprintf("wrote a message for commit %d", ci+1))
		}
		out = append(out, c)
	}

	if len(fixes) == 0 {
		return p, nil
	}
	repaired := *p
	repaired.Commits = out
	return &repaired, fixes
}

// placement picks the commit for an unreferenced hunk: the latest commit
// holding a hunk it must follow, else the earliest holding a hunk it must
// precede, else the first commit touching the same path.
func placement(id domain.HunkID, cm *domain.ChangeModel, deps []domain.Dependency, commitOf map[domain.HunkID]int) (int, bool) {
	lo, hi := -1, -1
	for _, d := range deps {
		if d.After == id {
			if ci, ok := commitOf[d.Before]; ok && ci > lo {
				lo = ci
			}
		}
		if d.Before == id {
			if ci, ok := commitOf[d.After]; ok && (hi < 0 || ci < hi) {
				hi = ci
			}
		}
	}
	switch {
	case lo >= 0:
		return lo, true
	case hi >= 0:
		return hi, true
	}

	h, _ := cm.Hunk(id)
	best := -1
	for other, ci := range commitOf {
		if oh, ok := cm.Hunk(other); ok && oh.Path == h.Path && (best < 0 || ci < best) {
			best = ci
		}
	}
	return best, best >= 0
}

func fallbackMessage(c domain.CommitSpec, cm *domain.ChangeModel) string {
	paths := make(map[string]bool)
	for _, id := range c.Hunks {
		if h, ok := cm.Hunk(id); ok {
			paths[h.Path] = true
		}
	}
	names := make([]string, 0, len(paths))
	for p := range paths {
		names = append(names, p)
	}
	sort.Strings(names)
	if len(names) > 3 {
		names = append(names[:3], fmt.Sprintf("%d more files", len(paths)-3))
	}
	return "Update " + strings.Join(names, ", ")
}
