package strategy

import (
	"fmt"
	"path"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// planPreserve rebuilds the original commit boundaries. Each hunk goes to
// the most recent source commit that last wrote one of its tip lines, then
// to the most recent commit that touched its path, then to the final commit.
func planPreserve(cm *domain.ChangeModel, sc Context) (*domain.Plan, error) {
	commits := sc.SourceCommits
	if len(commits) == 0 {
		return nil, &domain.StrategyError{
			Kind:     domain.StrategyMissingInput,
			Strategy: string(Preserve),
			Detail:   "no source commits between base and tip",
		}
	}

	assign := make(map[domain.HunkID]int, cm.Len())
	for _, h := range cm.Hunks() {
		assign[h.ID] = attribute(h, commits)
	}
	settle(assign, cm.Dependencies())

	groups := make([][]domain.HunkID, len(commits))
	for _, h := range cm.Hunks() {
		i := assign[h.ID]
		groups[i] = append(groups[i], h.ID)
	}

	var specs []domain.CommitSpec
	for i, c := range commits {
		if len(groups[i]) == 0 {
			continue
		}
		msg := strings.TrimSpace(c.Message)
		if msg == "" {
			msg = fmt.Sprintf("Commit %s", c.ID.Short())
		}
		specs = append(specs, domain.CommitSpec{Message: msg, Hunks: groups[i]})
	}
	return domain.NewPlan(string(Preserve), cm, specs), nil
}

func attribute(h domain.Hunk, commits []domain.SourceCommit) int {
	if h.NewLines > 0 && !h.Binary {
		start, end := h.NewStart, h.NewStart+h.NewLines
		for i := len(commits) - 1; i >= 0; i-- {
			if commits[i].TouchesLines(h.Path, start, end) {
				return i
			}
		}
	}
	for i := len(commits) - 1; i >= 0; i-- {
		if commits[i].TouchesPath(h.Path) || (h.OldPath != "" && commits[i].TouchesPath(h.OldPath)) {
			return i
		}
	}
	return len(commits) - 1
}

// planByFile creates one commit per touched path, in order of first
// appearance, moved only where a rename must land first.
func planByFile(cm *domain.ChangeModel) *domain.Plan {
	paths := cm.Paths()
	index := make(map[string]int, len(paths))
	for i, p := range paths {
		index[p] = i
	}

	groups := make([][]domain.Hunk, len(paths))
	for _, h := range cm.Hunks() {
		i := index[h.Path]
		groups[i] = append(groups[i], h)
	}

	var edges [][2]int
	for _, d := range cm.Dependencies() {
		bh, _ := cm.Hunk(d.Before)
		ah, _ := cm.Hunk(d.After)
		edges = append(edges, [2]int{index[bh.Path], index[ah.Path]})
	}

	specs := make([]domain.CommitSpec, 0, len(paths))
	for _, i := range stableOrder(len(paths), edges) {
		ids := make([]domain.HunkID, len(groups[i]))
		for j, h := range groups[i] {
			ids[j] = h.ID
		}
		specs = append(specs, domain.CommitSpec{Message: fileMessage(paths[i], groups[i]), Hunks: ids})
	}
	return domain.NewPlan(string(ByFile), cm, specs)
}

func fileMessage(p string, hunks []domain.Hunk) string {
	verb := "Update"
	switch {
	case allKind(hunks, domain.ChangeAdd):
		verb = "Add"
	case allKind(hunks, domain.ChangeDelete):
		verb = "Remove"
	case len(hunks) == 1 && hunks[0].Kind == domain.ChangeRename:
		return domain.JoinMessage(
			fmt.Sprintf("Rename %s to %s", path.Base(hunks[0].OldPath), path.Base(p)),
			fmt.Sprintf("Move %s to %s", hunks[0].OldPath, p))
	}
	return domain.JoinMessage(verb+" "+path.Base(p), "Changes to "+p)
}

func allKind(hunks []domain.Hunk, kind domain.ChangeKind) bool {
	for _, h := range hunks {
		if h.Kind != kind {
			return false
		}
	}
	return len(hunks) > 0
}

// planSquash puts every hunk into a single commit.
func planSquash(cm *domain.ChangeModel, sc Context) *domain.Plan {
	msg := strings.TrimSpace(sc.Message)
	if msg == "" {
		msg = squashMessage(sc.SourceCommits)
	}
	var specs []domain.CommitSpec
	if cm.Len() > 0 {
		specs = []domain.CommitSpec{{Message: msg, Hunks: cm.IDs()}}
	}
	return domain.NewPlan(string(Squash), cm, specs)
}

func squashMessage(commits []domain.SourceCommit) string {
	if len(commits) == 0 {
		return "Squashed changes"
	}
	var body strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&body, "- %s\n", c.Subject())
	}
	return domain.JoinMessage(fmt.Sprintf("Squashed %d commits", len(commits)), body.String())
}
