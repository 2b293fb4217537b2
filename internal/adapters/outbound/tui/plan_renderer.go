package tui

import (
	"fmt"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// RenderPlan lists the planned commits and, when cm is given, the hunks each
// one stages.
func RenderPlan(p *domain.Plan, cm *domain.ChangeModel) string {
	var b strings.Builder

	title := headerStyle.Render("reabsorb plan")
	subtitle := dimStyle.Render(fmt.Sprintf("%s  ·  %s..%s", p.Strategy, p.Base.Short(), p.Tip.Short()))
	summary := titleStyle.Render(fmt.Sprintf("%d commits  ·  %d hunks", len(p.Commits), p.HunkCount()))
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + summary))
	b.WriteString("\n\n")

	for i, c := range p.Commits {
		fmt.Fprintf(&b, "  %s %s\n",
			warnStyle.Render(fmt.Sprintf("%2d.", i+1)),
			nameStyle.Render(c.Subject()))
		if body := messageBody(c.Message); body != "" {
			for _, line := range strings.Split(body, "\n") {
				b.WriteString("      " + dimStyle.Render(line) + "\n")
			}
		}
		for _, id := range c.Hunks {
			label := fmt.Sprintf("#%d", id)
			if cm != nil {
				if h, ok := cm.Hunk(id); ok {
					label += " " + h.Describe()
				} else {
					label += " " + failStyle.Render("(unknown)")
				}
			}
			b.WriteString("      " + fileStyle.Render(label) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderValidation reports whether a plan covers its change model exactly.
func RenderValidation(path string, p *domain.Plan, valid bool, issues []domain.PlanIssue) string {
	var b strings.Builder

	b.WriteString("\n")
	name := path
	if name == "" {
		name = "plan"
	}
	if valid {
		fmt.Fprintf(&b, "  %s %s  %s\n", passStyle.Render("✓"), nameStyle.Render(name),
			dimStyle.Render(fmt.Sprintf("%d commits, %d hunks", len(p.Commits), p.HunkCount())))
		return b.String()
	}

	fmt.Fprintf(&b, "  %s %s  %s\n\n", failStyle.Render("✗"), nameStyle.Render(name),
		failStyle.Render(fmt.Sprintf("%d issues", len(issues))))
	for _, issue := range issues {
		fmt.Fprintf(&b, "    %s %s\n", failStyle.Render("•"), issue.Error())
	}
	return b.String()
}

func messageBody(message string) string {
	_, body, ok := strings.Cut(strings.TrimSpace(message), "\n")
	if !ok {
		return ""
	}
	return strings.TrimSpace(body)
}
