package tui

import (
	"fmt"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// RenderApplyReport shows the commits created by an apply.
func RenderApplyReport(r *domain.ApplyReport) string {
	var b strings.Builder

	b.WriteString("\n")
	icon := passStyle.Render("✓")
	if r.State != domain.StateDone {
		icon = failStyle.Render("✗")
	}
	fmt.Fprintf(&b, "  %s %s  %s\n\n", icon,
		nameStyle.Render(fmt.Sprintf("%s rewritten", r.Branch)),
		dimStyle.Render(fmt.Sprintf("%d of %d commits  ·  %s", len(r.Commits), r.Planned, r.StateName)))

	for _, c := range r.Commits {
		fmt.Fprintf(&b, "    %s %s\n", faintStyle.Render(c.ID.Short()), c.Subject)
	}
	if r.NewTip != "" {
		fmt.Fprintf(&b, "\n  %s\n", dimStyle.Render(fmt.Sprintf("%s → %s", r.OriginalTip.Short(), r.NewTip.Short())))
	}
	if r.Anchor != nil {
		fmt.Fprintf(&b, "  %s\n", hintStyle.Render("undo with `reabsorb reset`"))
	}
	return b.String()
}

// RenderStatus summarizes the branch and any recorded anchor.
func RenderStatus(s *domain.Status) string {
	var b strings.Builder

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s  %s\n", titleStyle.Render("Branch"), nameStyle.Render(s.Branch), faintStyle.Render(s.Tip.Short()))

	tree := passStyle.Render("clean")
	if s.Dirty {
		tree = warnStyle.Render("modified")
	}
	fmt.Fprintf(&b, "  %s %s\n", padRight("Working tree", 14), tree)

	if s.Anchor != nil {
		fmt.Fprintf(&b, "  %s %s  %s\n", padRight("Undo anchor", 14),
			s.Anchor.Tip.Short(),
			dimStyle.Render("captured "+s.Anchor.CapturedAt.Local().Format("2006-01-02 15:04")))
	} else {
		fmt.Fprintf(&b, "  %s %s\n", padRight("Undo anchor", 14), dimStyle.Render("none"))
	}

	if s.Plan != nil {
		detail := fmt.Sprintf("%d commits", len(s.Plan.Commits))
		if done := s.Plan.Done(); done < len(s.Plan.Commits) && s.Plan.Progress != nil {
			detail = fmt.Sprintf("%d of %d commits created", done, len(s.Plan.Commits))
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", padRight("Last plan", 14),
			s.Plan.Strategy,
			dimStyle.Render(detail))
	}
	return b.String()
}

// RenderReset confirms that a branch was restored.
func RenderReset(a *domain.UndoAnchor) string {
	return fmt.Sprintf("\n  %s %s  %s\n", passStyle.Render("✓"),
		nameStyle.Render(a.Branch+" restored"),
		dimStyle.Render("tip "+a.Tip.Short()))
}
