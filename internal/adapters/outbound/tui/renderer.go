package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// ── Warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	lime    = lipgloss.Color("#A3E635")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	nameStyle     = lipgloss.NewStyle().Bold(true).Foreground(fg)
	hintStyle     = lipgloss.NewStyle().Foreground(dim).Italic(true)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderAssessment renders an assessment with per-criterion bars and a
// per-commit table.
func RenderAssessment(s *domain.AssessmentScore) string {
	var b strings.Builder

	// ── Header ──
	pct := percent(s.Overall)
	title := headerStyle.Render("reabsorb")
	subtitle := dimStyle.Render(fmt.Sprintf("History quality  ·  rubric %s", s.RubricVersion))
	scoreStyled := lipgloss.NewStyle().
		Bold(true).
		Foreground(scoreColor(pct)).
		Render(fmt.Sprintf("%d / 100", pct))
	rangeLine := dimStyle.Render(fmt.Sprintf("%s..%s", s.Base.Short(), s.Tip.Short()))
	if s.Branch != "" {
		rangeLine = dimStyle.Render(s.Branch+"  ") + rangeLine
	}

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + scoreStyled + "\n" + rangeLine))
	b.WriteString("\n\n")

	// ── Criteria ──
	for _, c := range domain.Criteria {
		v := percent(s.Criteria[c])
		fmt.Fprintf(&b, "  %s %s  %s\n",
			nameStyle.Render(padRight(string(c), 20)),
			coloredBar(v, 20),
			lipgloss.NewStyle().Bold(true).Foreground(scoreColor(v)).Render(fmt.Sprintf("%d", v)))
	}

	b.WriteString("\n  " + separatorLine + "\n\n")

	// ── Commits ──
	fmt.Fprintf(&b, "  %s  %s\n\n", titleStyle.Render("Commits"), dimStyle.Render(fmt.Sprintf("(%d)", len(s.Commits))))
	for _, c := range s.Commits {
		v := percent(c.Score)
		fmt.Fprintf(&b, "    %s %s %s  %s\n",
			scoreIcon(v),
			faintStyle.Render(c.ID.Short()),
			padRight(truncate(c.Subject, 48), 48),
			dimStyle.Render(fmt.Sprintf("%3d  %d lines", v, c.Lines)))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderDelta renders the change between two assessments.
func RenderDelta(d *domain.Delta) string {
	var b strings.Builder

	title := headerStyle.Render("Assessment delta")
	overall := signed(d.Overall)
	scores := dimStyle.Render(fmt.Sprintf("%d → %d", percent(d.Before.Overall), percent(d.After.Overall)))
	b.WriteString(boxStyle.Render(title + "\n\n" + overall + "  " + scores))
	b.WriteString("\n\n")

	for _, c := range domain.Criteria {
		fmt.Fprintf(&b, "  %s %s  %s\n",
			nameStyle.Render(padRight(string(c), 20)),
			dimStyle.Render(fmt.Sprintf("%3d → %3d", percent(d.Before.Criteria[c]), percent(d.After.Criteria[c]))),
			signed(d.Criteria[c]))
	}

	if len(d.Improvements) > 0 || len(d.Regressions) > 0 {
		b.WriteString("\n")
	}
	for _, c := range d.Improvements {
		b.WriteString("    " + passStyle.Render("↑ improved ") + string(c) + "\n")
	}
	for _, c := range d.Regressions {
		b.WriteString("    " + failStyle.Render("↓ regressed ") + string(c) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// RenderHistory formats recorded assessments, oldest first.
func RenderHistory(entries []domain.AssessmentScore) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No assessment history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Assessment History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for i, e := range entries {
		v := percent(e.Overall)
		line := fmt.Sprintf("  %s  %s  %s  %s",
			dimStyle.Render(e.Timestamp.Format("2006-01-02 15:04")),
			faintStyle.Render(e.Tip.Short()),
			lipgloss.NewStyle().Foreground(scoreColor(v)).Render(fmt.Sprintf("%d/100", v)),
			dimStyle.Render(e.RubricVersion))

		if i > 0 && entries[i-1].RubricVersion == e.RubricVersion {
			diff := v - percent(entries[i-1].Overall)
			if diff > 0 {
				line += "  " + passStyle.Render(fmt.Sprintf("↑%d", diff))
			} else if diff < 0 {
				line += "  " + failStyle.Render(fmt.Sprintf("↓%d", -diff))
			}
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderHints lists recovery hints under an error.
func RenderHints(hints []string) string {
	var b strings.Builder
	for _, h := range hints {
		b.WriteString("  " + hintStyle.Render("hint: "+h) + "\n")
	}
	return b.String()
}

func percent(v float64) int {
	return int(v*100 + 0.5)
}

func signed(v float64) string {
	p := int(v*100 + 0.5*sign(v))
	switch {
	case p > 0:
		return passStyle.Render(fmt.Sprintf("+%d", p))
	case p < 0:
		return failStyle.Render(fmt.Sprintf("%d", p))
	}
	return dimStyle.Render("±0")
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func scoreIcon(score int) string {
	switch {
	case score >= 80:
		return passStyle.Render("●")
	case score >= 40:
		return warnStyle.Render("●")
	}
	return failStyle.Render("●")
}

func coloredBar(score, width int) string {
	filled := max(0, min(score*width/100, width))
	empty := width - filled

	color := scoreColor(score)
	filledStr := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	emptyStr := lipgloss.NewStyle().Foreground(faint).Render(strings.Repeat("░", empty))
	return filledStr + emptyStr
}

func scoreColor(score int) lipgloss.Color {
	switch {
	case score >= 80:
		return success
	case score >= 60:
		return lime
	case score >= 40:
		return warning
	default:
		return danger
	}
}

func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
