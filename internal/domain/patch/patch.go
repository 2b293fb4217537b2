// Package patch renders subsets of a change model as zero-context unified
// diffs that apply cleanly to a partially rebuilt index.
package patch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

const noNewline = "\\ No newline at end of file\n"

// Render returns a patch for the content hunks in hunks, with line numbers
// rebased onto an index that already holds applied. Whole-file hunks are
// skipped; they are staged by replacing index entries.
func Render(hunks, applied []domain.Hunk) string {
	byPath := make(map[string][]domain.Hunk)
	for _, h := range hunks {
		if h.Content() {
			byPath[h.Path] = append(byPath[h.Path], h)
		}
	}
	if len(byPath) == 0 {
		return ""
	}

	appliedByPath := make(map[string][]domain.Hunk)
	for _, a := range applied {
		if a.Content() {
			appliedByPath[a.Path] = append(appliedByPath[a.Path], a)
		}
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		batch := byPath[path]
		sort.SliceStable(batch, func(i, j int) bool { return precedes(batch[i], batch[j]) })

		fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)
		fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)

		batchShift := 0
		for _, h := range batch {
			cur := h.OldBefore() + shiftFrom(appliedByPath[path], h)
			oldStart := cur
			if h.OldLines > 0 {
				oldStart = cur + 1
			}
			newBefore := cur + batchShift
			newStart := newBefore
			if h.NewLines > 0 {
				newStart = newBefore + 1
			}
			fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, h.OldLines, newStart, h.NewLines)
			writeLines(&b, h.Lines)
			batchShift += h.Delta()
		}
	}
	return b.String()
}

// shiftFrom sums the line count change of applied hunks that sit before h.
func shiftFrom(applied []domain.Hunk, h domain.Hunk) int {
	shift := 0
	for _, a := range applied {
		if precedes(a, h) {
			shift += a.Delta()
		}
	}
	return shift
}

func precedes(a, b domain.Hunk) bool {
	if a.OldBefore() != b.OldBefore() {
		return a.OldBefore() < b.OldBefore()
	}
	return a.OldLines < b.OldLines
}

func writeLines(b *strings.Builder, lines []domain.DiffLine) {
	// removals first, then additions, as git expects
	for _, op := range []domain.LineOp{domain.LineDelete, domain.LineAdd} {
		for _, l := range lines {
			if l.Op != op {
				continue
			}
			b.WriteString(string(l.Op))
			b.WriteString(l.Text)
			b.WriteString("\n")
			if l.NoNewline {
				b.WriteString(noNewline)
			}
		}
	}
}
