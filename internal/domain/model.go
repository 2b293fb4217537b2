package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// RevisionID is a full commit hash as reported by the backend.
type RevisionID string

// Short returns the abbreviated form used in terminal output.
func (r RevisionID) Short() string {
	if len(r) > 7 {
		return string(r[:7])
	}
	return string(r)
}

func (r RevisionID) String() string { return string(r) }

// HunkID is a stable index into a ChangeModel.
type HunkID int

// ChangeKind describes what a hunk does to its file.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeModify ChangeKind = "modify"
	ChangeDelete ChangeKind = "delete"
	ChangeRename ChangeKind = "rename"
)

// LineOp marks a diff line as added or removed.
type LineOp string

const (
	LineAdd    LineOp = "+"
	LineDelete LineOp = "-"
)

// DiffLine is a single added or removed line without its trailing newline.
type DiffLine struct {
	Op        LineOp `json:"op"`
	Text      string `json:"text"`
	NoNewline bool   `json:"no_newline,omitempty"`
}

// Hunk is an atomic, immutable unit of change. Line ranges follow the
// zero-context unified diff convention: when a side has zero lines, its start
// is the line after which the change sits.
type Hunk struct {
	ID       HunkID     `json:"id"`
	Path     string     `json:"path"`
	OldPath  string     `json:"old_path,omitempty"`
	Kind     ChangeKind `json:"kind"`
	OldStart int        `json:"old_start"`
	OldLines int        `json:"old_lines"`
	NewStart int        `json:"new_start"`
	NewLines int        `json:"new_lines"`
	Lines    []DiffLine `json:"lines,omitempty"`
	Binary   bool       `json:"binary,omitempty"`
	ModeOnly bool       `json:"mode_only,omitempty"`
	OldMode  uint32     `json:"old_mode,omitempty"`
	NewMode  uint32     `json:"new_mode,omitempty"`
	OldBlob  string     `json:"old_blob,omitempty"`
	NewBlob  string     `json:"new_blob,omitempty"`
}

// WholeFile reports whether the hunk is staged by replacing the index entry
// rather than by patching lines.
func (h Hunk) WholeFile() bool {
	if h.ModeOnly {
		return false
	}
	return h.Kind != ChangeModify || h.Binary
}

// Content reports whether the hunk is a line-level edit of an existing file.
func (h Hunk) Content() bool {
	return h.Kind == ChangeModify && !h.Binary && !h.ModeOnly
}

// Empty reports whether the hunk carries no change at all.
func (h Hunk) Empty() bool {
	return h.Content() && len(h.Lines) == 0
}

// OldBefore is the number of base lines that precede the hunk.
func (h Hunk) OldBefore() int {
	if h.OldLines == 0 {
		return h.OldStart
	}
	return h.OldStart - 1
}

// OldEnd is OldBefore plus the number of base lines the hunk replaces.
func (h Hunk) OldEnd() int { return h.OldBefore() + h.OldLines }

// NewBefore is the number of tip lines that precede the hunk.
func (h Hunk) NewBefore() int {
	if h.NewLines == 0 {
		return h.NewStart
	}
	return h.NewStart - 1
}

// Delta is the change in line count the hunk introduces.
func (h Hunk) Delta() int { return h.NewLines - h.OldLines }

// Added and Removed count the hunk's lines by operation.
func (h Hunk) Added() int   { return h.countOp(LineAdd) }
func (h Hunk) Removed() int { return h.countOp(LineDelete) }

func (h Hunk) countOp(op LineOp) int {
	n := 0
	for _, l := range h.Lines {
		if l.Op == op {
			n++
		}
	}
	return n
}

// Size is the byte length of the hunk's line content.
func (h Hunk) Size() int {
	n := 0
	for _, l := range h.Lines {
		n += len(l.Text) + 2
	}
	return n
}

// Describe returns a short human label such as "x.txt @@ -1,2 +1,3".
func (h Hunk) Describe() string {
	switch {
	case h.Kind == ChangeRename:
		return fmt.Sprintf("%s -> %s (rename)", h.OldPath, h.Path)
	case h.Kind != ChangeModify:
		return fmt.Sprintf("%s (%s)", h.Path, h.Kind)
	case h.Binary:
		return h.Path + " (binary)"
	case h.ModeOnly:
		return fmt.Sprintf("%s (mode %o -> %o)", h.Path, h.OldMode, h.NewMode)
	}
	return fmt.Sprintf("%s @@ -%d,%d +%d,%d", h.Path, h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// Dependency records that Before must not land in a later commit than After.
type Dependency struct {
	Before HunkID `json:"before"`
	After  HunkID `json:"after"`
	Path   string `json:"path"`
}

// ChangeModel is the arena of every hunk between Base and Tip. Hunks are
// referenced by ID and never copied into plans.
type ChangeModel struct {
	Base  RevisionID
	Tip   RevisionID
	hunks []Hunk
	index map[HunkID]int
}

// NewChangeModel assigns IDs in insertion order. It rejects empty hunks.
func NewChangeModel(base, tip RevisionID, raw []Hunk) (*ChangeModel, error) {
	cm := &ChangeModel{
		Base:  base,
		Tip:   tip,
		hunks: make([]Hunk, 0, len(raw)),
		index: make(map[HunkID]int, len(raw)),
	}
	for i, h := range raw {
		if h.Empty() {
			return nil, &DiffError{
				Kind: DiffMalformed,
				Base: base,
				Tip:  tip,
				Err:  fmt.Errorf("empty hunk for %s", h.Path),
			}
		}
		h.ID = HunkID(i)
		cm.index[h.ID] = len(cm.hunks)
		cm.hunks = append(cm.hunks, h)
	}
	return cm, nil
}

// Hunks returns the hunks in ID order. Callers must not modify the slice.
func (cm *ChangeModel) Hunks() []Hunk { return cm.hunks }

// Len returns the number of hunks.
func (cm *ChangeModel) Len() int { return len(cm.hunks) }

// Hunk looks up a hunk by ID.
func (cm *ChangeModel) Hunk(id HunkID) (Hunk, bool) {
	i, ok := cm.index[id]
	if !ok {
		return Hunk{}, false
	}
	return cm.hunks[i], true
}

// Has reports whether id belongs to the model.
func (cm *ChangeModel) Has(id HunkID) bool {
	_, ok := cm.index[id]
	return ok
}

// IDs returns every hunk ID in order.
func (cm *ChangeModel) IDs() []HunkID {
	ids := make([]HunkID, len(cm.hunks))
	for i, h := range cm.hunks {
		ids[i] = h.ID
	}
	return ids
}

// Paths returns the distinct touched paths in order of first appearance.
func (cm *ChangeModel) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, h := range cm.hunks {
		if !seen[h.Path] {
			seen[h.Path] = true
			paths = append(paths, h.Path)
		}
	}
	return paths
}

// Subset returns a model restricted to ids, keeping their original IDs.
// Unknown IDs are ignored.
func (cm *ChangeModel) Subset(ids []HunkID) *ChangeModel {
	want := make(map[HunkID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	sub := &ChangeModel{Base: cm.Base, Tip: cm.Tip, index: make(map[HunkID]int, len(ids))}
	for _, h := range cm.hunks {
		if want[h.ID] {
			sub.index[h.ID] = len(sub.hunks)
			sub.hunks = append(sub.hunks, h)
		}
	}
	return sub
}

// Fingerprint identifies the exact hunk decomposition of the model. A plan
// saved against one fingerprint cannot be applied to another.
func (cm *ChangeModel) Fingerprint() string {
	sum := sha256.New()
	fmt.Fprintf(sum, "%s..%s\n", cm.Base, cm.Tip)
	for _, h := range cm.hunks {
		fmt.Fprintf(sum, "%d %s %s %s %d,%d %d,%d %t %t %s\n",
			h.ID, h.Kind, h.OldPath, h.Path,
			h.OldStart, h.OldLines, h.NewStart, h.NewLines,
			h.Binary, h.ModeOnly, h.NewBlob)
		for _, l := range h.Lines {
			fmt.Fprintf(sum, "%s%s\n", l.Op, l.Text)
		}
	}
	return hex.EncodeToString(sum.Sum(nil))[:16]
}

// Dependencies lists the per-file ordering constraints between hunks.
// A hunk that creates a path (add or rename) precedes every other hunk on
// that path, a rename precedes hunks that reuse its old path, and content
// hunks whose base ranges overlap or touch keep their positional order.
func (cm *ChangeModel) Dependencies() []Dependency {
	byPath := make(map[string][]Hunk)
	var order []string
	for _, h := range cm.hunks {
		if _, ok := byPath[h.Path]; !ok {
			order = append(order, h.Path)
		}
		byPath[h.Path] = append(byPath[h.Path], h)
	}

	var deps []Dependency
	for _, path := range order {
		hunks := byPath[path]
		for _, creator := range hunks {
			if creator.Kind != ChangeAdd && creator.Kind != ChangeRename {
				continue
			}
			for _, other := range hunks {
				if other.ID != creator.ID {
					deps = append(deps, Dependency{Before: creator.ID, After: other.ID, Path: path})
				}
			}
		}

		var content []Hunk
		for _, h := range hunks {
			if h.Content() {
				content = append(content, h)
			}
		}
		sort.SliceStable(content, func(i, j int) bool {
			return positionLess(content[i], content[j])
		})
		for i := range content {
			for j := i + 1; j < len(content); j++ {
				if rangesTouch(content[i], content[j]) {
					deps = append(deps, Dependency{Before: content[i].ID, After: content[j].ID, Path: path})
				}
			}
		}
	}

	for _, r := range cm.hunks {
		if r.Kind != ChangeRename {
			continue
		}
		for _, h := range byPath[r.OldPath] {
			deps = append(deps, Dependency{Before: r.ID, After: h.ID, Path: r.OldPath})
		}
	}
	return deps
}

func positionLess(a, b Hunk) bool {
	if a.OldBefore() != b.OldBefore() {
		return a.OldBefore() < b.OldBefore()
	}
	// a pure insertion sits before a replacement starting at the same line
	return a.OldLines < b.OldLines
}

func rangesTouch(a, b Hunk) bool {
	return a.OldBefore() <= b.OldEnd() && b.OldBefore() <= a.OldEnd()
}
