package gitrepo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// renameScore is git's default similarity threshold.
const renameScore = 50

// ComputeDiff decomposes base..tip into hunks. File patches are visited in
// path order and every maximal run of non-equal chunks becomes one hunk.
func (r *Repo) ComputeDiff(ctx context.Context, base, tip domain.RevisionID) ([]domain.Hunk, error) {
	patches, err := r.filePatches(ctx, base, tip)
	if err != nil {
		return nil, &domain.DiffError{Kind: domain.DiffBackend, Base: base, Tip: tip, Err: err}
	}

	var hunks []domain.Hunk
	for _, fp := range patches {
		hunks = append(hunks, fileHunks(fp)...)
	}
	r.logger.Debug("computed diff",
		zap.String("base", base.Short()),
		zap.String("tip", tip.Short()),
		zap.Int("files", len(patches)),
		zap.Int("hunks", len(hunks)))
	return hunks, nil
}

func (r *Repo) filePatches(ctx context.Context, base, tip domain.RevisionID) ([]fdiff.FilePatch, error) {
	from, err := r.tree(base)
	if err != nil {
		return nil, err
	}
	to, err := r.tree(tip)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, from, to, &object.DiffTreeOptions{
		DetectRenames: true,
		RenameScore:   renameScore,
	})
	if err != nil {
		return nil, fmt.Errorf("diffing trees: %w", err)
	}
	patch, err := changes.PatchContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("building patch: %w", err)
	}

	fps := patch.FilePatches()
	sort.SliceStable(fps, func(i, j int) bool { return patchPath(fps[i]) < patchPath(fps[j]) })
	return fps, nil
}

func patchPath(fp fdiff.FilePatch) string {
	from, to := fp.Files()
	if to != nil {
		return to.Path()
	}
	return from.Path()
}

// fileHunks splits one file patch. Renames yield a rename hunk followed by
// the hunks of the renamed file's own edits.
func fileHunks(fp fdiff.FilePatch) []domain.Hunk {
	from, to := fp.Files()
	switch {
	case from == nil && to == nil:
		return nil
	case from == nil:
		h := domain.Hunk{
			Path:    to.Path(),
			Kind:    domain.ChangeAdd,
			NewMode: uint32(to.Mode()),
			NewBlob: to.Hash().String(),
			Binary:  fp.IsBinary() || special(to.Mode()),
		}
		if !h.Binary {
			h.Lines = chunkLines(fp.Chunks(), fdiff.Add, domain.LineAdd)
			h.NewLines = len(h.Lines)
			if h.NewLines > 0 {
				h.NewStart = 1
			}
		}
		return []domain.Hunk{h}
	case to == nil:
		h := domain.Hunk{
			Path:    from.Path(),
			Kind:    domain.ChangeDelete,
			OldMode: uint32(from.Mode()),
			OldBlob: from.Hash().String(),
			Binary:  fp.IsBinary() || special(from.Mode()),
		}
		if !h.Binary {
			h.Lines = chunkLines(fp.Chunks(), fdiff.Delete, domain.LineDelete)
			h.OldLines = len(h.Lines)
			if h.OldLines > 0 {
				h.OldStart = 1
			}
		}
		return []domain.Hunk{h}
	}

	var hunks []domain.Hunk
	if from.Path() != to.Path() {
		hunks = append(hunks, domain.Hunk{
			Path:    to.Path(),
			OldPath: from.Path(),
			Kind:    domain.ChangeRename,
			OldMode: uint32(from.Mode()),
			NewMode: uint32(from.Mode()),
			OldBlob: from.Hash().String(),
			NewBlob: from.Hash().String(),
		})
	}

	switch {
	case from.Hash() == to.Hash() && from.Mode() == to.Mode():
		return hunks
	case fp.IsBinary() || special(from.Mode()) || special(to.Mode()):
		return append(hunks, domain.Hunk{
			Path:    to.Path(),
			Kind:    domain.ChangeModify,
			Binary:  true,
			OldMode: uint32(from.Mode()),
			NewMode: uint32(to.Mode()),
			OldBlob: from.Hash().String(),
			NewBlob: to.Hash().String(),
		})
	case from.Hash() != to.Hash():
		hunks = append(hunks, contentHunks(to.Path(), fp.Chunks())...)
	}

	if from.Mode() != to.Mode() {
		hunks = append(hunks, domain.Hunk{
			Path:     to.Path(),
			Kind:     domain.ChangeModify,
			ModeOnly: true,
			OldMode:  uint32(from.Mode()),
			NewMode:  uint32(to.Mode()),
		})
	}
	return hunks
}

// special reports modes whose content is not line-oriented text.
func special(m filemode.FileMode) bool {
	return m == filemode.Symlink || m == filemode.Submodule
}

// contentHunks walks the chunks of a modified file, tracking how many lines
// each side has consumed.
func contentHunks(path string, chunks []fdiff.Chunk) []domain.Hunk {
	var (
		hunks      []domain.Hunk
		cur        *domain.Hunk
		oldN, newN int
	)
	flush := func() {
		if cur == nil {
			return
		}
		hunks = append(hunks, finish(*cur))
		cur = nil
	}

	for _, c := range chunks {
		lines := splitLines(c.Content())
		if c.Type() == fdiff.Equal {
			flush()
			oldN += len(lines)
			newN += len(lines)
			continue
		}
		if cur == nil {
			// starts hold the count of preceding lines until finish
			cur = &domain.Hunk{Path: path, Kind: domain.ChangeModify, OldStart: oldN, NewStart: newN}
		}
		op := domain.LineAdd
		if c.Type() == fdiff.Delete {
			op = domain.LineDelete
			cur.OldLines += len(lines)
			oldN += len(lines)
		} else {
			cur.NewLines += len(lines)
			newN += len(lines)
		}
		for _, l := range lines {
			l.Op = op
			cur.Lines = append(cur.Lines, l)
		}
	}
	flush()
	return hunks
}

func finish(h domain.Hunk) domain.Hunk {
	if h.OldLines > 0 {
		h.OldStart++
	}
	if h.NewLines > 0 {
		h.NewStart++
	}
	sort.SliceStable(h.Lines, func(i, j int) bool {
		return h.Lines[i].Op == domain.LineDelete && h.Lines[j].Op == domain.LineAdd
	})
	return h
}

func chunkLines(chunks []fdiff.Chunk, typ fdiff.Operation, op domain.LineOp) []domain.DiffLine {
	var out []domain.DiffLine
	for _, c := range chunks {
		if c.Type() != typ {
			continue
		}
		for _, l := range splitLines(c.Content()) {
			l.Op = op
			out = append(out, l)
		}
	}
	return out
}

// splitLines breaks chunk content into lines. Only a final line can lack
// its newline.
func splitLines(s string) []domain.DiffLine {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	lines := make([]domain.DiffLine, len(parts))
	for i, p := range parts {
		text, ok := strings.CutSuffix(p, "\n")
		lines[i] = domain.DiffLine{Text: text, NoNewline: !ok}
	}
	return lines
}
