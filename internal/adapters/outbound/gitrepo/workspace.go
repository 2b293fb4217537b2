package gitrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/patch"
)

// AnchorRefPrefix namespaces the refs that keep anchored tips reachable.
const AnchorRefPrefix = "refs/reabsorb/anchors/"

// IsDirty reports staged or unstaged changes to tracked files.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.git.Run(ctx, nil, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// WorktreeMatches reports whether tracked files in the working tree equal
// rev's tree, whatever the index holds.
func (r *Repo) WorktreeMatches(ctx context.Context, rev domain.RevisionID) (bool, error) {
	_, err := r.git.Run(ctx, nil, "diff", "--quiet", string(rev), "--")
	switch {
	case err == nil:
		return true, nil
	case exitCode(err) == 1:
		return false, nil
	}
	return false, err
}

// SoftReset moves the branch and index to rev and keeps the working tree.
func (r *Repo) SoftReset(ctx context.Context, rev domain.RevisionID) error {
	_, err := r.git.Run(ctx, nil, "reset", "--quiet", "--mixed", string(rev))
	return err
}

// Stage adds exactly hunks to the index, whatever order they are listed in.
// Entry removals run first, then rename targets, then the other blob
// replacements, then mode changes, then one zero-context patch for the line
// edits. A rename target is written before a blob edit of the same path.
func (r *Repo) Stage(ctx context.Context, hunks, applied []domain.Hunk) error {
	var removals, renames, inserts []string
	var chmods []domain.Hunk
	for _, h := range hunks {
		switch {
		case h.ModeOnly:
			chmods = append(chmods, h)
		case !h.WholeFile():
		case h.Kind == domain.ChangeDelete:
			removals = append(removals, h.Path)
		case h.Kind == domain.ChangeRename:
			removals = append(removals, h.OldPath)
			renames = append(renames, cacheInfo(h.NewMode, h.OldBlob, h.Path))
		default:
			inserts = append(inserts, cacheInfo(h.NewMode, h.NewBlob, h.Path))
		}
	}

	if len(removals) > 0 {
		args := append([]string{"update-index", "--force-remove", "--"}, removals...)
		if _, err := r.git.Run(ctx, nil, args...); err != nil {
			return err
		}
	}
	for _, info := range append(renames, inserts...) {
		if _, err := r.git.Run(ctx, nil, "update-index", "--add", "--cacheinfo", info); err != nil {
			return err
		}
	}
	for _, h := range chmods {
		flag := "--chmod=-x"
		if h.NewMode&0o111 != 0 {
			flag = "--chmod=+x"
		}
		if _, err := r.git.Run(ctx, nil, "update-index", flag, "--", h.Path); err != nil {
			return err
		}
	}

	if p := patch.Render(hunks, applied); p != "" {
		if _, err := r.git.Run(ctx, strings.NewReader(p), "apply", "--cached", "--unidiff-zero", "--whitespace=nowarn", "-"); err != nil {
			r.logger.Debug("patch rejected", zap.String("patch", p))
			return err
		}
	}
	return nil
}

func cacheInfo(mode uint32, blob, path string) string {
	return fmt.Sprintf("%o,%s,%s", mode, blob, path)
}

// Commit records the index with message read from stdin.
func (r *Repo) Commit(ctx context.Context, message string, noVerify bool) (domain.RevisionID, error) {
	args := []string{"commit", "--quiet", "--cleanup=whitespace", "-F", "-"}
	if noVerify {
		args = append(args, "--no-verify")
	}
	if _, err := r.git.Run(ctx, strings.NewReader(message), args...); err != nil {
		return "", err
	}
	out, err := trimmed(r.git.Run(ctx, nil, "rev-parse", "HEAD"))
	if err != nil {
		return "", err
	}
	return domain.RevisionID(out), nil
}

// CaptureAnchor snapshots HEAD and the index, and pins HEAD with a ref so
// that gc cannot collect it.
func (r *Repo) CaptureAnchor(ctx context.Context, branch string) (domain.UndoAnchor, error) {
	tip, err := trimmed(r.git.Run(ctx, nil, "rev-parse", "HEAD"))
	if err != nil {
		return domain.UndoAnchor{}, err
	}
	indexTree, err := trimmed(r.git.Run(ctx, nil, "write-tree"))
	if err != nil {
		return domain.UndoAnchor{}, err
	}
	if _, err := r.git.Run(ctx, nil, "update-ref", "-m", "reabsorb: anchor", AnchorRefPrefix+branch, tip); err != nil {
		return domain.UndoAnchor{}, err
	}
	return domain.UndoAnchor{
		ID:         uuid.NewString(),
		Branch:     branch,
		Tip:        domain.RevisionID(tip),
		IndexTree:  indexTree,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// RestoreAnchor puts the branch, index and working tree back to anchor.
func (r *Repo) RestoreAnchor(ctx context.Context, anchor domain.UndoAnchor) error {
	if _, err := r.git.Run(ctx, nil, "reset", "--quiet", "--hard", string(anchor.Tip)); err != nil {
		return err
	}
	tipTree, err := trimmed(r.git.Run(ctx, nil, "rev-parse", string(anchor.Tip)+"^{tree}"))
	if err != nil {
		return err
	}
	if anchor.IndexTree == "" || anchor.IndexTree == tipTree {
		return nil
	}
	_, err = r.git.Run(ctx, nil, "read-tree", anchor.IndexTree)
	return err
}

// ReleaseAnchor deletes the protective ref.
func (r *Repo) ReleaseAnchor(ctx context.Context, anchor domain.UndoAnchor) error {
	_, err := r.git.Run(ctx, nil, "update-ref", "-d", AnchorRefPrefix+anchor.Branch)
	return err
}

// TreesEqual compares the trees of two commits.
func (r *Repo) TreesEqual(ctx context.Context, a, b domain.RevisionID) (bool, error) {
	out, err := r.git.Run(ctx, nil, "rev-parse", string(a)+"^{tree}", string(b)+"^{tree}")
	if err != nil {
		return false, err
	}
	trees := strings.Fields(out)
	return len(trees) == 2 && trees[0] == trees[1], nil
}
