package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// SourceCommits lists the branch's commits oldest first, each with the
// paths it changed and the tip lines it was the last to write.
func (r *Repo) SourceCommits(ctx context.Context, base, tip domain.RevisionID) ([]domain.SourceCommit, error) {
	commits, err := r.rangeCommits(ctx, base, tip)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.SourceCommit, len(commits))
	index := make(map[string]int, len(commits))
	touched := make(map[string]bool)
	for i, c := range commits {
		paths, err := changedPaths(ctx, c)
		if err != nil {
			return nil, err
		}
		sources[i] = domain.SourceCommit{
			ID:      domain.RevisionID(c.Hash.String()),
			Message: strings.TrimRight(c.Message, "\n"),
			Paths:   paths,
			Lines:   make(map[string][]domain.LineRange),
		}
		index[c.Hash.String()] = i
		for _, p := range paths {
			touched[p] = true
		}
	}
	if len(commits) == 0 {
		return sources, nil
	}

	tipCommit, err := r.commit(tip)
	if err != nil {
		return nil, err
	}
	tipTree, err := tipCommit.Tree()
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(touched))
	for p := range touched {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := tipTree.File(path)
		if errors.Is(err, object.ErrFileNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s at tip: %w", path, err)
		}
		if bin, err := f.IsBinary(); err != nil || bin {
			continue
		}

		blame, err := git.Blame(tipCommit, path)
		if err != nil {
			r.logger.Debug("blame failed", zap.String("path", path), zap.Error(err))
			continue
		}
		for author, ranges := range blameRanges(blame) {
			if i, ok := index[author]; ok {
				sources[i].Lines[path] = ranges
			}
		}
	}
	return sources, nil
}

// blameRanges groups consecutive tip lines by the commit that wrote them.
func blameRanges(b *git.BlameResult) map[string][]domain.LineRange {
	out := make(map[string][]domain.LineRange)
	for i, line := range b.Lines {
		h := line.Hash.String()
		n := i + 1
		rs := out[h]
		if len(rs) > 0 && rs[len(rs)-1].End == n {
			rs[len(rs)-1].End = n + 1
		} else {
			rs = append(rs, domain.LineRange{Start: n, End: n + 1})
		}
		out[h] = rs
	}
	return out
}

// changedPaths lists the paths c changed relative to its first parent,
// counting both sides of a rename.
func changedPaths(ctx context.Context, c *object.Commit) ([]string, error) {
	to, err := c.Tree()
	if err != nil {
		return nil, err
	}
	var from *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if from, err = parent.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, from, to, &object.DiffTreeOptions{
		DetectRenames: true,
		RenameScore:   renameScore,
	})
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", c.Hash.String()[:7], err)
	}

	seen := make(map[string]bool)
	var paths []string
	for _, ch := range changes {
		for _, p := range []string{ch.From.Name, ch.To.Name} {
			if p != "" && !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

// CommitStats returns per-file churn for each commit in base..tip.
func (r *Repo) CommitStats(ctx context.Context, base, tip domain.RevisionID) ([]domain.CommitStat, error) {
	commits, err := r.rangeCommits(ctx, base, tip)
	if err != nil {
		return nil, err
	}
	stats := make([]domain.CommitStat, 0, len(commits))
	for _, c := range commits {
		fs, err := c.StatsContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", c.Hash.String()[:7], err)
		}
		cs := domain.CommitStat{
			ID:      domain.RevisionID(c.Hash.String()),
			Message: strings.TrimRight(c.Message, "\n"),
		}
		for _, f := range fs {
			name := f.Name
			if _, after, ok := strings.Cut(name, " => "); ok {
				name = after
			}
			cs.Files = append(cs.Files, domain.FileStat{Path: name, Added: f.Addition, Deleted: f.Deletion})
		}
		stats = append(stats, cs)
	}
	return stats, nil
}
