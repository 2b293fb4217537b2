// Package gitrepo implements domain.Backend over a local git repository.
// Reads go through go-git; index and branch mutations shell out to git so
// that hooks, the index format and reflogs behave exactly as they do for a
// user at the terminal.
package gitrepo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// defaultBranches are tried in order when no base is configured.
var defaultBranches = []string{"main", "master"}

// Repo is a git working tree.
type Repo struct {
	root   string
	gitDir string
	repo   *git.Repository
	git    CommandExecutor
	logger *zap.Logger
}

// Open locates the repository containing path.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Repo, error) {
	runner := NewExecExecutor(path)
	root, err := trimmed(runner.Run(ctx, nil, "rev-parse", "--show-toplevel"))
	if err != nil {
		logger.Debug("locating repository", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s is not inside a git working tree", path)
	}
	gitDir, err := trimmed(runner.Run(ctx, nil, "rev-parse", "--absolute-git-dir"))
	if err != nil {
		return nil, err
	}

	r, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", root, err)
	}
	return NewWithExecutor(root, gitDir, r, NewExecExecutor(root), logger), nil
}

// NewWithExecutor assembles a Repo from parts.
func NewWithExecutor(root, gitDir string, r *git.Repository, exec CommandExecutor, logger *zap.Logger) *Repo {
	return &Repo{root: root, gitDir: gitDir, repo: r, git: exec, logger: logger.Named("git")}
}

// Root implements domain.Backend.
func (r *Repo) Root() string { return r.root }

// StateDir implements domain.Backend.
func (r *Repo) StateDir() string { return filepath.Join(r.gitDir, "reabsorb") }

// ResolveRevision resolves rev to a commit id.
func (r *Repo) ResolveRevision(ctx context.Context, rev string) (domain.RevisionID, error) {
	if h, err := r.repo.ResolveRevision(plumbing.Revision(rev)); err == nil {
		if _, err := r.repo.CommitObject(*h); err == nil {
			return domain.RevisionID(h.String()), nil
		}
	}
	// go-git does not understand every revision expression git does
	out, err := trimmed(r.git.Run(ctx, nil, "rev-parse", "--verify", "--quiet", rev+"^{commit}"))
	if err != nil {
		return "", fmt.Errorf("unknown revision %q: %w", rev, err)
	}
	return domain.RevisionID(out), nil
}

// DefaultBase returns the merge-base of HEAD with main, or else master.
func (r *Repo) DefaultBase(ctx context.Context) (domain.RevisionID, error) {
	for _, branch := range defaultBranches {
		out, err := trimmed(r.git.Run(ctx, nil, "merge-base", branch, "HEAD"))
		if err == nil && out != "" {
			return domain.RevisionID(out), nil
		}
	}
	return "", fmt.Errorf("could not find a merge-base with %s", strings.Join(defaultBranches, " or "))
}

// CurrentBranch returns the short name of the checked-out branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is detached at %s; check out a branch first", ref.Hash().String()[:7])
	}
	return ref.Name().Short(), nil
}

// CurrentTip returns the commit HEAD points at.
func (r *Repo) CurrentTip(ctx context.Context) (domain.RevisionID, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	return domain.RevisionID(ref.Hash().String()), nil
}

// IsAncestor reports whether base is reachable from tip. A revision is its
// own ancestor.
func (r *Repo) IsAncestor(ctx context.Context, base, tip domain.RevisionID) (bool, error) {
	if base == tip {
		return true, nil
	}
	b, err := r.commit(base)
	if err != nil {
		return false, err
	}
	t, err := r.commit(tip)
	if err != nil {
		return false, err
	}
	return b.IsAncestor(t)
}

func (r *Repo) commit(id domain.RevisionID) (*object.Commit, error) {
	c, err := r.repo.CommitObject(plumbing.NewHash(string(id)))
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", id.Short(), err)
	}
	return c, nil
}

func (r *Repo) tree(id domain.RevisionID) (*object.Tree, error) {
	c, err := r.commit(id)
	if err != nil {
		return nil, err
	}
	return c.Tree()
}

// rangeCommits lists base..tip along first parents, oldest first.
func (r *Repo) rangeCommits(ctx context.Context, base, tip domain.RevisionID) ([]*object.Commit, error) {
	out, err := r.git.Run(ctx, nil, "rev-list", "--first-parent", "--reverse", string(base)+".."+string(tip))
	if err != nil {
		return nil, err
	}
	var commits []*object.Commit
	for _, line := range strings.Fields(out) {
		c, err := r.commit(domain.RevisionID(line))
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}
