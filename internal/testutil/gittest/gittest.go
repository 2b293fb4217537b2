// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// Repo is a git working tree in a temporary directory.
type Repo struct {
	t   testing.TB
	Dir string
}

// New initializes an empty repository whose current branch is main.
func New(t testing.TB) *Repo {
	t.Helper()
	r := &Repo{t: t, Dir: t.TempDir()}
	r.Git("init", "--quiet")
	r.Git("symbolic-ref", "HEAD", "refs/heads/main")
	r.Git("config", "user.email", "test@test.com")
	r.Git("config", "user.name", "Test")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Git runs git in the repository and returns its trimmed output.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	require.NoError(r.t, err, "git %v: %s", args, string(out))
	return strings.TrimSpace(string(out))
}

// Write creates or replaces a file relative to the working tree.
func (r *Repo) Write(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.Dir, name)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
}

// Commit stages everything and commits it.
func (r *Repo) Commit(msg string) domain.RevisionID {
	r.t.Helper()
	r.Git("add", "-A")
	r.Git("commit", "--quiet", "-m", msg)
	return r.Head()
}

// Head is the current commit.
func (r *Repo) Head() domain.RevisionID {
	r.t.Helper()
	return domain.RevisionID(r.Git("rev-parse", "HEAD"))
}

// Subjects lists the commit subjects in base..HEAD, oldest first.
func (r *Repo) Subjects(base domain.RevisionID) []string {
	r.t.Helper()
	out := r.Git("log", "--reverse", "--format=%s", string(base)+"..HEAD")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Numbered returns n lines "l01", "l02", ... with line i replaced by edits[i].
func Numbered(n int, edits map[int]string) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		if s, ok := edits[i]; ok {
			b.WriteString(s + "\n")
			continue
		}
		b.WriteString("l" + string(rune('0'+i/10)) + string(rune('0'+i%10)) + "\n")
	}
	return b.String()
}

// Feature builds main with x.txt, then checks out a feature branch with two
// commits: one edits line 2 of x.txt, the next edits line 8 and adds y.txt.
func Feature(t testing.TB) (r *Repo, base, tip domain.RevisionID) {
	t.Helper()
	r = New(t)
	r.Write("x.txt", Numbered(10, nil))
	base = r.Commit("Initial")

	r.Git("checkout", "--quiet", "-b", "feature")
	r.Write("x.txt", Numbered(10, map[int]string{2: "two"}))
	r.Commit("Edit line two")
	r.Write("x.txt", Numbered(10, map[int]string{2: "two", 8: "eight"}))
	r.Write("y.txt", "hello\n")
	tip = r.Commit("Edit line eight and add y")
	return r, base, tip
}
