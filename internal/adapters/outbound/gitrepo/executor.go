package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// CommandExecutor runs git subcommands in a working tree.
type CommandExecutor interface {
	// Run executes git with args and returns its stdout.
	Run(ctx context.Context, stdin io.Reader, args ...string) (string, error)
}

// ExecExecutor is the default CommandExecutor. It shells out to the git
// binary found on PATH.
type ExecExecutor struct {
	dir string
	env []string
}

// NewExecExecutor creates an executor rooted at dir.
func NewExecExecutor(dir string) *ExecExecutor {
	return &ExecExecutor{
		dir: dir,
		env: append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0"),
	}
}

// Run implements CommandExecutor.Run. Failures are *domain.BackendError
// carrying the subcommand, its arguments and stderr.
func (e *ExecExecutor) Run(ctx context.Context, stdin io.Reader, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = e.dir
	cmd.Env = e.env
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		op := ""
		var rest []string
		if len(args) > 0 {
			op, rest = args[0], args[1:]
		}
		return "", &domain.BackendError{Op: op, Args: rest, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// exitCode returns the process exit status carried by err, or -1.
func exitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func trimmed(out string, err error) (string, error) {
	return strings.TrimSpace(out), err
}
