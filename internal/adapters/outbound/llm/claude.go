package llm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ClaudeCLI runs prompts through the claude command line tool, which
// handles its own authentication.
type ClaudeCLI struct {
	binary string
	model  string
}

// NewClaudeCLI creates a completer for binary ("claude" when empty).
func NewClaudeCLI(binary, model string) *ClaudeCLI {
	if binary == "" {
		binary = "claude"
	}
	return &ClaudeCLI{binary: binary, model: model}
}

func (c *ClaudeCLI) Name() string { return "claude" }

// Complete pipes prompt to `claude --print` and returns its stdout.
func (c *ClaudeCLI) Complete(ctx context.Context, prompt string) (string, error) {
	args := []string{"--print"}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", c.binary, err, msg)
		}
		return "", fmt.Errorf("%s: %w", c.binary, err)
	}
	return stdout.String(), nil
}
