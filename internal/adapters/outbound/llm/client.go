// Package llm implements domain.LLMClient over several language model
// providers. Providers only turn a prompt into text; Client owns prompt
// rendering, timeouts, error classification and response decoding.
package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// Completer sends one prompt to a provider and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Client adapts a Completer to domain.LLMClient.
type Client struct {
	completer Completer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient wraps completer. A zero timeout leaves requests bounded only by
// the caller's context.
func NewClient(completer Completer, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{completer: completer, timeout: timeout, logger: logger.Named("llm")}
}

// Group implements domain.LLMClient.
func (c *Client) Group(ctx context.Context, req *domain.GroupingRequest) (*domain.GroupingResponse, error) {
	prompt, err := Prompt(req)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.completer.Complete(callCtx, prompt)
	c.logger.Debug("completion finished",
		zap.String("provider", c.completer.Name()),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("reply_bytes", len(text)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return nil, c.classify(ctx, callCtx, err)
	}

	resp, err := Decode(text)
	if err != nil {
		return nil, &domain.LLMError{
			Kind:     domain.LLMMalformedResponse,
			Provider: c.completer.Name(),
			Raw:      text,
			Err:      err,
		}
	}
	return resp, nil
}

func (c *Client) classify(ctx, callCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	kind := domain.LLMUnreachable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		kind = domain.LLMTimeout
	}
	return &domain.LLMError{Kind: kind, Provider: c.completer.Name(), Err: err}
}
