package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

const breakerCooldown = 30 * time.Second

// New builds the configured provider behind the limiter and breaker.
func New(ctx context.Context, cfg domain.LLMConfig, logger *zap.Logger) (*Client, error) {
	var (
		completer Completer
		err       error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "claude":
		completer = NewClaudeCLI("", cfg.Model)
	case "openai":
		completer = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		completer, err = NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}

	guarded := NewResilient(completer, cfg.RequestsPerMinute, breakerCooldown, logger)
	return NewClient(guarded, cfg.Timeout, logger), nil
}
