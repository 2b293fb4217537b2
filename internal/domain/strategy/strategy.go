// Package strategy turns a change model into a commit plan.
//
// The set of strategies is closed: every name is a case in Plan's switch and
// every result passes plan validation before it is returned.
package strategy

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/plan"
)

// Name identifies a strategy.
type Name string

const (
	Preserve     Name = "preserve"
	ByFile       Name = "by-file"
	Squash       Name = "squash"
	LLM          Name = "llm"
	Hierarchical Name = "hierarchical"
)

// Names lists every strategy in help order.
var Names = []Name{Preserve, ByFile, Squash, LLM, Hierarchical}

const (
	defaultRequestBudget = 60000
	defaultMaxDepth      = 6
)

// Context carries the inputs individual strategies need.
type Context struct {
	// SourceCommits are the branch's original commits, oldest first.
	SourceCommits []domain.SourceCommit
	// LLM is required by llm and hierarchical.
	LLM domain.LLMClient
	// Message overrides the squash commit message.
	Message string

	RequestBudget    int
	ContentThreshold int
	PhaseThreshold   int
	MaxDepth         int
	// NoRepair disables local repair of invalid model groupings.
	NoRepair bool

	Logger *zap.Logger
}

func (c Context) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// NeedsLLM reports whether the strategy talks to a language model.
func (n Name) NeedsLLM() bool { return n == LLM || n == Hierarchical }

// Plan runs the named strategy and validates its output.
func Plan(ctx context.Context, name Name, cm *domain.ChangeModel, sc Context) (*domain.Plan, error) {
	var (
		p   *domain.Plan
		err error
	)
	switch name {
	case Preserve:
		p, err = planPreserve(cm, sc)
	case ByFile:
		p = planByFile(cm)
	case Squash:
		p = planSquash(cm, sc)
	case LLM:
		if sc.LLM == nil {
			return nil, missingLLM(name)
		}
		budget := orDefault(sc.RequestBudget, defaultRequestBudget)
		p, err = planLLM(ctx, cm, sc, llmOptions{budget: budget, limit: budget})
	case Hierarchical:
		if sc.LLM == nil {
			return nil, missingLLM(name)
		}
		p, err = planHierarchical(ctx, cm, sc)
	default:
		return nil, errors.WithHint(&domain.StrategyError{Kind: domain.StrategyUnknown, Strategy: string(name)}, domain.HintStrategy)
	}
	if err != nil {
		return nil, err
	}

	p.Strategy = string(name)
	if verr := plan.Validate(p, cm); verr != nil {
		return nil, errors.WithHint(errors.Wrapf(verr, "%s produced an invalid plan", name), domain.HintRerun)
	}
	sc.logger().Debug("plan ready",
		zap.String("strategy", string(name)),
		zap.Int("commits", len(p.Commits)),
		zap.Int("hunks", cm.Len()))
	return p, nil
}

// Parse resolves a strategy name.
func Parse(s string) (Name, error) {
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", errors.WithHint(&domain.StrategyError{Kind: domain.StrategyUnknown, Strategy: s}, domain.HintStrategy)
}

func missingLLM(name Name) error {
	return errors.WithHint(&domain.StrategyError{
		Kind:     domain.StrategyMissingInput,
		Strategy: string(name),
		Detail:   "no language model provider configured",
	}, "set llm.provider in .reabsorb.yaml or pass --llm-provider")
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
