package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/plan"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/strategy"
)

// PlanService builds change models and runs strategies over them:
// resolve range → diff → change model → source commits → strategy → validated plan.
type PlanService struct {
	source domain.ChangeSource
	llm    domain.LLMClient
	store  domain.PlanStore
	cfg    domain.Config
	logger *zap.Logger
}

// NewPlanService wires a plan service. llm may be nil when no LLM strategy
// will be used.
func NewPlanService(
	source domain.ChangeSource,
	llm domain.LLMClient,
	store domain.PlanStore,
	cfg domain.Config,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		source: source,
		llm:    llm,
		store:  store,
		cfg:    cfg,
		logger: logger.Named("plan"),
	}
}

// PlanRequest selects what to plan.
type PlanRequest struct {
	Strategy strategy.Name
	// Range is an explicit "base..tip" range. Either side may be empty: the
	// base then falls back as for Base and the tip is HEAD. It cannot be
	// combined with Base.
	Range string
	// Base overrides the configured or detected base revision.
	Base string
	// Message overrides the squash commit message.
	Message string
}

// PlanResult is a validated plan together with the model it was built from.
type PlanResult struct {
	Plan  *domain.Plan
	Model *domain.ChangeModel
}

// ResolveRange resolves the base (flag, then config, then the backend's
// default) and the current tip.
func (s *PlanService) ResolveRange(ctx context.Context, base string) (domain.RevisionID, domain.RevisionID, error) {
	if base == "" {
		base = s.cfg.Base
	}

	var (
		baseID domain.RevisionID
		err    error
	)
	if base == "" {
		baseID, err = s.source.DefaultBase(ctx)
	} else {
		baseID, err = s.source.ResolveRevision(ctx, base)
	}
	if err != nil {
		return "", "", errors.WithHint(
			&domain.DiffError{Kind: domain.DiffUnknownRevision, Err: err},
			"pass --base with the commit or branch this branch was created from")
	}

	tip, err := s.source.CurrentTip(ctx)
	if err != nil {
		return "", "", &domain.DiffError{Kind: domain.DiffUnknownRevision, Base: baseID, Err: err}
	}
	return baseID, tip, nil
}

// ResolveSpan resolves an explicit "base..tip" range.
func (s *PlanService) ResolveSpan(ctx context.Context, rng, base string) (domain.RevisionID, domain.RevisionID, error) {
	if base != "" {
		return "", "", errors.WithHint(
			&domain.DiffError{Kind: domain.DiffUnknownRevision, Err: fmt.Errorf("range %q and --base %q both given", rng, base)},
			"pass either a range or --base")
	}
	from, to, ok := strings.Cut(rng, "..")
	if !ok || strings.HasPrefix(to, ".") || strings.Contains(to, "..") {
		return "", "", errors.WithHint(
			&domain.DiffError{Kind: domain.DiffUnknownRevision, Err: fmt.Errorf("invalid range %q", rng)},
			"write the range as base..tip, for example main..HEAD")
	}

	baseID, tip, err := s.ResolveRange(ctx, from)
	if err != nil {
		return "", "", err
	}
	if to == "" {
		return baseID, tip, nil
	}
	tip, err = s.source.ResolveRevision(ctx, to)
	if err != nil {
		return "", "", errors.WithHint(
			&domain.DiffError{Kind: domain.DiffUnknownRevision, Base: baseID, Err: err},
			"the end of the range must name a commit")
	}
	return baseID, tip, nil
}

// BuildChangeModel decomposes base..tip into hunks.
func (s *PlanService) BuildChangeModel(ctx context.Context, base, tip domain.RevisionID) (*domain.ChangeModel, error) {
	ok, err := s.source.IsAncestor(ctx, base, tip)
	if err != nil {
		return nil, &domain.DiffError{Kind: domain.DiffBackend, Base: base, Tip: tip, Err: err}
	}
	if !ok {
		return nil, errors.WithHint(
			&domain.DiffError{Kind: domain.DiffNotAncestor, Base: base, Tip: tip},
			"pass --base with a commit the branch was created from")
	}

	hunks, err := s.source.ComputeDiff(ctx, base, tip)
	if err != nil {
		var de *domain.DiffError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, &domain.DiffError{Kind: domain.DiffBackend, Base: base, Tip: tip, Err: err}
	}
	if len(hunks) == 0 {
		return nil, errors.WithHint(
			&domain.DiffError{Kind: domain.DiffNoChanges, Base: base, Tip: tip},
			"there is nothing to reorganize between base and tip")
	}

	cm, err := domain.NewChangeModel(base, tip, hunks)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("built change model",
		zap.String("base", base.Short()),
		zap.String("tip", tip.Short()),
		zap.Int("hunks", cm.Len()),
		zap.Int("paths", len(cm.Paths())))
	return cm, nil
}

// Plan resolves the range, builds the model and runs the strategy.
func (s *PlanService) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	// 1. Resolve range
	base, tip, err := s.ResolveRange(ctx, req.Base)
	if req.Range != "" {
		base, tip, err = s.ResolveSpan(ctx, req.Range, req.Base)
	}
	if err != nil {
		return nil, err
	}

	// 2. Build change model
	cm, err := s.BuildChangeModel(ctx, base, tip)
	if err != nil {
		return nil, err
	}

	// 3. Run strategy
	p, err := s.Run(ctx, req, cm)
	if err != nil {
		return nil, err
	}
	return &PlanResult{Plan: p, Model: cm}, nil
}

// Run executes a strategy over an existing model.
func (s *PlanService) Run(ctx context.Context, req PlanRequest, cm *domain.ChangeModel) (*domain.Plan, error) {
	name := req.Strategy
	if name == "" {
		name = strategy.Name(s.cfg.Strategy)
	}
	if name == "" {
		name = strategy.Preserve
	}

	sc := strategy.Context{
		LLM:              s.llm,
		Message:          req.Message,
		RequestBudget:    s.cfg.LLM.RequestBudget,
		ContentThreshold: s.cfg.LLM.ContentThreshold,
		PhaseThreshold:   s.cfg.PhaseThreshold(),
		MaxDepth:         s.cfg.Hierarchical.MaxDepth,
		NoRepair:         s.cfg.LLM.NoRepair,
		Logger:           s.logger,
	}
	if name != strategy.ByFile {
		commits, err := s.source.SourceCommits(ctx, cm.Base, cm.Tip)
		switch {
		case err != nil && name == strategy.Preserve:
			return nil, fmt.Errorf("reading source commits: %w", err)
		case err != nil:
			s.logger.Warn("source commits unavailable", zap.Error(err))
		default:
			sc.SourceCommits = commits
		}
	}

	s.logger.Info("planning",
		zap.String("strategy", string(name)),
		zap.Int("hunks", cm.Len()),
		zap.Int("source_commits", len(sc.SourceCommits)))

	p, err := strategy.Plan(ctx, name, cm, sc)
	if err != nil {
		return nil, err
	}
	s.logger.Info("plan ready", zap.Int("commits", len(p.Commits)))
	return p, nil
}

// Save persists a plan.
func (s *PlanService) Save(path string, p *domain.Plan) error {
	if err := s.store.Save(path, p); err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// Load reads a persisted plan, rebuilds the model it targets and validates
// the plan against it.
func (s *PlanService) Load(ctx context.Context, path string) (*PlanResult, error) {
	p, err := s.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	cm, err := s.BuildChangeModel(ctx, p.Base, p.Tip)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(p, cm); err != nil {
		return &PlanResult{Plan: p, Model: cm}, errors.WithHint(err, domain.HintHandEdit)
	}
	return &PlanResult{Plan: p, Model: cm}, nil
}
