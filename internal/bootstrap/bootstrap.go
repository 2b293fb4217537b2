// Package bootstrap wires adapters into application services for a
// repository. The CLI and the MCP server share it.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/anchors"
	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/config"
	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/gitrepo"
	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/history"
	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/llm"
	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/lock"
	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/planstore"
	"github.com/AllyMarthaJ/git-reabsorb/internal/application"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/strategy"
)

// Overrides are command-line settings applied over the loaded config.
type Overrides struct {
	Strategy    string
	Base        string
	LLMProvider string
	LLMModel    string
	NoVerify    bool
}

// App holds the services for one repository.
type App struct {
	Repo     *gitrepo.Repo
	Config   domain.Config
	Plans    *application.PlanService
	Apply    *application.ApplyService
	Validate *application.ValidateService
	Assess   *application.AssessService
	Logger   *zap.Logger
}

// Open locates the repository containing path, loads its configuration and
// builds every service. A language model client is only created when the
// effective strategy needs one.
func Open(ctx context.Context, path string, o Overrides, logger *zap.Logger) (*App, error) {
	if o.Strategy != "" {
		if _, err := strategy.Parse(o.Strategy); err != nil {
			return nil, err
		}
	}

	repo, err := gitrepo.Open(ctx, path, logger)
	if err != nil {
		return nil, err
	}

	cfg, err := config.New().Load(repo.Root())
	if err != nil {
		return nil, err
	}
	applyOverrides(&cfg, o)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var client domain.LLMClient
	if name := strategy.Name(cfg.Strategy); name.NeedsLLM() {
		c, err := llm.New(ctx, cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring %s provider: %w", cfg.LLM.Provider, err)
		}
		client = c
	}

	state := repo.StateDir()
	plans := planstore.New()
	planSvc := application.NewPlanService(repo, client, plans, cfg, logger)

	return &App{
		Repo:     repo,
		Config:   cfg,
		Plans:    planSvc,
		Apply:    application.NewApplyService(repo, anchors.New(filepath.Join(state, "anchors")), lock.New(filepath.Join(state, "locks")), plans, logger),
		Validate: application.NewValidateService(planSvc),
		Assess:   application.NewAssessService(repo, history.New(filepath.Join(state, "assessments")), cfg, logger),
		Logger:   logger,
	}, nil
}

func applyOverrides(cfg *domain.Config, o Overrides) {
	if o.Strategy != "" {
		cfg.Strategy = o.Strategy
	}
	if o.Base != "" {
		cfg.Base = o.Base
	}
	if o.LLMProvider != "" {
		cfg.LLM.Provider = o.LLMProvider
		cfg.LLM.APIKey = config.APIKey(o.LLMProvider)
	}
	if o.LLMModel != "" {
		cfg.LLM.Model = o.LLMModel
	}
	if o.NoVerify {
		cfg.Apply.NoVerify = true
	}
}
