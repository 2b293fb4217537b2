package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/tui"
	"github.com/AllyMarthaJ/git-reabsorb/internal/application"
	"github.com/AllyMarthaJ/git-reabsorb/internal/bootstrap"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

// planFlags select and tune a strategy.
type planFlags struct {
	strategy    string
	base        string
	message     string
	savePlan    string
	llmProvider string
	llmModel    string
	noVerify    bool
	dryRun      bool
	// rng is the optional RANGE argument
	rng string
}

// setRange takes the optional RANGE argument.
func (f *planFlags) setRange(args []string) {
	if len(args) == 1 {
		f.rng = args[0]
	}
}

func (f *planFlags) bind(cmd *cobra.Command, withDryRun bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.strategy, "strategy", "s", "", "Strategy: preserve, by-file, squash, llm, hierarchical")
	fs.StringVar(&f.base, "base", "", "Base revision (defaults to the merge-base with main or master)")
	fs.StringVar(&f.message, "message", "", "Commit message for the squash strategy")
	fs.StringVar(&f.savePlan, "save-plan", "", "Write the plan to FILE (.json, .yaml or .yml)")
	fs.StringVar(&f.llmProvider, "llm-provider", "", "Language model provider: claude, openai, gemini")
	fs.StringVar(&f.llmModel, "llm-model", "", "Language model name")
	fs.BoolVar(&f.noVerify, "no-verify", false, "Skip commit hooks when applying")
	if withDryRun {
		fs.BoolVar(&f.dryRun, "dry-run", false, "Print the plan without rewriting the branch")
	}
}

func (f *planFlags) overrides() bootstrap.Overrides {
	return bootstrap.Overrides{
		Strategy:    f.strategy,
		Base:        f.base,
		LLMProvider: f.llmProvider,
		LLMModel:    f.llmModel,
		NoVerify:    f.noVerify,
	}
}

func (f *planFlags) request() application.PlanRequest {
	return application.PlanRequest{Range: f.rng, Base: f.base, Message: f.message}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	flags := &planFlags{}
	cmd := &cobra.Command{
		Use:   "run [RANGE]",
		Short: "Plan and apply a reorganization of the current branch",
		Long:  "Plan and apply. RANGE is base..tip, for example main..HEAD; without it the base is detected.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.setRange(args)
			return runPlan(cmd, opts, flags, flags.dryRun)
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	flags := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan [RANGE]",
		Short: "Print the plan a strategy would apply",
		Long:  "Build and validate a plan without touching the branch. Equivalent to `reabsorb run --dry-run`.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.setRange(args)
			return runPlan(cmd, opts, flags, true)
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func runPlan(cmd *cobra.Command, opts *rootOptions, flags *planFlags, dryRun bool) error {
	ctx := cmd.Context()
	app, err := opts.open(ctx, flags.overrides())
	if err != nil {
		return err
	}

	res, err := app.Plans.Plan(ctx, flags.request())
	if err != nil {
		return err
	}
	if flags.savePlan != "" {
		if err := app.Plans.Save(flags.savePlan, res.Plan); err != nil {
			return err
		}
		opts.logger.Info("plan saved", zap.String("path", flags.savePlan))
	}

	if dryRun {
		if opts.json {
			return renderJSON(cmd, res.Plan)
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderPlan(res.Plan, res.Model))
		return nil
	}

	report, err := app.Apply.Apply(ctx, res.Plan, res.Model, application.ApplyOptions{NoVerify: app.Config.Apply.NoVerify})
	return finishApply(cmd, opts, report, err)
}

// finishApply prints whatever the apply achieved, then returns its error.
func finishApply(cmd *cobra.Command, opts *rootOptions, report *domain.ApplyReport, err error) error {
	if report == nil || (err != nil && report.Anchor == nil) {
		return err
	}
	if opts.json {
		if jerr := renderJSON(cmd, report); jerr != nil && err == nil {
			return jerr
		}
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), tui.RenderApplyReport(report))
	return err
}

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
