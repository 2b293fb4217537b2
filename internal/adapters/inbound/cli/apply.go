package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/tui"
	"github.com/AllyMarthaJ/git-reabsorb/internal/application"
	"github.com/AllyMarthaJ/git-reabsorb/internal/bootstrap"
)

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		flags    planFlags
		planFile string
		retry    bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Rewrite the branch from a plan",
		Long: "Apply a saved plan (--plan), or plan and apply in one step. With --retry, resume an apply " +
			"that stopped after its undo anchor was captured, reusing the plan it was running.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !retry && planFile == "" {
				return runPlan(cmd, opts, &flags, false)
			}

			ctx := cmd.Context()
			app, err := opts.open(ctx, flags.overrides())
			if err != nil {
				return err
			}
			applyOpts := application.ApplyOptions{NoVerify: app.Config.Apply.NoVerify}

			if retry {
				res, err := retryPlan(ctx, app, planFile)
				if err != nil {
					return err
				}
				report, err := app.Apply.Retry(ctx, res.Plan, res.Model, applyOpts)
				return finishApply(cmd, opts, report, err)
			}

			res, err := app.Plans.Load(ctx, planFile)
			if err != nil {
				return err
			}
			report, err := app.Apply.Apply(ctx, res.Plan, res.Model, applyOpts)
			return finishApply(cmd, opts, report, err)
		},
	}

	flags.bind(cmd, false)
	cmd.Flags().StringVar(&planFile, "plan", "", "Plan file written by --save-plan")
	cmd.Flags().BoolVar(&retry, "retry", false, "Resume a failed apply from its undo anchor")
	return cmd
}

// retryPlan loads the plan to resume: the given file, or the plan the last
// apply on this branch recorded.
func retryPlan(ctx context.Context, app *bootstrap.App, planFile string) (*application.PlanResult, error) {
	if planFile != "" {
		return app.Plans.Load(ctx, planFile)
	}
	branch, err := app.Repo.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	p, err := app.Apply.LastPlan(branch)
	if err != nil {
		return nil, fmt.Errorf("no plan recorded for %s: %w", branch, err)
	}
	cm, err := app.Plans.BuildChangeModel(ctx, p.Base, p.Tip)
	if err != nil {
		return nil, err
	}
	return &application.PlanResult{Plan: p, Model: cm}, nil
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the branch to its state before the last apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd.Context(), bootstrap.Overrides{})
			if err != nil {
				return err
			}
			anchor, err := app.Apply.Reset(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return renderJSON(cmd, anchor)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderReset(anchor))
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the branch, its undo anchor and the last applied plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd.Context(), bootstrap.Overrides{})
			if err != nil {
				return err
			}
			st, err := app.Apply.Status(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				return renderJSON(cmd, st)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderStatus(st))
			return nil
		},
	}
}
