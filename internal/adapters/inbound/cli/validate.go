package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/tui"
	"github.com/AllyMarthaJ/git-reabsorb/internal/application"
	"github.com/AllyMarthaJ/git-reabsorb/internal/bootstrap"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [plan-file]",
		Short: "Check that a plan covers every hunk exactly once and in order",
		Long: "Validate a plan file against the changes it targets. Without a file, validate the plan " +
			"recorded by the last apply on the current branch.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.open(ctx, bootstrap.Overrides{})
			if err != nil {
				return err
			}

			var report *application.ValidationReport
			if len(args) == 1 {
				report, err = app.Validate.ValidateFile(ctx, args[0])
			} else {
				var res *application.PlanResult
				res, err = retryPlan(ctx, app, "")
				if err != nil {
					return err
				}
				report, err = app.Validate.Validate("", res.Plan, res.Model)
			}
			if report == nil {
				return err
			}

			if opts.json {
				if jerr := renderJSON(cmd, report); jerr != nil {
					return jerr
				}
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderValidation(report.Path, report.Plan, report.Valid, report.Issues))
			return err
		},
	}
}
