package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/history"
	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/tui"
	"github.com/AllyMarthaJ/git-reabsorb/internal/application"
	"github.com/AllyMarthaJ/git-reabsorb/internal/bootstrap"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
)

func newAssessCmd(opts *rootOptions) *cobra.Command {
	var (
		base        string
		save        string
		showHistory bool
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score the quality of the branch's commit history",
		Long:  "Score each commit between base and tip for atomicity, message quality and size balance.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.open(ctx, bootstrap.Overrides{Base: base})
			if err != nil {
				return err
			}

			if showHistory {
				entries, err := app.Assess.History()
				if err != nil {
					return fmt.Errorf("loading history: %w", err)
				}
				if opts.json {
					return renderJSON(cmd, entries)
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(entries))
				return nil
			}

			baseID, tip, err := app.Plans.ResolveRange(ctx, base)
			if err != nil {
				return err
			}
			score, err := app.Assess.Assess(ctx, baseID, tip)
			if err != nil {
				return err
			}
			if save != "" {
				if err := app.Assess.Save(save, score); err != nil {
					return err
				}
				opts.logger.Info("assessment saved", zap.String("path", save))
			}

			if opts.json {
				return renderJSON(cmd, score)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderAssessment(score))
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "Base revision (defaults to the merge-base with main or master)")
	cmd.Flags().StringVar(&save, "save", "", "Write the assessment snapshot to FILE")
	cmd.Flags().BoolVar(&showHistory, "history", false, "Show recorded assessments instead of scoring")
	return cmd
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <before> <after>",
		Short: "Compare two saved assessments",
		Long:  "Report per-criterion changes between two snapshots written by `reabsorb assess --save`.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// snapshots are self-contained, no repository needed
			svc := application.NewAssessService(nil, history.New(""), domain.DefaultConfig(), opts.logger)
			delta, err := svc.CompareFiles(args[0], args[1])
			if err != nil {
				return err
			}
			if opts.json {
				return renderJSON(cmd, delta)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderDelta(delta))
			return nil
		},
	}
}
