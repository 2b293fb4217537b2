package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/logging"
	"github.com/AllyMarthaJ/git-reabsorb/internal/bootstrap"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	path    string
	verbose bool
	json    bool
	logger  *zap.Logger
}

func (o *rootOptions) open(ctx context.Context, ov bootstrap.Overrides) (*bootstrap.App, error) {
	return bootstrap.Open(ctx, o.path, ov, o.logger)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	run := &planFlags{}

	cmd := &cobra.Command{
		Use:   "reabsorb [RANGE]",
		Short: "Reorganize a branch's commits without changing its tree",
		Long: "reabsorb collects every change between a base and the branch tip, regroups it into new commits " +
			"with a strategy, and rewrites the branch so that its final tree is exactly the original tip tree. " +
			"RANGE is base..tip; without it the base is detected.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = logging.NewWithWriter(cmd.ErrOrStderr(), opts.verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			run.setRange(args)
			return runPlan(cmd, opts, run, run.dryRun)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.path, "path", ".", "Path inside the repository")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output as JSON")
	run.bind(cmd, true)

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newPlanCmd(opts))
	cmd.AddCommand(newApplyCmd(opts))
	cmd.AddCommand(newResetCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newAssessCmd(opts))
	cmd.AddCommand(newCompareCmd(opts))
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

// Execute runs the command line with ctx. The caller maps the returned
// error to an exit status with ExitCode.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}
