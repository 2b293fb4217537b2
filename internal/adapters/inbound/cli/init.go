package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AllyMarthaJ/git-reabsorb/internal/adapters/outbound/config"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain"
	"github.com/AllyMarthaJ/git-reabsorb/internal/domain/strategy"
)

func newInitCmd() *cobra.Command {
	var (
		strategyName string
		provider     string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Generate a " + config.FileName + " configuration file",
		Long:  "Create a " + config.FileName + " with the default settings and the chosen strategy and provider.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			dest := filepath.Join(absPath, config.FileName)

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
				}
			}

			if _, err := strategy.Parse(strategyName); err != nil {
				return err
			}

			cfg := domain.DefaultConfig()
			cfg.Strategy = strategyName
			cfg.LLM.Provider = provider
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := os.WriteFile(dest, []byte(generateConfig(cfg)), 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", config.FileName)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", string(strategy.Preserve), "Default strategy")
	cmd.Flags().StringVar(&provider, "llm-provider", "claude", "Language model provider (claude, openai, gemini)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing "+config.FileName)

	return cmd
}

func generateConfig(cfg domain.Config) string {
	var b strings.Builder

	b.WriteString("# reabsorb configuration\n\n")
	fmt.Fprintf(&b, "strategy: %s\n", cfg.Strategy)
	b.WriteString("# base: main\n\n")

	b.WriteString("llm:\n")
	fmt.Fprintf(&b, "  provider: %s\n", cfg.LLM.Provider)
	b.WriteString("  # model: gpt-4o-mini\n")
	fmt.Fprintf(&b, "  timeout: %s\n", cfg.LLM.Timeout)
	fmt.Fprintf(&b, "  request_budget: %d\n", cfg.LLM.RequestBudget)
	fmt.Fprintf(&b, "  content_threshold: %d\n", cfg.LLM.ContentThreshold)
	fmt.Fprintf(&b, "  requests_per_minute: %d\n", cfg.LLM.RequestsPerMinute)
	fmt.Fprintf(&b, "  no_repair: %t\n\n", cfg.LLM.NoRepair)

	b.WriteString("hierarchical:\n")
	b.WriteString("  # threshold: 30000\n")
	fmt.Fprintf(&b, "  max_depth: %d\n\n", cfg.Hierarchical.MaxDepth)

	b.WriteString("apply:\n")
	fmt.Fprintf(&b, "  no_verify: %t\n\n", cfg.Apply.NoVerify)

	b.WriteString("# assessment:\n#   weights:\n")
	for _, c := range domain.Criteria {
		fmt.Fprintf(&b, "#     %s: %.2f\n", c, 1.0/float64(len(domain.Criteria)))
	}
	return b.String()
}
