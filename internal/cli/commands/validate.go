package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatstat/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a chatstat configuration file without parsing anything.

Checks:
  - YAML or TOML syntax, and unknown keys
  - Custom dialect patterns and layouts
  - The forced dialect name, if any
  - Webhook URLs and triggers`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(contextFor(cmd), configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	printConfigSummary(w, cfg)
	return nil
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	forced := "auto-detect"
	if cfg.Dialect != "" {
		forced = cfg.Dialect
	}
	workers := "one per CPU"
	if cfg.Workers > 0 {
		workers = fmt.Sprint(cfg.Workers)
	}

	fmt.Fprintf(w, "  Dialect:     %s\n", forced)
	fmt.Fprintf(w, "  Sample size: %d\n", cfg.SampleSize)
	fmt.Fprintf(w, "  Exclusions:  %d\n", cfg.Exclusions().Len())
	fmt.Fprintf(w, "  Sentinel:    %q\n", cfg.Sentinel)
	fmt.Fprintf(w, "  Workers:     %s\n", workers)
	fmt.Fprintf(w, "  Webhooks:    %d\n", len(cfg.Webhooks))

	custom := make(map[string]bool, len(cfg.Dialects))
	for _, d := range cfg.Dialects {
		custom[d.Name] = true
	}

	fmt.Fprintf(w, "\nDialects (matching order):\n")
	for i, d := range cfg.CompiledDialects() {
		origin := "built-in"
		if custom[d.Name] {
			origin = "custom"
		}
		fmt.Fprintf(w, "  %d. [%s] %s  layout %q\n", i+1, origin, d.Name, d.Layout)
	}
}
