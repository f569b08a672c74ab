package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatstat/pkg/output"
	"github.com/ccollicutt/chatstat/pkg/parser"
	"github.com/ccollicutt/chatstat/pkg/stats"
)

// StatsOptions holds command-line options for the stats command.
type StatsOptions struct {
	ConfigFile string
	Kind       string
	Output     string
	Step       time.Duration
	Dialect    string
	Workers    int
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	opts := &StatsOptions{}

	kinds := make([]string, 0, len(stats.Kinds()))
	for _, k := range stats.Kinds() {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:   "stats <transcript>...",
		Short: "Compute per-author statistics",
		Long: `Parse transcripts and compute one statistic over the merged records.

Statistics:
  ` + strings.Join(kinds, "\n  ") + `

Example:
  chatstat stats chat.txt
  chatstat stats --kind respond-times -o json chat.txt
  chatstat stats --kind active-time --step 30m exports/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVarP(&opts.Kind, "kind", "k", string(stats.KindSummary), "Statistic to compute")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().DurationVar(&opts.Step, "step", stats.DefaultActiveStep, "Bucket width for active-time")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "Force a dialect instead of detecting it")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Files parsed concurrently (0 = one per CPU)")

	return cmd
}

func runStats(cmd *cobra.Command, args []string, opts *StatsOptions) error {
	ctx := contextFor(cmd)

	kind, err := stats.ParseKind(opts.Kind)
	if err != nil {
		return err
	}

	logger, err := loggerFor(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := applyParseFlags(cfg, &ParseOptions{Dialect: opts.Dialect, Workers: opts.Workers}); err != nil {
		return err
	}

	p := parser.New(cfg.ParserOptions(logger)...)
	results, err := parseArgs(ctx, p, cmd, args, cfg.Workers)
	if err != nil {
		return err
	}

	tables := make([]*parser.Table, len(results))
	for i, r := range results {
		tables[i] = r.Table
	}
	table := parser.Merge(tables...)

	var value any
	if kind == stats.KindActiveTime {
		value = stats.ActiveTime(table, opts.Step)
	} else if value, err = stats.Compute(kind, table); err != nil {
		return err
	}

	if err := output.WriteStats(cmd.OutOrStdout(), opts.Output, kind, value); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
