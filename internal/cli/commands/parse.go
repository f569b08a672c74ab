package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatstat/pkg/config"
	"github.com/ccollicutt/chatstat/pkg/output"
	"github.com/ccollicutt/chatstat/pkg/parser"
	"github.com/ccollicutt/chatstat/pkg/webhook"
)

// StdinArg reads the transcript from standard input.
const StdinArg = "-"

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	ConfigFile string
	Output     string
	Exclude    []string
	Dialect    string
	SampleSize int
	Workers    int
	Verbose    bool
	Quiet      bool
	Strict     bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <transcript>...",
		Short: "Parse chat transcripts into a record table",
		Long: `Parse one or more exported chat transcripts.

The export dialect is detected from the first lines of each file unless
--dialect forces one. Multi-line messages are reassembled, system notices
are dropped, and the records of every file are merged into one timeline.

Arguments may be files, directories (every *.txt inside) or glob patterns.
Use - to read a single transcript from standard input.

Exit codes:
  0 - Parsed successfully
  1 - Parsed with warnings and --strict was set
  2 - Configuration, format, or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json|csv)")
	cmd.Flags().StringSliceVar(&opts.Exclude, "exclude", nil, "Extra substring marking lines to drop (can be repeated)")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "Force a dialect instead of detecting it")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 0, "Number of lines used for dialect detection")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Files parsed concurrently (0 = one per CPU)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show every warning and run details")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit 1 when any warning was produced")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnWarnings), "When to fire webhook (on_warnings|always|never)")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := contextFor(cmd)
	started := time.Now()

	logger, err := loggerFor(cmd)
	if err != nil {
		return err
	}

	formatter, err := output.New(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := applyParseFlags(cfg, opts); err != nil {
		return err
	}
	hooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	p := parser.New(cfg.ParserOptions(logger)...)
	results, err := parseArgs(ctx, p, cmd, args, cfg.Workers)
	if err != nil {
		return err
	}

	report := output.NewReport(results, opts.ConfigFile, started)

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are logged but don't fail the run
	sendWebhooks(ctx, logger, hooks, report)

	if opts.Strict && report.HasWarnings() {
		ExitCode = 1
	}

	return nil
}

// applyParseFlags layers command-line overrides on top of the config and
// re-validates it.
func applyParseFlags(cfg *config.Config, opts *ParseOptions) error {
	if opts.Dialect != "" {
		cfg.Dialect = opts.Dialect
	}
	if opts.SampleSize > 0 {
		cfg.SampleSize = opts.SampleSize
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	cfg.ExtraExclude = append(cfg.ExtraExclude, opts.Exclude...)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// parseArgs parses standard input or every transcript the arguments name.
func parseArgs(ctx context.Context, p *parser.Parser, cmd *cobra.Command, args []string, workers int) ([]*parser.Result, error) {
	if len(args) == 1 && args[0] == StdinArg {
		res, err := p.ParseReader(ctx, cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return []*parser.Result{res}, nil
	}

	files, err := parser.ExpandPaths(args)
	if err != nil {
		return nil, fmt.Errorf("expanding transcripts: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no transcripts matched: %v", args)
	}

	return p.ParseFiles(ctx, files, workers)
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *ParseOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, fmt.Errorf("webhook flags: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}

func sendWebhooks(ctx context.Context, logger *slog.Logger, hooks []config.WebhookConfig, report *output.Report) []webhook.Delivery {
	if len(hooks) == 0 {
		return nil
	}
	return webhook.NewClient(webhook.WithLogger(logger)).Notify(ctx, report, hooks)
}
