package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ccollicutt/chatstat/pkg/config"
	"github.com/ccollicutt/chatstat/pkg/detector"
	"github.com/ccollicutt/chatstat/pkg/dialect"
	"github.com/ccollicutt/chatstat/pkg/parser"

	"github.com/spf13/cobra"
)

// Diagnostic statuses.
const (
	StatusOK      = "ok"
	StatusWarning = "warning"
	StatusError   = "error"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigFile string
	Verbose    bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [transcript]...",
		Short: "Diagnose configuration and transcript problems",
		Long: `Diagnose common problems before a real run.

This command checks:
- Config file existence and syntax (with --config)
- Transcript existence and readability
- Dialect detection on each transcript
- A trial parse, reporting warnings and fatal line errors
- Webhook settings (and reachability with --verbose)

Example:
  chatstat diagnose chat.txt
  chatstat diagnose -c chatstat.yaml -v exports/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(contextFor(cmd), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file to check")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, transcripts []string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	cfg := config.DefaultConfig()
	if opts.ConfigFile != "" {
		result := checkConfigExists(opts.ConfigFile)
		results = append(results, result)
		if result.Status == StatusError {
			printDiagnostics(w, results, opts)
			return nil
		}

		var loaded *config.Config
		loaded, result = checkConfigParseable(ctx, opts.ConfigFile)
		results = append(results, result)
		if result.Status == StatusError {
			printDiagnostics(w, results, opts)
			return nil
		}
		cfg = loaded
	} else if err := config.Validate(cfg); err != nil {
		return err
	}

	results = append(results, checkDialects(cfg, opts))

	files, fileResults := checkTranscripts(transcripts)
	results = append(results, fileResults...)

	for _, f := range files {
		results = append(results, checkDetection(ctx, cfg, f, opts))
		results = append(results, checkTrialParse(ctx, cfg, f, opts))
	}

	results = append(results, checkWebhooks(ctx, cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'chatstat detect <transcript> --write-config chatstat.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = StatusError
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = StatusWarning
		result.Message = "Config file is empty; defaults apply"
		return result
	}

	result.Status = StatusOK
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Failed to load config: %v", err)
		if errors.Is(err, config.ErrNoDialect) {
			result.Suggests = []string{"Run 'chatstat detect <transcript>' to see which dialect matches"}
		} else {
			result.Suggests = []string{"Run 'chatstat validate " + path + "' after fixing the file"}
		}
		return nil, result
	}

	result.Status = StatusOK
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Custom dialects: %d", len(cfg.Dialects)),
		fmt.Sprintf("Exclusions: %d", cfg.Exclusions().Len()),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkDialects(cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check:  "Dialects",
		Status: StatusOK,
	}

	dialects := cfg.CompiledDialects()
	result.Message = fmt.Sprintf("%d dialect(s) available", len(dialects))
	if d := cfg.ForcedDialect(); d != nil {
		result.Message += fmt.Sprintf(", %s forced", d.Name)
	}

	for _, d := range dialects {
		if d.Example != "" && !d.MatchHeader(d.Example) {
			result.Status = StatusError
			result.Details = append(result.Details, fmt.Sprintf("%s: example %q does not match its header", d.Name, d.Example))
		} else if opts.Verbose {
			result.Details = append(result.Details, fmt.Sprintf("%s: layout %q", d.Name, d.Layout))
		}
	}
	return result
}

func checkTranscripts(patterns []string) ([]string, []DiagnosticResult) {
	if len(patterns) == 0 {
		return nil, []DiagnosticResult{{
			Check:    "Transcripts",
			Status:   StatusWarning,
			Message:  "No transcripts given; only configuration was checked",
			Suggests: []string{"Pass transcript files to test detection and parsing"},
		}}
	}

	expanded, err := parser.ExpandPaths(patterns)
	if err != nil {
		return nil, []DiagnosticResult{{
			Check:   "Transcripts",
			Status:  StatusError,
			Message: fmt.Sprintf("Invalid pattern: %v", err),
		}}
	}

	var files []string
	var results []DiagnosticResult
	for _, path := range expanded {
		result := DiagnosticResult{
			Check: fmt.Sprintf("Transcript: %s", path),
		}

		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			result.Status = StatusError
			result.Message = "File does not exist"
			result.Suggests = []string{"Check the transcript path is correct"}
		case err != nil:
			result.Status = StatusError
			result.Message = fmt.Sprintf("Cannot access file: %v", err)
			result.Suggests = []string{"Check file permissions"}
		case info.IsDir():
			result.Status = StatusError
			result.Message = "Path is a directory with no transcripts"
		case info.Size() == 0:
			result.Status = StatusWarning
			result.Message = "File is empty (0 bytes)"
		default:
			result.Status = StatusOK
			result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
			files = append(files, path)
		}
		results = append(results, result)
	}

	if len(files) == 0 {
		results = append(results, DiagnosticResult{
			Check:    "Transcripts Summary",
			Status:   StatusError,
			Message:  "No readable transcripts found",
			Suggests: []string{"Ensure at least one transcript exists and is not empty"},
		})
	}
	return files, results
}

func checkDetection(ctx context.Context, cfg *config.Config, path string, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Detection: %s", path),
	}

	d := detector.New(
		detector.WithSampleSize(cfg.SampleSize),
		detector.WithDialects(cfg.CompiledDialects()...),
	)
	det, err := d.DetectFromFile(ctx, path)
	if det == nil {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Cannot sample file: %v", err)
		return result
	}

	for _, v := range det.Votes {
		result.Details = append(result.Details, fmt.Sprintf("%s: %d vote(s), e.g. %s", v.Dialect.Name, v.Count, truncate(v.SampleLine, 60)))
	}

	forced := cfg.ForcedDialect()
	switch {
	case err == nil && forced != nil && forced.Name != det.Dialect.Name:
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Detected %s but config forces %s", det.Dialect.Name, forced.Name)
	case err == nil:
		result.Status = StatusOK
		result.Message = fmt.Sprintf("Detected %s from %d sampled lines", det.Dialect.Name, det.SampledLines)
		if !opts.Verbose {
			result.Details = nil
		}
	case forced != nil:
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Detection failed but config forces %s", forced.Name)
	case len(det.Votes) == 0:
		result.Status = StatusError
		result.Message = fmt.Sprintf("No known dialect in %d sampled lines", det.SampledLines)
		result.Suggests = []string{
			"Add a custom dialect to the config file",
			"Increase sample_size if the file starts with a long preamble",
		}
	default:
		result.Status = StatusError
		result.Message = "Sample mixes dialects"
		result.Suggests = []string{
			"The export may be several files joined together; split it",
			"Force one dialect with --dialect or the dialect config key",
		}
	}
	return result
}

func checkTrialParse(ctx context.Context, cfg *config.Config, path string, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Trial Parse: %s", path),
	}

	p := parser.New(cfg.ParserOptions(nil)...)
	res, err := p.ParseFile(ctx, path)
	if err != nil {
		result.Status = StatusError
		result.Message = err.Error()

		var tsErr *parser.TimestampParseError
		var orphan *parser.OrphanContinuationError
		switch {
		case errors.As(err, &tsErr):
			result.Suggests = []string{"Check the dialect's timestamp layout against the file"}
			if d, ok := dialect.Lookup(cfg.CompiledDialects(), tsErr.Dialect); ok {
				result.Suggests = []string{fmt.Sprintf("Layout %q cannot read %q", d.Layout, tsErr.Value)}
			}
		case errors.As(err, &orphan):
			result.Suggests = []string{"The file may be truncated at the start; the first line is not a message header"}
		}
		return result
	}

	result.Message = fmt.Sprintf("%d records, %d excluded lines, %d service lines, %d warnings",
		res.Table.Len(), res.LinesExcluded, res.ServiceLines, len(res.Warnings))
	if len(res.Warnings) > 0 {
		result.Status = StatusWarning
		shown := res.Warnings
		if !opts.Verbose && len(shown) > 3 {
			shown = shown[:3]
		}
		for _, warn := range shown {
			result.Details = append(result.Details, warn.String())
		}
	} else {
		result.Status = StatusOK
	}
	return result
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== chatstat Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case StatusOK:
			icon = "PASS"
			okCount++
		case StatusWarning:
			icon = "WARN"
			warnCount++
		case StatusError:
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != StatusOK {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before parsing.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nUsable, but check the warnings.")
	} else {
		fmt.Fprintln(w, "\nEverything looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  StatusOK,
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check:   fmt.Sprintf("Webhook: %s", name),
			Status:  StatusOK,
			Message: fmt.Sprintf("Trigger: %s", wh.Trigger),
		}
		if wh.Trigger == config.WebhookTriggerNever {
			result.Status = StatusWarning
			result.Message = "Trigger is never; this webhook is disabled"
		}
		if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout),
			}
			if wh.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			} else {
				result.Details = append(result.Details, "Token: none (or its environment variable is unset)")
			}
		}
		results = append(results, result)

		if opts.Verbose {
			conn := checkWebhookConnectivity(ctx, wh)
			conn.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, conn)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = StatusOK
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = StatusWarning
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may only accept POST, which is what real deliveries use",
			"Check authentication if using a token",
		}
	}

	return result
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
