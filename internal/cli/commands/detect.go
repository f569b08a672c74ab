package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/chatstat/pkg/detector"
	"github.com/ccollicutt/chatstat/pkg/dialect"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	ConfigFile  string
	Output      string
	SampleSize  int
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <transcript>",
		Short: "Detect the export dialect of a transcript",
		Long: `Sample the first lines of a transcript and report which dialect it uses.

Lines starting with a letter are skipped since they are continuation text.
Every other sampled line votes for the dialect whose header it matches.
Detection succeeds only when exactly one dialect received votes.

Optionally generates a starter config file with --write-config.

Example:
  chatstat detect chat.txt
  chatstat detect --sample 50 chat.txt
  chatstat detect -w chatstat.yaml chat.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file with custom dialects")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	transcript := args[0]
	ctx := contextFor(cmd)

	if opts.Output != "text" && opts.Output != "json" {
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}

	if _, err := os.Stat(transcript); os.IsNotExist(err) {
		return fmt.Errorf("transcript not found: %s", transcript)
	}

	cfg, err := loadConfig(ctx, opts.ConfigFile)
	if err != nil {
		return err
	}

	d := detector.New(
		detector.WithSampleSize(opts.SampleSize),
		detector.WithDialects(cfg.CompiledDialects()...),
	)

	result, detectErr := d.DetectFromFile(ctx, transcript)
	var formatErr *detector.FormatError
	if detectErr != nil && !errors.As(detectErr, &formatErr) {
		return fmt.Errorf("detection failed: %w", detectErr)
	}

	if detectErr == nil && opts.WriteConfig != "" {
		if err := writeStarterConfig(cmd.OutOrStdout(), result, transcript, opts.WriteConfig); err != nil {
			return err
		}
	}

	var outErr error
	switch opts.Output {
	case "json":
		outErr = outputDetectJSON(cmd.OutOrStdout(), result, transcript)
	default:
		outErr = outputDetectText(cmd.OutOrStdout(), result, transcript)
	}
	if outErr != nil {
		return outErr
	}

	if detectErr != nil {
		return fmt.Errorf("detection failed: %w", detectErr)
	}
	return nil
}

func outputDetectText(w io.Writer, result *detector.Result, transcript string) error {
	fmt.Fprintln(w, "=== Dialect Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", transcript)
	fmt.Fprintf(w, "Lines sampled: %d (skipped %d continuation, %d unmatched)\n",
		result.SampledLines, result.SkippedLines, result.UnmatchedLines)
	fmt.Fprintln(w)

	if len(result.Votes) == 0 {
		fmt.Fprintln(w, "No known dialect detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: add a custom dialect to the config file:")
		fmt.Fprintln(w, "  dialects:")
		fmt.Fprintln(w, "    - name: mine")
		fmt.Fprintln(w, `      header: '^...'`)
		fmt.Fprintln(w, `      timestamp: '^(...)'`)
		fmt.Fprintln(w, `      layout: "..."`)
		return nil
	}

	fmt.Fprintln(w, "Votes:")
	for _, v := range result.Votes {
		fmt.Fprintf(w, "  %-10s %d\n", v.Dialect.Name, v.Count)
		fmt.Fprintf(w, "             e.g. %s\n", v.SampleLine)
	}
	fmt.Fprintln(w)

	if result.Dialect == nil {
		fmt.Fprintln(w, "WARNING: the sample mixes dialects; the export may be concatenated.")
		fmt.Fprintln(w, "Split the file or force one with --dialect.")
		return nil
	}

	fmt.Fprintf(w, "Detected dialect: %s\n", result.Dialect.Name)
	fmt.Fprintf(w, "Timestamp layout: %s (resolution %s)\n", result.Dialect.Layout, result.Dialect.Resolution)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "dialect: %s\n", result.Dialect.Name)
	return nil
}

// JSONVote represents one dialect's votes in JSON output.
type JSONVote struct {
	Dialect    string `json:"dialect"`
	Count      int    `json:"count"`
	SampleLine string `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File           string     `json:"file"`
	Dialect        string     `json:"dialect,omitempty"`
	Layout         string     `json:"layout,omitempty"`
	Votes          []JSONVote `json:"votes"`
	SampledLines   int        `json:"sampled_lines"`
	SkippedLines   int        `json:"skipped_lines"`
	UnmatchedLines int        `json:"unmatched_lines"`
}

func outputDetectJSON(w io.Writer, result *detector.Result, transcript string) error {
	out := JSONOutput{
		File:           transcript,
		SampledLines:   result.SampledLines,
		SkippedLines:   result.SkippedLines,
		UnmatchedLines: result.UnmatchedLines,
		Votes:          make([]JSONVote, 0, len(result.Votes)),
	}
	if result.Dialect != nil {
		out.Dialect = result.Dialect.Name
		out.Layout = result.Dialect.Layout
	}
	for _, v := range result.Votes {
		out.Votes = append(out.Votes, JSONVote{
			Dialect:    v.Dialect.Name,
			Count:      v.Count,
			SampleLine: v.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file with the detected dialect.
func writeStarterConfig(w io.Writer, result *detector.Result, transcript, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if result == nil || result.Dialect == nil {
		return fmt.Errorf("cannot generate config: no dialect detected")
	}

	var content string
	if strings.EqualFold(filepath.Ext(configPath), ".toml") {
		content = generateStarterTOML(transcript, result.Dialect)
	} else {
		content = generateStarterConfig(transcript, result.Dialect)
	}

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(transcript string, d *dialect.Dialect) string {
	return fmt.Sprintf(`# chatstat configuration
# Generated by: chatstat detect %s
# Detected dialect: %s (e.g. %q)

# Skip detection and always use this dialect.
dialect: %s

# Lines sampled when detecting the dialect.
sample_size: %d

# Substrings that mark system notices to drop. Setting "exclude" replaces
# the built-in list; "extra_exclude" adds to it.
# extra_exclude:
#   - "This message was deleted"

# Author name some exporters use for lines they could not attribute.
# sentinel: "Sender not detected"

# Custom export formats, tried before the built-in ones.
# dialects:
#   - name: custom
#     header: '^\d{4}-\d\d-\d\d \d\d:\d\d \| '
#     timestamp: '^(\d{4}-\d\d-\d\d \d\d:\d\d)'
#     layout: "2006-01-02 15:04"

# Send the JSON report somewhere after each run.
# webhooks:
#   - name: ops
#     url: https://example.com/hooks/chatstat
#     token: ${CHATSTAT_WEBHOOK_TOKEN}
#     trigger: on_warnings
`, absPath(transcript), d.Name, d.Example, d.Name, detector.DefaultSampleSize)
}

// generateStarterTOML creates a TOML config template.
func generateStarterTOML(transcript string, d *dialect.Dialect) string {
	return fmt.Sprintf(`# chatstat configuration
# Generated by: chatstat detect %s
# Detected dialect: %s

dialect = %q
sample_size = %d

# extra_exclude = ["This message was deleted"]
# sentinel = "Sender not detected"

# [[dialects]]
# name = "custom"
# header = '^\d{4}-\d\d-\d\d \d\d:\d\d \| '
# timestamp = '^(\d{4}-\d\d-\d\d \d\d:\d\d)'
# layout = "2006-01-02 15:04"

# [[webhooks]]
# url = "https://example.com/hooks/chatstat"
# trigger = "on_warnings"
`, absPath(transcript), d.Name, d.Name, detector.DefaultSampleSize)
}
