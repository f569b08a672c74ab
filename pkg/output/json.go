package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ccollicutt/chatstat/pkg/stats"
)

// QuietDocument is what JSONFormatter writes in quiet mode: the counts and
// the per-author table, without records.
type QuietDocument struct {
	Summary Summary               `json:"summary"`
	Authors []stats.AuthorSummary `json:"authors"`
}

// JSONFormatter writes the report as indented JSON.
type JSONFormatter struct {
	opts FormatOptions
}

func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

func (f *JSONFormatter) Name() string {
	return "json"
}

// Format encodes the whole report, or a QuietDocument when Quiet is set.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var doc any = report
	if f.opts.Quiet {
		doc = QuietDocument{Summary: report.Summary, Authors: report.Authors}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding json report: %w", err)
	}
	return nil
}
