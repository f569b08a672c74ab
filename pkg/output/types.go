// Package output provides formatting and output generation for parse results.
package output

import (
	"time"

	"github.com/ccollicutt/chatstat/pkg/parser"
	"github.com/ccollicutt/chatstat/pkg/stats"
)

// Report is the complete output of one run over one or more transcripts.
type Report struct {
	// Summary provides aggregate counts.
	Summary Summary `json:"summary"`

	// Sources describes each transcript that was parsed.
	Sources []Source `json:"sources"`

	// Authors is the per-author summary table over all sources.
	Authors []stats.AuthorSummary `json:"authors"`

	// Records is every record from every source in timestamp order.
	Records *parser.Table `json:"records"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Source is the outcome of parsing one transcript.
type Source struct {
	Path          string           `json:"path"`
	Dialect       string           `json:"dialect"`
	Records       int              `json:"records"`
	LinesRead     int              `json:"lines_read"`
	LinesExcluded int              `json:"lines_excluded"`
	ServiceLines  int              `json:"service_lines"`
	Warnings      []parser.Warning `json:"warnings"`
}

// Summary provides aggregate counts.
type Summary struct {
	Sources   int        `json:"sources"`
	Records   int        `json:"records"`
	Authors   int        `json:"authors"`
	Warnings  int        `json:"warnings"`
	LinesRead int        `json:"lines_read"`
	First     *time.Time `json:"first,omitempty"`
	Last      *time.Time `json:"last,omitempty"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// AnalyzedAt is when the run finished.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// NewReport builds a Report from parse results. started is when parsing
// began and is used for the duration.
func NewReport(results []*parser.Result, configFile string, started time.Time) *Report {
	now := time.Now()
	report := &Report{
		Sources: make([]Source, 0, len(results)),
		Metadata: Metadata{
			ConfigFile: configFile,
			AnalyzedAt: now,
			Duration:   now.Sub(started),
		},
	}

	tables := make([]*parser.Table, 0, len(results))
	for _, r := range results {
		src := Source{
			Path:          r.Source,
			Records:       r.Table.Len(),
			LinesRead:     r.LinesRead,
			LinesExcluded: r.LinesExcluded,
			ServiceLines:  r.ServiceLines,
			Warnings:      r.Warnings,
		}
		if src.Warnings == nil {
			src.Warnings = []parser.Warning{}
		}
		if r.Dialect != nil {
			src.Dialect = r.Dialect.Name
		}
		report.Sources = append(report.Sources, src)
		tables = append(tables, r.Table)

		report.Summary.Warnings += len(r.Warnings)
		report.Summary.LinesRead += r.LinesRead
	}

	report.Records = parser.Merge(tables...)
	report.Authors = stats.Summarize(report.Records)

	report.Summary.Sources = len(results)
	report.Summary.Records = report.Records.Len()
	report.Summary.Authors = len(report.Authors)
	if first, last, ok := report.Records.Span(); ok {
		report.Summary.First = &first
		report.Summary.Last = &last
	}

	return report
}

// HasWarnings returns true if any source produced warnings.
func (r *Report) HasWarnings() bool {
	return r.Summary.Warnings > 0
}
