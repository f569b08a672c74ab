package output

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// maxWarnings is how many warnings per source are listed without --verbose.
const maxWarnings = 5

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// styles are bound to the destination writer so colour is dropped when it is
// not a terminal.
type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
	warn    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		heading: r.NewStyle().Bold(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("240")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "chatstat: %d sources, %d records, %d authors, %d warnings\n",
		report.Summary.Sources,
		report.Summary.Records,
		report.Summary.Authors,
		report.Summary.Warnings)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	st := newStyles(w)

	fmt.Fprintln(w, st.title.Render("=== chatstat report ==="))
	fmt.Fprintln(w)

	for i := range report.Sources {
		f.formatSource(&report.Sources[i], st, w)
	}

	if len(report.Authors) > 0 {
		fmt.Fprintln(w, st.heading.Render("Authors"))
		fmt.Fprintln(w, authorTable(report))
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d sources, %d records, %d authors, %d warnings\n",
		report.Summary.Sources,
		report.Summary.Records,
		report.Summary.Authors,
		report.Summary.Warnings)

	if report.Summary.First != nil && report.Summary.Last != nil {
		fmt.Fprintf(w, "Span: %s to %s\n",
			report.Summary.First.Format("2006-01-02 15:04"),
			report.Summary.Last.Format("2006-01-02 15:04"))
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Lines read: %d\n", report.Summary.LinesRead)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatSource(src *Source, st styles, w io.Writer) {
	name := src.Path
	if name == "" {
		name = "<stdin>"
	}
	fmt.Fprintf(w, "%s %s\n", st.heading.Render("["+src.Dialect+"]"), name)
	fmt.Fprintf(w, "  Records: %d, lines: %d, excluded: %d, service: %d\n",
		src.Records, src.LinesRead, src.LinesExcluded, src.ServiceLines)

	if len(src.Warnings) == 0 {
		fmt.Fprintln(w, "  No warnings")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w, st.warn.Render(fmt.Sprintf("  Warnings: %d", len(src.Warnings))))
	shown := src.Warnings
	if !f.opts.Verbose && len(shown) > maxWarnings {
		shown = shown[:maxWarnings]
	}
	for _, warn := range shown {
		fmt.Fprintf(w, "  - %s\n", warn)
	}
	if hidden := len(src.Warnings) - len(shown); hidden > 0 {
		fmt.Fprintln(w, st.dim.Render(fmt.Sprintf("  ... %d more (use --verbose)", hidden)))
	}
	fmt.Fprintln(w)
}

func authorTable(report *Report) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Author", "Messages", "Words", "Avg/day", "Max/day", "Avg words", "Respond min")

	for _, a := range report.Authors {
		t.Row(
			a.Author,
			strconv.Itoa(a.Messages),
			strconv.Itoa(a.Words),
			formatFloat(a.AvgMessagesPerDay),
			strconv.Itoa(a.MaxMessagesPerDay),
			formatFloat(a.AvgWords),
			formatFloat(a.AvgRespondMinutes),
		)
	}
	return t.Render()
}
