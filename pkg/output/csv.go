package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the first row written by CSVFormatter.
var CSVHeader = []string{"timestamp", "author", "body", "line"}

// CSVFormatter writes the merged record table, one row per record.
type CSVFormatter struct {
	opts FormatOptions
}

// NewCSVFormatter creates a new CSV formatter with the given options.
func NewCSVFormatter(opts FormatOptions) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Format renders the report's records as CSV. Quiet mode writes the
// per-author summary instead.
func (f *CSVFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if f.opts.Quiet {
		if err := f.writeAuthors(cw, report); err != nil {
			return err
		}
	} else {
		if err := cw.Write(CSVHeader); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
		for _, r := range report.Records.Records() {
			row := []string{
				r.Timestamp.Format(time.RFC3339),
				r.Author,
				r.Body,
				strconv.Itoa(r.Line),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func (f *CSVFormatter) writeAuthors(cw *csv.Writer, report *Report) error {
	header := []string{"author", "messages", "words", "characters",
		"avg_messages_per_day", "max_messages_per_day", "avg_words",
		"avg_characters", "avg_respond_minutes", "avg_intraday_respond_minutes"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, a := range report.Authors {
		row := []string{
			a.Author,
			strconv.Itoa(a.Messages),
			strconv.Itoa(a.Words),
			strconv.Itoa(a.Characters),
			formatFloat(a.AvgMessagesPerDay),
			strconv.Itoa(a.MaxMessagesPerDay),
			formatFloat(a.AvgWords),
			formatFloat(a.AvgCharacters),
			formatFloat(a.AvgRespondMinutes),
			formatFloat(a.AvgIntradayMinutes),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
