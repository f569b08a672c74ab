// Package detector identifies which chat export dialect a transcript uses.
package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ccollicutt/chatstat/pkg/dialect"
)

// DefaultSampleSize is the number of leading lines inspected.
const DefaultSampleSize = 10

// ErrUnrecognizedFormat is wrapped by every FormatError.
var ErrUnrecognizedFormat = errors.New("unrecognized or inconsistent chat format")

// FormatError reports that the sample matched no dialect or more than one.
type FormatError struct {
	Votes        []Vote // Dialects that received votes, in table order
	SampledLines int
}

func (e *FormatError) Error() string {
	if len(e.Votes) == 0 {
		return fmt.Sprintf("%s: no known header in %d sampled lines", ErrUnrecognizedFormat, e.SampledLines)
	}
	names := make([]string, len(e.Votes))
	for i, v := range e.Votes {
		names[i] = fmt.Sprintf("%s (%d)", v.Dialect.Name, v.Count)
	}
	return fmt.Sprintf("%s: sample mixes %s", ErrUnrecognizedFormat, strings.Join(names, ", "))
}

func (e *FormatError) Unwrap() error {
	return ErrUnrecognizedFormat
}

// Vote counts the sampled lines a dialect claimed.
type Vote struct {
	Dialect    *dialect.Dialect
	Count      int
	SampleLine string // First sampled line this dialect matched
}

// Result holds the outcome of sampling a transcript.
type Result struct {
	Dialect        *dialect.Dialect // Nil unless exactly one dialect voted
	Votes          []Vote
	SampledLines   int // Lines taken from the head of the input
	SkippedLines   int // Blank or letter-first lines that did not vote
	UnmatchedLines int // Lines no dialect claimed
}

// Detector samples the head of a transcript and votes on its dialect.
type Detector struct {
	dialects   []*dialect.Dialect
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 10).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithDialects replaces the candidate dialects. Order matters: a line votes
// for the first dialect whose header matches.
func WithDialects(dialects ...*dialect.Dialect) Option {
	return func(d *Detector) {
		if len(dialects) > 0 {
			d.dialects = dialects
		}
	}
}

// New creates a Detector over the built-in dialects.
func New(opts ...Option) *Detector {
	d := &Detector{
		dialects:   dialect.Defaults(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SampleSize returns the configured number of sampled lines.
func (d *Detector) SampleSize() int {
	return d.sampleSize
}

// Dialects returns the candidate dialects in matching order.
func (d *Detector) Dialects() []*dialect.Dialect {
	return d.dialects
}

// DetectFromFile samples the head of the file at path.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*Result, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return d.DetectFromReader(ctx, file)
}

// DetectFromReader samples up to the configured number of lines from r.
func (d *Detector) DetectFromReader(ctx context.Context, r io.Reader) (*Result, error) {
	lines := make([]string, 0, d.sampleSize)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for len(lines) < d.sampleSize && scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sampling transcript: %w", err)
	}

	return d.DetectFromLines(lines)
}

// DetectFromLines votes over the first SampleSize lines. The returned Result
// is always non-nil so callers can report the votes; the error is a
// *FormatError unless exactly one dialect voted.
func (d *Detector) DetectFromLines(lines []string) (*Result, error) {
	if len(lines) > d.sampleSize {
		lines = lines[:d.sampleSize]
	}

	result := &Result{SampledLines: len(lines)}
	counts := make(map[string]*Vote)

	for _, raw := range lines {
		line := dialect.CleanLine(raw)
		if Skippable(line) {
			result.SkippedLines++
			continue
		}

		matched := d.match(line)
		if matched == nil {
			result.UnmatchedLines++
			continue
		}

		v, ok := counts[matched.Name]
		if !ok {
			v = &Vote{Dialect: matched, SampleLine: line}
			counts[matched.Name] = v
		}
		v.Count++
	}

	// Keep table order so reports and errors are deterministic.
	for _, dl := range d.dialects {
		if v, ok := counts[dl.Name]; ok {
			result.Votes = append(result.Votes, *v)
		}
	}

	if len(result.Votes) != 1 {
		return result, &FormatError{Votes: result.Votes, SampledLines: result.SampledLines}
	}

	result.Dialect = result.Votes[0].Dialect
	return result, nil
}

// match returns the first dialect whose header matches line.
func (d *Detector) match(line string) *dialect.Dialect {
	for _, dl := range d.dialects {
		if dl.MatchHeader(line) {
			return dl
		}
	}
	return nil
}

// Skippable reports whether a sampled line cannot vote. Headers never start
// with a letter, so letter-first lines are wrapped message continuations.
func Skippable(line string) bool {
	if strings.TrimSpace(line) == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsLetter(r)
}
