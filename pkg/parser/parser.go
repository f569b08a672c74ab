package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/ccollicutt/chatstat/pkg/detector"
	"github.com/ccollicutt/chatstat/pkg/dialect"
)

// DefaultSentinel is the author some exporters use for unattributed lines.
const DefaultSentinel = "Sender not detected"

// Result is the outcome of parsing one transcript.
type Result struct {
	// Source is the file path, or empty for in-memory input.
	Source string

	// Dialect is the detected or forced dialect.
	Dialect *dialect.Dialect

	// Table holds the parsed records.
	Table *Table

	// Warnings lists dropped records and discarded lines, in line order.
	Warnings []Warning

	// LinesRead is the number of physical lines in the input.
	LinesRead int

	// LinesExcluded is the number of lines dropped by the exclusion list.
	LinesExcluded int

	// ServiceLines is the number of header lines without an author, such as
	// membership changes.
	ServiceLines int
}

// Parser turns transcript lines into a Table. A Parser holds configuration
// only and is safe for concurrent use.
type Parser struct {
	detector   *detector.Detector
	dialect    *dialect.Dialect
	exclusions *Exclusions
	sentinel   string
	logger     *slog.Logger

	sampleSize int
	dialects   []*dialect.Dialect
}

// Option configures the Parser.
type Option func(*Parser)

// WithExclusions replaces the default exclusion list.
func WithExclusions(e *Exclusions) Option {
	return func(p *Parser) {
		p.exclusions = e
	}
}

// WithSampleSize sets the number of lines used for dialect detection.
func WithSampleSize(n int) Option {
	return func(p *Parser) {
		p.sampleSize = n
	}
}

// WithDialects replaces the candidate dialects used for detection.
func WithDialects(dialects ...*dialect.Dialect) Option {
	return func(p *Parser) {
		p.dialects = dialects
	}
}

// WithDialect forces a dialect and skips detection.
func WithDialect(d *dialect.Dialect) Option {
	return func(p *Parser) {
		p.dialect = d
	}
}

// WithSentinel sets the author name that marks unattributed records.
func WithSentinel(s string) Option {
	return func(p *Parser) {
		p.sentinel = s
	}
}

// WithLogger sets the logger that receives warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Parser with the default exclusions and dialects.
func New(opts ...Option) *Parser {
	p := &Parser{
		exclusions: DefaultExclusions(),
		sentinel:   DefaultSentinel,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}

	var dopts []detector.Option
	if p.sampleSize > 0 {
		dopts = append(dopts, detector.WithSampleSize(p.sampleSize))
	}
	if len(p.dialects) > 0 {
		dopts = append(dopts, detector.WithDialects(p.dialects...))
	}
	p.detector = detector.New(dopts...)

	return p
}

// Detector returns the detector used when no dialect is forced.
func (p *Parser) Detector() *detector.Detector {
	return p.detector
}

// Exclusions returns the active exclusion list.
func (p *Parser) Exclusions() *Exclusions {
	return p.exclusions
}

// ParseFile reads the transcript at path and parses it. The file is closed
// before ParseFile returns, including on parse failure.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening transcript %s: %w", path, err)
	}
	defer f.Close()

	res, err := p.parseReader(ctx, path, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// ParseReader reads r fully and parses it.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader) (*Result, error) {
	return p.parseReader(ctx, "", r)
}

func (p *Parser) parseReader(ctx context.Context, source string, r io.Reader) (*Result, error) {
	lines, err := readLines(ctx, r)
	if err != nil {
		return nil, err
	}
	return p.parse(source, lines)
}

// ParseLines parses lines that were already read.
func (p *Parser) ParseLines(lines []string) (*Result, error) {
	return p.parse("", lines)
}

// parseState is the mutable state of one parse call. open is the index of
// the record continuation lines are merged into, or -1 before the first
// message.
type parseState struct {
	dialect *dialect.Dialect
	records []Record
	open    int
	result  *Result
}

func (p *Parser) parse(source string, lines []string) (*Result, error) {
	res := &Result{Source: source, LinesRead: len(lines)}

	d := p.dialect
	if d == nil {
		detection, err := p.detector.DetectFromLines(lines)
		if err != nil {
			return nil, err
		}
		d = detection.Dialect
	}
	res.Dialect = d

	p.logger.Debug("dialect selected", "source", source, "dialect", d.Name)

	st := &parseState{dialect: d, open: -1, result: res}
	for i, raw := range lines {
		if err := p.parseLine(st, i+1, dialect.CleanLine(raw)); err != nil {
			return nil, err
		}
	}

	res.Table = NewTable(p.finalize(st))
	sort.SliceStable(res.Warnings, func(i, j int) bool {
		return res.Warnings[i].Line < res.Warnings[j].Line
	})
	return res, nil
}

// parseLine applies one physical line to the state.
func (p *Parser) parseLine(st *parseState, num int, line string) error {
	if p.exclusions.Matches(line) {
		st.result.LinesExcluded++
		return nil
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}

	stamp, ok := st.dialect.MatchTimestamp(line)
	if !ok {
		if st.open < 0 {
			return &OrphanContinuationError{Line: num, Content: line}
		}
		st.records[st.open].Body += " " + line
		return nil
	}

	ts, err := st.dialect.ParseTimestamp(stamp)
	if err != nil {
		return &TimestampParseError{
			Line:    num,
			Content: line,
			Value:   stamp,
			Dialect: st.dialect.Name,
			Err:     err,
		}
	}

	remainder, ok := st.dialect.StripHeader(line)
	if !ok {
		p.warn(st, Warning{Kind: WarningMalformedHeader, Line: num, Content: line})
		return nil
	}

	author, rest, ok := strings.Cut(remainder, ":")
	if !ok {
		st.result.ServiceLines++
		p.logger.Debug("service line discarded", "line", num, "content", line)
		return nil
	}

	// Only a literal "<author>: " prefix is stripped; "Alice:x" keeps the
	// whole remainder as its body.
	body, found := strings.CutPrefix(remainder, author+": ")
	if !found {
		body = remainder
		if strings.TrimSpace(rest) == "" {
			body = ""
		}
	}

	st.records = append(st.records, Record{
		Timestamp: ts,
		Author:    author,
		Body:      body,
		Line:      num,
	})
	st.open = len(st.records) - 1
	return nil
}

// finalize drops sentinel-attributed and empty records and trims bodies.
func (p *Parser) finalize(st *parseState) []Record {
	out := make([]Record, 0, len(st.records))
	for _, r := range st.records {
		r.Body = strings.TrimSpace(r.Body)

		switch {
		case p.sentinel != "" && r.Author == p.sentinel:
			p.warn(st, Warning{Kind: WarningUnknownAuthor, Line: r.Line, Content: r.Body})
		case strings.TrimSpace(r.Author) == "" || r.Body == "":
			p.warn(st, Warning{Kind: WarningEmptyBody, Line: r.Line, Content: r.Author})
		default:
			out = append(out, r)
		}
	}
	return out
}

func (p *Parser) warn(st *parseState, w Warning) {
	st.result.Warnings = append(st.result.Warnings, w)
	p.logger.Warn("parse warning",
		"source", st.result.Source,
		"kind", w.Kind,
		"line", w.Line,
	)
}

// readLines reads r fully into lines.
func readLines(ctx context.Context, r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max line size

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return lines, nil
}
