package parser

import (
	"fmt"

	"github.com/ccollicutt/chatstat/pkg/detector"
)

// FormatError is returned when the dialect cannot be determined.
type FormatError = detector.FormatError

// ErrUnrecognizedFormat is wrapped by every FormatError.
var ErrUnrecognizedFormat = detector.ErrUnrecognizedFormat

// TimestampParseError reports a header-shaped line whose timestamp does not
// parse under the dialect layout.
type TimestampParseError struct {
	Line    int
	Content string
	Value   string // The captured timestamp text
	Dialect string
	Err     error
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("line %d: parsing %s timestamp %q: %v", e.Line, e.Dialect, e.Value, e.Err)
}

func (e *TimestampParseError) Unwrap() error {
	return e.Err
}

// OrphanContinuationError reports a continuation line with no message before
// it, which means the transcript is truncated or corrupt.
type OrphanContinuationError struct {
	Line    int
	Content string
}

func (e *OrphanContinuationError) Error() string {
	return fmt.Sprintf("line %d: continuation line before any message: %q", e.Line, truncate(e.Content, 80))
}

// WarningKind categorizes non-fatal parse findings.
type WarningKind string

const (
	// WarningUnknownAuthor marks a record attributed to the unknown-sender
	// sentinel. The record is dropped.
	WarningUnknownAuthor WarningKind = "unknown_author"

	// WarningEmptyBody marks a record whose author or body is empty. The
	// record is dropped.
	WarningEmptyBody WarningKind = "empty_body"

	// WarningMalformedHeader marks a line that starts with a timestamp but
	// not with a full header. The line is discarded.
	WarningMalformedHeader WarningKind = "malformed_header"
)

// Warning is a data-quality finding that did not stop the parse.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Line    int         `json:"line"`
	Content string      `json:"content"`
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s: %q", w.Line, w.Kind, truncate(w.Content, 80))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
