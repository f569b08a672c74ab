// Package dialect describes the line-header conventions of chat exports.
//
// A dialect is pure data: a header pattern, a timestamp pattern with one
// capture group, and a Go time layout. Supporting a new export format means
// adding a Dialect value, either in Defaults or from a configuration file.
package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Built-in dialect names.
const (
	IOSA    = "ios_a"
	IOSB    = "ios_b"
	Android = "android"
)

// Matcher is the behaviour the detector and parser need from a dialect.
type Matcher interface {
	// MatchHeader reports whether line starts with this dialect's full header.
	MatchHeader(line string) bool

	// MatchTimestamp returns the timestamp substring at the start of line.
	MatchTimestamp(line string) (string, bool)

	// ParseTimestamp converts a matched timestamp substring into an instant.
	ParseTimestamp(s string) (time.Time, error)

	// StripHeader removes the header and returns what follows it.
	StripHeader(line string) (string, bool)
}

// Dialect is one export convention.
type Dialect struct {
	Name       string         // Identifier used in config and reports
	Header     *regexp.Regexp // Full leading framing text
	HeaderStr  string         // Header pattern source for config output
	Timestamp  *regexp.Regexp // Timestamp substring, first capture group
	StampStr   string         // Timestamp pattern source for config output
	Layout     string         // Go time layout for the captured timestamp
	Resolution time.Duration  // Finest unit the layout carries
	Example    string         // A sample header line
}

var _ Matcher = (*Dialect)(nil)

// New compiles a dialect from pattern strings. Both patterns are anchored at
// the start of the line if they are not already.
func New(name, header, timestamp, layout string) (*Dialect, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	if layout == "" {
		return nil, errors.New("layout is required")
	}

	hre, err := regexp.Compile(anchor(header))
	if err != nil {
		return nil, fmt.Errorf("invalid header pattern: %w", err)
	}

	tre, err := regexp.Compile(anchor(timestamp))
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp pattern: %w", err)
	}
	if tre.NumSubexp() < 1 {
		return nil, errors.New("timestamp pattern must have a capture group for the timestamp")
	}

	return &Dialect{
		Name:       name,
		Header:     hre,
		HeaderStr:  header,
		Timestamp:  tre,
		StampStr:   timestamp,
		Layout:     layout,
		Resolution: resolution(layout),
	}, nil
}

// MustNew is like New but panics on error. Intended for static tables.
func MustNew(name, header, timestamp, layout string) *Dialect {
	d, err := New(name, header, timestamp, layout)
	if err != nil {
		panic(fmt.Sprintf("dialect %s: %v", name, err))
	}
	return d
}

// MatchHeader reports whether line starts with the full header.
func (d *Dialect) MatchHeader(line string) bool {
	return d.Header.MatchString(line)
}

// MatchTimestamp returns the captured timestamp at the start of line.
func (d *Dialect) MatchTimestamp(line string) (string, bool) {
	m := d.Timestamp.FindStringSubmatch(line)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// ParseTimestamp parses s with the dialect layout. Exports carry no zone, so
// the result is in UTC.
func (d *Dialect) ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(d.Layout, s)
}

// StripHeader returns the text after the header. ok is false when line does
// not start with a full header.
func (d *Dialect) StripHeader(line string) (string, bool) {
	loc := d.Header.FindStringIndex(line)
	if loc == nil {
		return line, false
	}
	return line[loc[1]:], true
}

// String returns the dialect name.
func (d *Dialect) String() string {
	return d.Name
}

// Defaults returns the built-in dialects in matching order. Each call returns
// fresh values.
func Defaults() []*Dialect {
	iosA := MustNew(IOSA,
		`^\[\d\d\.\d\d\.\d\d, \d\d:\d\d:\d\d\] `,
		`^\[(\d\d\.\d\d\.\d\d, \d\d:\d\d:\d\d)\]`,
		"02.01.06, 15:04:05")
	iosA.Example = "[12.01.20, 09:00:00] Alice: Hello"

	iosB := MustNew(IOSB,
		`^\[\d+/\d+/\d\d \d+:\d+:\d+\] `,
		`^\[(\d+/\d+/\d\d \d+:\d+:\d+)\]`,
		"2/1/06 15:04:05")
	iosB.Example = "[2/1/20 9:00:00] Alice: Hello"

	android := MustNew(Android,
		`^\d\d\.\d\d\.\d\d, \d\d:\d\d - `,
		`^(\d\d\.\d\d\.\d\d, \d\d:\d\d)`,
		"02.01.06, 15:04")
	android.Example = "12.01.20, 09:00 - Alice: Hello"

	return []*Dialect{iosA, iosB, android}
}

// Lookup finds a dialect by name.
func Lookup(dialects []*Dialect, name string) (*Dialect, bool) {
	for _, d := range dialects {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Names returns the names of the given dialects in order.
func Names(dialects []*Dialect) []string {
	names := make([]string, len(dialects))
	for i, d := range dialects {
		names[i] = d.Name
	}
	return names
}

func anchor(pattern string) string {
	if strings.HasPrefix(pattern, "^") {
		return pattern
	}
	return "^" + pattern
}

// resolution reports the finest unit present in a Go layout.
func resolution(layout string) time.Duration {
	switch {
	case strings.Contains(layout, "05") || strings.Contains(layout, ":5"):
		return time.Second
	case strings.Contains(layout, "04"):
		return time.Minute
	case strings.Contains(layout, "15") || strings.Contains(layout, "03") || strings.Contains(layout, "3"):
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// CleanLine removes export artifacts that would defeat anchored matching: a
// trailing carriage return and leading byte order or direction marks.
func CleanLine(line string) string {
	line = strings.TrimSuffix(line, "\r")
	return strings.TrimLeft(line, "\ufeff\u200e\u200f")
}
