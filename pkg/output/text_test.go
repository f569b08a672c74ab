package output

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ccollicutt/chatstat/pkg/parser"
)

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
}

func TestTextFormatter_Format_Empty(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	report := NewReport(nil, "", baseTime)

	var buf bytes.Buffer
	err := f.Format(context.Background(), report, &buf)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "chatstat report") {
		t.Error("Output missing header")
	}
	if !strings.Contains(output, "0 sources, 0 records") {
		t.Error("Output missing summary")
	}
	if strings.Contains(output, "Authors") {
		t.Error("Empty report should not print an author table")
	}
}

func TestTextFormatter_Format(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"[android]",
		"a.txt",
		"Warnings: 1",
		"line 3",
		"No warnings",
		"Alice",
		"Bob",
		"2 sources, 3 records, 2 authors, 1 warnings",
		"Span: 2020-01-12 09:00 to 2020-01-12 09:02",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "Duration") {
		t.Error("Duration should only appear in verbose mode")
	}
}

func TestTextFormatter_Format_Quiet(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Quiet: true})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if output != "chatstat: 2 sources, 3 records, 2 authors, 1 warnings\n" {
		t.Errorf("quiet output = %q", output)
	}
}

func TestTextFormatter_Format_Verbose(t *testing.T) {
	results := createTestResults()
	for i := 0; i < 8; i++ {
		results[0].Warnings = append(results[0].Warnings,
			parser.Warning{Kind: parser.WarningEmptyBody, Line: 10 + i, Content: fmt.Sprint(i)})
	}
	report := NewReport(results, "", baseTime)

	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), "4 more") {
		t.Errorf("non-verbose output should truncate warnings\n%s", buf.String())
	}

	buf.Reset()
	if err := NewTextFormatter(FormatOptions{Verbose: true}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "line 17") {
		t.Error("verbose output should list every warning")
	}
	if !strings.Contains(output, "Duration") || !strings.Contains(output, "Lines read: 5") {
		t.Error("verbose output missing run details")
	}
}
