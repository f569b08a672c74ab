package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ccollicutt/chatstat/internal/cli"
	"github.com/ccollicutt/chatstat/internal/cli/commands"
	"github.com/ccollicutt/chatstat/pkg/config"
	"github.com/ccollicutt/chatstat/pkg/output"
	"github.com/ccollicutt/chatstat/pkg/parser"
	"github.com/ccollicutt/chatstat/pkg/stats"
	"github.com/ccollicutt/chatstat/pkg/webhook"
)

var (
	projectRoot string
	rootOnce    sync.Once
)

// chdir changes to the project root directory for tests.
// Testdata paths are relative to project root.
func chdir(t *testing.T) {
	t.Helper()
	rootOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		projectRoot = filepath.Dir(filepath.Dir(filename))
	})
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("Failed to chdir to project root: %v", err)
	}
}

// requireFile fails the test if the required test file doesn't exist.
// We never skip tests - missing test data is a test failure.
func requireFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("Required test file not found: %s", path)
	}
}

func transcript(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{"testdata", "transcripts"}, parts...)...)
	requireFile(t, path)
	return path
}

func configFile(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{"testdata", "configs"}, parts...)...)
	requireFile(t, path)
	return path
}

func defaultParser(t *testing.T) *parser.Parser {
	t.Helper()
	cfg, err := config.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	return parser.New(cfg.ParserOptions(nil)...)
}

// chatstat runs the root command in-process and returns stdout and stderr.
func chatstat(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	commands.ExitCode = 0
	t.Cleanup(func() { commands.ExitCode = 0 })

	root := cli.NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestE2E_Android parses a group export with a multi-line message, a
// membership notice and system lines.
func TestE2E_Android(t *testing.T) {
	chdir(t)
	path := transcript(t, "android.txt")

	res, err := defaultParser(t).ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if res.Dialect.Name != "android" {
		t.Errorf("Dialect = %s, want android", res.Dialect.Name)
	}
	if res.Table.Len() != 7 {
		t.Errorf("Records = %d, want 7", res.Table.Len())
	}
	if res.LinesExcluded != 2 {
		t.Errorf("LinesExcluded = %d, want encryption notice and media", res.LinesExcluded)
	}
	if res.ServiceLines != 1 {
		t.Errorf("ServiceLines = %d, want the group creation notice", res.ServiceLines)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", res.Warnings)
	}

	carol := res.Table.ByAuthor("Carol")[0]
	if carol.Body != "Yes I booked the table for 7 and told the others" {
		t.Errorf("Multi-line body = %q", carol.Body)
	}
	if carol.Line != 6 {
		t.Errorf("Line = %d, want the header line 6", carol.Line)
	}

	want := time.Date(2020, 1, 6, 9, 10, 0, 0, time.UTC)
	if !carol.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", carol.Timestamp, want)
	}
}

// TestE2E_IOSA covers a byte order mark, CRLF line endings, a direction mark
// before a media notice, colons in the body and the unknown sender.
func TestE2E_IOSA(t *testing.T) {
	chdir(t)
	path := transcript(t, "ios_a.txt")

	res, err := defaultParser(t).ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if res.Dialect.Name != "ios_a" {
		t.Errorf("Dialect = %s, want ios_a", res.Dialect.Name)
	}

	records := res.Table.Records()
	if len(records) != 4 {
		t.Fatalf("Records = %d, want 4: %+v", len(records), records)
	}
	if records[0].Author != "Alice" || records[0].Body != "Hi there" {
		t.Errorf("First record = %+v", records[0])
	}
	if records[1].Body != "Hey! Meet at 10:30: ok?" {
		t.Errorf("Body split at the wrong colon: %q", records[1].Body)
	}
	if records[1].Timestamp.Second() != 30 {
		t.Errorf("Expected second resolution, got %v", records[1].Timestamp)
	}

	if len(res.Warnings) != 1 || res.Warnings[0].Kind != parser.WarningUnknownAuthor {
		t.Errorf("Warnings = %v, want one unknown_author", res.Warnings)
	}
	if res.LinesExcluded != 1 {
		t.Errorf("LinesExcluded = %d, want 1", res.LinesExcluded)
	}
}

func TestE2E_IOSB(t *testing.T) {
	chdir(t)
	path := transcript(t, "ios_b.txt")

	res, err := defaultParser(t).ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	if res.Dialect.Name != "ios_b" {
		t.Errorf("Dialect = %s, want ios_b", res.Dialect.Name)
	}
	if got := res.Table.At(1).Body; got != "Hi there" {
		t.Errorf("Continuation body = %q", got)
	}
	want := time.Date(2020, 1, 7, 10, 0, 0, 0, time.UTC)
	if got := res.Table.At(2).Timestamp; !got.Equal(want) {
		t.Errorf("Day-first timestamp = %v, want %v", got, want)
	}
}

func TestE2E_MixedDialects(t *testing.T) {
	chdir(t)
	path := transcript(t, "bad", "mixed.txt")

	_, err := defaultParser(t).ParseFile(context.Background(), path)
	if !errors.Is(err, parser.ErrUnrecognizedFormat) {
		t.Fatalf("Expected ErrUnrecognizedFormat, got %v", err)
	}

	var formatErr *parser.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Expected FormatError, got %T", err)
	}
	if len(formatErr.Votes) != 2 {
		t.Errorf("Votes = %d, want 2 dialects", len(formatErr.Votes))
	}
}

func TestE2E_OrphanContinuation(t *testing.T) {
	chdir(t)
	path := transcript(t, "bad", "orphan.txt")

	_, err := defaultParser(t).ParseFile(context.Background(), path)

	var orphan *parser.OrphanContinuationError
	if !errors.As(err, &orphan) {
		t.Fatalf("Expected OrphanContinuationError, got %v", err)
	}
	if orphan.Line != 1 {
		t.Errorf("Line = %d, want 1", orphan.Line)
	}
}

// TestE2E_MergeDirectory parses every transcript in a directory concurrently
// and merges them into one timeline.
func TestE2E_MergeDirectory(t *testing.T) {
	chdir(t)
	dir := filepath.Join("testdata", "transcripts")

	files, err := parser.ExpandPaths([]string{dir})
	if err != nil {
		t.Fatalf("ExpandPaths() error = %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("Files = %v, want the 3 top-level transcripts", files)
	}

	results, err := defaultParser(t).ParseFiles(context.Background(), files, 2)
	if err != nil {
		t.Fatalf("ParseFiles() error = %v", err)
	}

	tables := make([]*parser.Table, len(results))
	for i, r := range results {
		tables[i] = r.Table
	}
	merged := parser.Merge(tables...)

	if merged.Len() != 14 {
		t.Errorf("Merged records = %d, want 14", merged.Len())
	}
	records := merged.Records()
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.Before(records[i-1].Timestamp) {
			t.Fatalf("Record %d is out of order: %v before %v", i, records[i].Timestamp, records[i-1].Timestamp)
		}
	}
	if got := merged.Authors(); len(got) != 3 {
		t.Errorf("Authors = %v, want 3", got)
	}
}

func TestE2E_CustomDialect(t *testing.T) {
	chdir(t)

	for _, name := range []string{"pipe.yaml", "pipe.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := config.Load(context.Background(), configFile(t, name))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			p := parser.New(cfg.ParserOptions(nil)...)
			res, err := p.ParseFile(context.Background(), transcript(t, "custom", "pipe.txt"))
			if err != nil {
				t.Fatalf("ParseFile() error = %v", err)
			}

			if res.Dialect.Name != "pipe" {
				t.Errorf("Dialect = %s, want pipe", res.Dialect.Name)
			}
			if res.Table.Len() != 3 || res.LinesExcluded != 1 {
				t.Errorf("Records = %d, excluded = %d; want 3 and 1", res.Table.Len(), res.LinesExcluded)
			}
		})
	}
}

// TestE2E_Stats checks the statistics over the android transcript.
func TestE2E_Stats(t *testing.T) {
	chdir(t)
	res, err := defaultParser(t).ParseFile(context.Background(), transcript(t, "android.txt"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	table := res.Table

	rt := stats.Respond(table)
	if got := rt.All["Bob"]; len(got) != 2 || got[0] != 2 || got[1] != 740 {
		t.Errorf("Bob respond times = %v, want [2 740]", got)
	}
	if got := rt.All["Carol"]; len(got) != 2 || got[1] != 615 {
		t.Errorf("Carol respond times = %v, want the overnight gap of 615", got)
	}
	if got := rt.Intraday["Carol"]; len(got) != 1 || got[0] != 6 {
		t.Errorf("Carol intraday = %v, want [6]", got)
	}

	shares := stats.Participation(table)
	wantDays := map[string]float64{"Alice": 1, "Bob": 0.5, "Carol": 1}
	for _, s := range shares {
		if !approx(s.Days, wantDays[s.Author]) {
			t.Errorf("%s day share = %v, want %v", s.Author, s.Days, wantDays[s.Author])
		}
	}
	if !approx(shares[1].Messages, 3.0/7.0) {
		t.Errorf("Bob message share = %v", shares[1].Messages)
	}

	weekdays := stats.WeekdayCounts(table)
	if weekdays["Bob"][0] != 3 {
		t.Errorf("Bob Monday count = %d, want 3", weekdays["Bob"][0])
	}

	summary := stats.Summarize(table)
	if summary[1].Author != "Bob" || summary[1].AvgRespondMinutes != 371 {
		t.Errorf("Bob summary = %+v", summary[1])
	}
	if summary[2].AvgIntradayMinutes != 6 {
		t.Errorf("Carol intraday average = %v, want 6", summary[2].AvgIntradayMinutes)
	}
}

func TestE2E_CLI_ParseJSON(t *testing.T) {
	chdir(t)
	dir := filepath.Join("testdata", "transcripts")

	out, _, err := chatstat(t, "", "parse", "-o", "json", dir)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var report output.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if report.Summary.Sources != 3 || report.Summary.Records != 14 {
		t.Errorf("Unexpected summary: %+v", report.Summary)
	}
	if report.Summary.Warnings != 1 {
		t.Errorf("Warnings = %d, want the ios_a sentinel line", report.Summary.Warnings)
	}
	if report.Summary.First == nil || report.Summary.Last == nil {
		t.Fatal("Expected a time span")
	}
	if report.Records.Len() != 14 {
		t.Errorf("Records = %d, want 14", report.Records.Len())
	}
}

func TestE2E_CLI_ParseText(t *testing.T) {
	chdir(t)

	out, _, err := chatstat(t, "", "parse", transcript(t, "android.txt"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	checks := []string{
		"=== chatstat report ===",
		"[android] testdata/transcripts/android.txt",
		"No warnings",
		"Carol",
		"Summary: 1 sources, 7 records, 3 authors, 0 warnings",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("Output missing %q:\n%s", check, out)
		}
	}
}

func TestE2E_CLI_Stdin(t *testing.T) {
	chdir(t)
	data, err := os.ReadFile(transcript(t, "ios_b.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	out, _, err := chatstat(t, string(data), "parse", "-o", "csv", "-")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("CSV lines = %d, want header plus 3", len(lines))
	}
	if !strings.HasPrefix(lines[2], "2020-01-06T09:15:00Z,Bob,Hi there,") {
		t.Errorf("Unexpected row: %q", lines[2])
	}
}

func TestE2E_CLI_Strict(t *testing.T) {
	chdir(t)

	if _, _, err := chatstat(t, "", "parse", "-q", "--strict", transcript(t, "ios_a.txt")); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if commands.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", commands.ExitCode)
	}
}

func TestE2E_CLI_LogLevel(t *testing.T) {
	chdir(t)

	_, stderr, err := chatstat(t, "", "--log-level", "debug", "parse", "-q", transcript(t, "ios_a.txt"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.Contains(stderr, "dialect selected") {
		t.Errorf("Expected debug log on stderr:\n%s", stderr)
	}
	if !strings.Contains(stderr, "kind=unknown_author") {
		t.Errorf("Expected warning log on stderr:\n%s", stderr)
	}

	_, stderr, err = chatstat(t, "", "parse", "-q", transcript(t, "ios_a.txt"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if strings.Contains(stderr, "dialect selected") {
		t.Error("Debug log shown at the default level")
	}

	if _, _, err := chatstat(t, "", "--log-level", "loud", "version"); err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestE2E_CLI_Stats(t *testing.T) {
	chdir(t)

	for _, kind := range stats.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			out, _, err := chatstat(t, "", "stats", "-k", string(kind), "-o", "json", transcript(t, "android.txt"))
			if err != nil {
				t.Fatalf("stats failed: %v", err)
			}

			var doc output.StatsDocument
			if err := json.Unmarshal([]byte(out), &doc); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if doc.Kind != kind || doc.Value == nil {
				t.Errorf("Unexpected document: %+v", doc)
			}
		})
	}
}

func TestE2E_CLI_StatsText(t *testing.T) {
	chdir(t)

	out, _, err := chatstat(t, "", "stats", "-k", "weekdays", transcript(t, "android.txt"))
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, check := range []string{"=== weekdays ===", "Monday", "Tuesday", "Carol"} {
		if !strings.Contains(out, check) {
			t.Errorf("Output missing %q:\n%s", check, out)
		}
	}
}

func TestE2E_Detect(t *testing.T) {
	chdir(t)

	tests := map[string]string{
		"android.txt": "android",
		"ios_a.txt":   "ios_a",
		"ios_b.txt":   "ios_b",
	}
	for file, want := range tests {
		out, _, err := chatstat(t, "", "detect", transcript(t, file))
		if err != nil {
			t.Errorf("%s: detect failed: %v", file, err)
			continue
		}
		if !strings.Contains(out, "Detected dialect: "+want) {
			t.Errorf("%s: expected %s:\n%s", file, want, out)
		}
	}
}

func TestE2E_Detect_Mixed(t *testing.T) {
	chdir(t)

	out, _, err := chatstat(t, "", "detect", transcript(t, "bad", "mixed.txt"))
	if !errors.Is(err, parser.ErrUnrecognizedFormat) {
		t.Errorf("Expected ErrUnrecognizedFormat, got %v", err)
	}
	if !strings.Contains(out, "mixes dialects") {
		t.Errorf("Expected mixed warning:\n%s", out)
	}
}

func TestE2E_Detect_WriteConfig(t *testing.T) {
	chdir(t)
	cfgPath := filepath.Join(t.TempDir(), "chatstat.yaml")

	if _, _, err := chatstat(t, "", "detect", "-w", cfgPath, transcript(t, "ios_b.txt")); err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	out, _, err := chatstat(t, "", "parse", "-q", "-c", cfgPath, transcript(t, "ios_b.txt"))
	if err != nil {
		t.Fatalf("parse with generated config failed: %v", err)
	}
	if !strings.Contains(out, "3 records") {
		t.Errorf("Unexpected output: %q", out)
	}
}

func TestE2E_Validate(t *testing.T) {
	chdir(t)

	tests := []struct {
		file    string
		wantErr bool
	}{
		{"pipe.yaml", false},
		{"pipe.toml", false},
		{"webhook.yaml", false},
		{filepath.Join("bad", "invalid_yaml.yaml"), true},
		{filepath.Join("bad", "unknown_dialect.yaml"), true},
		{filepath.Join("bad", "bad_example.yaml"), true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			out, _, err := chatstat(t, "", "validate", configFile(t, tt.file))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected validation error:\n%s", out)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate failed: %v", err)
			}
			if !strings.Contains(out, "Configuration valid!") {
				t.Errorf("Unexpected output:\n%s", out)
			}
		})
	}
}

func TestE2E_Diagnose(t *testing.T) {
	chdir(t)

	out, _, err := chatstat(t, "", "diagnose", "-c", configFile(t, "pipe.yaml"),
		transcript(t, "custom", "pipe.txt"), transcript(t, "bad", "orphan.txt"))
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}

	checks := []string{
		"=== chatstat Diagnostics ===",
		"[PASS] Config Syntax",
		"[PASS] Trial Parse: testdata/transcripts/custom/pipe.txt",
		"[FAIL] Trial Parse: testdata/transcripts/bad/orphan.txt",
		"Fix the errors above before parsing.",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("Output missing %q:\n%s", check, out)
		}
	}
}

func TestE2E_Diagnose_InvalidYAML(t *testing.T) {
	chdir(t)

	out, _, err := chatstat(t, "", "diagnose", "-c", configFile(t, "bad", "invalid_yaml.yaml"))
	if err != nil {
		t.Fatalf("diagnose should report, not fail: %v", err)
	}
	if !strings.Contains(out, "[FAIL] Config Syntax") {
		t.Errorf("Expected syntax failure:\n%s", out)
	}
}

// TestE2E_Webhook_CLI checks the delivered payload and auth header.
func TestE2E_Webhook_CLI(t *testing.T) {
	chdir(t)

	var mu sync.Mutex
	var receivedPayload []byte
	var receivedAuth, receivedType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		receivedAuth = r.Header.Get("Authorization")
		receivedType = r.Header.Get("Content-Type")
		receivedPayload, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, _, err := chatstat(t, "", "parse", "-q",
		"--webhook-url", server.URL,
		"--webhook-token", "test-token-123",
		transcript(t, "ios_a.txt"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if receivedAuth != "Bearer test-token-123" {
		t.Errorf("Expected Bearer token, got %q", receivedAuth)
	}
	if receivedType != "application/json" {
		t.Errorf("Content-Type = %q", receivedType)
	}

	var payload output.Report
	if err := json.Unmarshal(receivedPayload, &payload); err != nil {
		t.Fatalf("Invalid JSON payload: %v", err)
	}
	if payload.Summary.Warnings != 1 || payload.Records.Len() != 4 {
		t.Errorf("Unexpected payload summary: %+v", payload.Summary)
	}
}

func TestE2E_Webhook_NoSendWithoutWarnings(t *testing.T) {
	chdir(t)

	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if _, _, err := chatstat(t, "", "parse", "-q", "--webhook-url", server.URL, transcript(t, "android.txt")); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if called {
		t.Error("Webhook fired for a clean run with trigger on_warnings")
	}
}

func TestE2E_Webhook_ConfigFile(t *testing.T) {
	chdir(t)
	t.Setenv("CHATSTAT_TEST_TOKEN", "from-env")

	cfg, err := config.Load(context.Background(), configFile(t, "webhook.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var receivedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	hooks := cfg.Webhooks
	hooks[0].URL = server.URL

	res, err := defaultParser(t).ParseFile(context.Background(), transcript(t, "android.txt"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	report := output.NewReport([]*parser.Result{res}, "webhook.yaml", time.Now())

	deliveries := webhook.NewClient().Notify(context.Background(), report, hooks)
	if len(deliveries) != 1 || !deliveries[0].Fired || !deliveries[0].Response.Success() {
		t.Fatalf("Unexpected deliveries: %+v", deliveries)
	}
	if deliveries[0].Name != "ops" {
		t.Errorf("Name = %q, want ops", deliveries[0].Name)
	}
	if receivedAuth != "Bearer from-env" {
		t.Errorf("Token not expanded from environment: %q", receivedAuth)
	}
}
