package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ccollicutt/chatstat/pkg/stats"
)

// StatsDocument is the JSON shape written for a single statistic.
type StatsDocument struct {
	Kind  stats.Kind `json:"kind"`
	Value any        `json:"value"`
}

// WriteStats renders one computed statistic as text or json.
func WriteStats(w io.Writer, format string, kind stats.Kind, v any) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(StatsDocument{Kind: kind, Value: v})
	case "text", "":
		return writeStatsText(w, kind, v)
	default:
		return fmt.Errorf("unknown output format %q for stats (must be text or json)", format)
	}
}

func writeStatsText(w io.Writer, kind stats.Kind, v any) error {
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render("=== "+string(kind)+" ==="))

	switch val := v.(type) {
	case []stats.AuthorSummary:
		fmt.Fprintln(w, authorTable(&Report{Authors: val}))

	case []stats.DayCount:
		writeDays(w, "", val)

	case map[string][]stats.DayCount:
		for _, a := range sortedKeys(val) {
			fmt.Fprintln(w, st.heading.Render(a))
			writeDays(w, "  ", val[a])
		}

	case map[string]stats.Sizes:
		t := table.New().Border(lipgloss.NormalBorder()).
			Headers("Author", "Messages", "Max words", "Max chars")
		for _, a := range sortedKeys(val) {
			s := val[a]
			t.Row(a, strconv.Itoa(len(s.Words)), strconv.Itoa(maxOf(s.Words)), strconv.Itoa(maxOf(s.Chars)))
		}
		fmt.Fprintln(w, t.Render())

	case stats.RespondTimes:
		t := table.New().Border(lipgloss.NormalBorder()).
			Headers("Author", "Replies", "Median min", "Intraday replies", "Intraday median min")
		for _, a := range sortedKeys(val.All) {
			t.Row(a,
				strconv.Itoa(len(val.All[a])), formatFloat(median(val.All[a])),
				strconv.Itoa(len(val.Intraday[a])), formatFloat(median(val.Intraday[a])))
		}
		fmt.Fprintln(w, t.Render())

	case map[string][7]int:
		authors := sortedKeys(val)
		t := table.New().Border(lipgloss.NormalBorder()).
			Headers(append([]string{"Weekday"}, authors...)...)
		for i, day := range stats.Weekdays {
			row := []string{day}
			for _, a := range authors {
				row = append(row, strconv.Itoa(val[a][i]))
			}
			t.Row(row...)
		}
		fmt.Fprintln(w, t.Render())

	case map[string][]stats.Bucket:
		for _, a := range sortedKeys(val) {
			fmt.Fprintln(w, st.heading.Render(a))
			for _, b := range val[a] {
				if b.Count > 0 {
					fmt.Fprintf(w, "  %s  %d\n", b.Start, b.Count)
				}
			}
		}

	case []stats.Share:
		t := table.New().Border(lipgloss.NormalBorder()).
			Headers("Author", "Message share", "Day share")
		for _, s := range val {
			t.Row(s.Author, formatFloat(round3(s.Messages)), formatFloat(round3(s.Days)))
		}
		fmt.Fprintln(w, t.Render())

	default:
		return fmt.Errorf("no text rendering for %s (%T)", kind, v)
	}

	return nil
}

func writeDays(w io.Writer, indent string, days []stats.DayCount) {
	for _, d := range days {
		fmt.Fprintf(w, "%s%s  %d\n", indent, d.Day, d.Count)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func maxOf(xs []int) int {
	m := 0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return round3(s[mid])
	}
	return round3((s[mid-1] + s[mid]) / 2)
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
