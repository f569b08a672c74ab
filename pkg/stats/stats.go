// Package stats derives per-author statistics from a parsed record table.
//
// Every function is a pure read of the table. Authors are reported in order
// of first appearance.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ccollicutt/chatstat/pkg/parser"
)

// DayLayout formats calendar days in results.
const DayLayout = "2006-01-02"

// DayCount is the number of messages on one calendar day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Sizes holds message lengths for one author, in table order.
type Sizes struct {
	Words []int `json:"words"`
	Chars []int `json:"chars"`
}

// RespondTimes holds minutes between a message and the previous message when
// the author changed. Intraday only counts pairs on the same calendar day.
type RespondTimes struct {
	All      map[string][]float64 `json:"all"`
	Intraday map[string][]float64 `json:"intraday"`
}

// Bucket counts messages whose time of day falls in [Start, Start+step).
type Bucket struct {
	Start string `json:"start"`
	Count int    `json:"count"`
}

// Share is an author's fraction of messages and of active chat days.
type Share struct {
	Author   string  `json:"author"`
	Messages float64 `json:"messages"`
	Days     float64 `json:"days"`
}

// AuthorSummary is one column of the summary table.
type AuthorSummary struct {
	Author             string  `json:"author"`
	Messages           int     `json:"messages"`
	Words              int     `json:"words"`
	Characters         int     `json:"characters"`
	AvgMessagesPerDay  float64 `json:"avg_messages_per_day"`
	MaxMessagesPerDay  int     `json:"max_messages_per_day"`
	AvgWords           float64 `json:"avg_words"`
	AvgCharacters      float64 `json:"avg_characters"`
	AvgRespondMinutes  float64 `json:"avg_respond_minutes"`
	AvgIntradayMinutes float64 `json:"avg_intraday_respond_minutes"`
}

// Weekdays lists weekday names in the order Weekdays counts use.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// MessagesPerDay counts each author's messages per calendar day, days
// ascending. Days without messages are omitted.
func MessagesPerDay(t *parser.Table) map[string][]DayCount {
	out := make(map[string][]DayCount)
	for author, recs := range t.GroupByAuthor() {
		out[author] = countDays(recs)
	}
	return out
}

// Chronology counts all messages per calendar day, days ascending.
func Chronology(t *parser.Table) []DayCount {
	return countDays(t.Records())
}

// MessageSizes returns word and character lengths per author.
func MessageSizes(t *parser.Table) map[string]Sizes {
	out := make(map[string]Sizes)
	for author, recs := range t.GroupByAuthor() {
		s := Sizes{Words: make([]int, len(recs)), Chars: make([]int, len(recs))}
		for i, r := range recs {
			s.Words[i] = len(strings.Fields(r.Body))
			s.Chars[i] = utf8.RuneCountInString(r.Body)
		}
		out[author] = s
	}
	return out
}

// Respond measures how long each author took to answer someone else.
func Respond(t *parser.Table) RespondTimes {
	rt := RespondTimes{
		All:      make(map[string][]float64),
		Intraday: make(map[string][]float64),
	}
	for _, a := range t.Authors() {
		rt.All[a] = []float64{}
		rt.Intraday[a] = []float64{}
	}

	for i := 1; i < t.Len(); i++ {
		now, last := t.At(i), t.At(i-1)
		if now.Author == last.Author {
			continue
		}
		minutes := now.Timestamp.Sub(last.Timestamp).Minutes()
		rt.All[now.Author] = append(rt.All[now.Author], minutes)
		if sameDay(now.Timestamp, last.Timestamp) {
			rt.Intraday[now.Author] = append(rt.Intraday[now.Author], minutes)
		}
	}
	return rt
}

// WeekdayCounts counts each author's messages per weekday, indexed like
// Weekdays (Monday first).
func WeekdayCounts(t *parser.Table) map[string][7]int {
	out := make(map[string][7]int)
	for _, r := range t.Records() {
		c := out[r.Author]
		c[(int(r.Timestamp.Weekday())+6)%7]++
		out[r.Author] = c
	}
	return out
}

// ActiveTime buckets each author's messages by time of day. step must divide
// evenly into a day; non-positive or oversized steps fall back to one hour.
func ActiveTime(t *parser.Table, step time.Duration) map[string][]Bucket {
	day := 24 * time.Hour
	if step <= 0 || step > day || day%step != 0 {
		step = time.Hour
	}
	n := int(day / step)

	out := make(map[string][]Bucket)
	for _, r := range t.Records() {
		buckets, ok := out[r.Author]
		if !ok {
			buckets = make([]Bucket, n)
			for i := range buckets {
				buckets[i].Start = time.Time{}.Add(time.Duration(i) * step).Format("15:04")
			}
			out[r.Author] = buckets
		}
		ts := r.Timestamp
		sinceMidnight := time.Duration(ts.Hour())*time.Hour + time.Duration(ts.Minute())*time.Minute + time.Duration(ts.Second())*time.Second
		buckets[int(sinceMidnight/step)].Count++
	}
	return out
}

// Participation returns each author's share of messages and of the days on
// which anyone wrote.
func Participation(t *parser.Table) []Share {
	total := t.Len()
	if total == 0 {
		return []Share{}
	}
	allDays := len(countDays(t.Records()))
	groups := t.GroupByAuthor()

	shares := make([]Share, 0, len(groups))
	for _, a := range t.Authors() {
		recs := groups[a]
		shares = append(shares, Share{
			Author:   a,
			Messages: float64(len(recs)) / float64(total),
			Days:     float64(len(countDays(recs))) / float64(allDays),
		})
	}
	return shares
}

// Summarize builds the per-author summary table.
func Summarize(t *parser.Table) []AuthorSummary {
	sizes := MessageSizes(t)
	perDay := MessagesPerDay(t)
	respond := Respond(t)
	groups := t.GroupByAuthor()

	out := make([]AuthorSummary, 0, len(groups))
	for _, a := range t.Authors() {
		s := AuthorSummary{
			Author:     a,
			Messages:   len(groups[a]),
			Words:      sum(sizes[a].Words),
			Characters: sum(sizes[a].Chars),
		}

		days := make([]int, len(perDay[a]))
		for i, d := range perDay[a] {
			days[i] = d.Count
		}
		s.AvgMessagesPerDay = round3(meanInts(days))
		s.MaxMessagesPerDay = maxInt(days)
		s.AvgWords = round3(meanInts(sizes[a].Words))
		s.AvgCharacters = round3(meanInts(sizes[a].Chars))
		s.AvgRespondMinutes = round3(mean(respond.All[a]))
		s.AvgIntradayMinutes = round3(mean(respond.Intraday[a]))

		out = append(out, s)
	}
	return out
}

func countDays(recs []parser.Record) []DayCount {
	counts := make(map[string]int)
	for _, r := range recs {
		counts[r.Timestamp.Format(DayLayout)]++
	}
	days := make([]DayCount, 0, len(counts))
	for d, c := range counts {
		days = append(days, DayCount{Day: d, Count: c})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func maxInt(xs []int) int {
	m := 0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func meanInts(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	return float64(sum(xs)) / float64(len(xs))
}

// mean returns 0 for an empty slice so results stay JSON-encodable.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
