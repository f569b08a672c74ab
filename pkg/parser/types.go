// Package parser converts chat transcripts into record tables.
package parser

import (
	"bytes"
	"encoding/json"
	"slices"
	"sort"
	"time"
)

// Record is one reassembled chat message.
type Record struct {
	// Timestamp is when the message was sent, at the dialect's resolution.
	Timestamp time.Time `json:"timestamp"`

	// Author is the display name exactly as exported.
	Author string `json:"author"`

	// Body is the message text with header and continuation lines merged.
	Body string `json:"body"`

	// Line is the 1-based line number of the message header.
	Line int `json:"line"`
}

// Table is an ordered, read-only sequence of records. Order is the order the
// messages appear in the transcript; it is never re-sorted.
type Table struct {
	records []Record
}

// NewTable creates a Table holding a copy of records.
func NewTable(records []Record) *Table {
	return &Table{records: slices.Clone(records)}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the i-th record.
func (t *Table) At(i int) Record {
	return t.records[i]
}

// Records returns a copy of all records in order.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return slices.Clone(t.records)
}

// Authors returns the distinct authors in order of first appearance.
func (t *Table) Authors() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]bool)
	var authors []string
	for _, r := range t.records {
		if !seen[r.Author] {
			seen[r.Author] = true
			authors = append(authors, r.Author)
		}
	}
	return authors
}

// SortedAuthors returns the distinct authors in lexical order.
func (t *Table) SortedAuthors() []string {
	authors := t.Authors()
	sort.Strings(authors)
	return authors
}

// ByAuthor returns the records written by author, in table order.
func (t *Table) ByAuthor(author string) []Record {
	if t == nil {
		return nil
	}
	var out []Record
	for _, r := range t.records {
		if r.Author == author {
			out = append(out, r)
		}
	}
	return out
}

// GroupByAuthor maps each author to their records, in table order. The map
// is rebuilt on every call; callers may modify it freely.
func (t *Table) GroupByAuthor() map[string][]Record {
	groups := make(map[string][]Record)
	if t == nil {
		return groups
	}
	for _, r := range t.records {
		groups[r.Author] = append(groups[r.Author], r)
	}
	return groups
}

// Span returns the earliest and latest timestamps. ok is false for an empty
// table.
func (t *Table) Span() (first, last time.Time, ok bool) {
	if t.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = t.records[0].Timestamp, t.records[0].Timestamp
	for _, r := range t.records[1:] {
		if r.Timestamp.Before(first) {
			first = r.Timestamp
		}
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return first, last, true
}

// MarshalJSON encodes the table as an array of records. Bodies are not
// HTML-escaped.
func (t *Table) MarshalJSON() ([]byte, error) {
	if t == nil || t.records == nil {
		return []byte("[]"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t.records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON decodes an array of records.
func (t *Table) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.records)
}
