package parser

import "container/heap"

// Merge combines tables into one timeline ordered by timestamp (oldest
// first). Each input table keeps its own relative order, and records with
// equal timestamps keep the order of the tables they came from. This suits a
// conversation exported in several pieces or from several devices.
func Merge(tables ...*Table) *Table {
	h := &recordHeap{}
	total := 0
	for i, t := range tables {
		total += t.Len()
		if t.Len() > 0 {
			h.items = append(h.items, cursor{table: t, tableIdx: i})
		}
	}
	heap.Init(h)

	out := make([]Record, 0, total)
	for h.Len() > 0 {
		c := &h.items[0]
		out = append(out, c.table.At(c.pos))
		c.pos++
		if c.pos >= c.table.Len() {
			heap.Pop(h)
		} else {
			heap.Fix(h, 0)
		}
	}
	return &Table{records: out}
}

// cursor tracks the next unread record of one input table.
type cursor struct {
	table    *Table
	tableIdx int
	pos      int
}

// recordHeap implements heap.Interface over table cursors.
type recordHeap struct {
	items []cursor
}

func (h recordHeap) Len() int { return len(h.items) }

func (h recordHeap) Less(i, j int) bool {
	a := h.items[i].table.At(h.items[i].pos).Timestamp
	b := h.items[j].table.At(h.items[j].pos).Timestamp
	if a.Equal(b) {
		return h.items[i].tableIdx < h.items[j].tableIdx
	}
	return a.Before(b)
}

func (h recordHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *recordHeap) Push(x interface{}) {
	h.items = append(h.items, x.(cursor))
}

func (h *recordHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[0 : n-1]
	return item
}
