package media

// Queue is the ordered, fixed-at-load list of files for one directory
// plus a cursor into it. Cursor == Len() means the queue is exhausted.
type Queue struct {
	items  []Item
	cursor int
}

// NewQueue loads paths verbatim: no sorting, dedup or kind filtering
func NewQueue(paths []string) *Queue {
	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i] = NewItem(p)
	}
	return &Queue{items: items}
}

// Current returns the item at the cursor, or false once exhausted
func (q *Queue) Current() (Item, bool) {
	if q.cursor >= len(q.items) {
		return Item{}, false
	}
	return q.items[q.cursor], true
}

// Advance moves the cursor forward by one. It reports false, leaving the
// cursor at Len(), when the queue is already exhausted.
func (q *Queue) Advance() bool {
	if q.cursor >= len(q.items) {
		return false
	}
	q.cursor++
	return true
}

// Cursor returns the index of the current item
func (q *Queue) Cursor() int {
	return q.cursor
}

// Len returns the number of items loaded
func (q *Queue) Len() int {
	return len(q.items)
}

// Remaining returns how many items are left including the current one
func (q *Queue) Remaining() int {
	return len(q.items) - q.cursor
}

// Exhausted reports whether every item has been decided
func (q *Queue) Exhausted() bool {
	return q.cursor >= len(q.items)
}

// Items returns a copy of the loaded sequence
func (q *Queue) Items() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}
