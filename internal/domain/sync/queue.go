package sync

import (
	"sort"
	"sync"
	"time"

	"iotsync/internal/domain/record"
	"iotsync/internal/utils/clock"
)

// Entry is a record waiting to be pushed.
type Entry struct {
	Record     record.Record
	Attempts   int
	EnqueuedAt time.Time
}

// Queue holds pending records per table. Order is FIFO within a table and
// unspecified across tables. Entries leave the queue when taken, before the
// push outcome is known.
type Queue struct {
	mu     sync.Mutex
	clock  clock.Clock
	tables map[string][]Entry
}

func NewQueue(c clock.Clock) *Queue {
	if c == nil {
		c = clock.Real{}
	}
	return &Queue{
		clock:  c,
		tables: make(map[string][]Entry),
	}
}

// Enqueue appends rec to the table's sequence. Repeated records are kept.
func (q *Queue) Enqueue(table string, rec record.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tables[table] = append(q.tables[table], Entry{Record: rec, EnqueuedAt: q.clock.Now()})
}

// Take removes up to n entries from the front of the table's sequence.
func (q *Queue) Take(table string, n int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.tables[table]
	if n <= 0 || len(pending) == 0 {
		return nil
	}
	if n > len(pending) {
		n = len(pending)
	}

	batch := make([]Entry, n)
	copy(batch, pending[:n])
	rest := pending[n:]
	if len(rest) == 0 {
		delete(q.tables, table)
	} else {
		q.tables[table] = append([]Entry(nil), rest...)
	}
	return batch
}

// Requeue appends a failed entry to the end of its table's sequence.
func (q *Queue) Requeue(table string, e Entry) {
	e.Attempts++

	q.mu.Lock()
	defer q.mu.Unlock()
	q.tables[table] = append(q.tables[table], e)
}

// Tables lists tables with pending entries in sorted order.
func (q *Queue) Tables() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, 0, len(q.tables))
	for t := range q.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Pending returns a copy of the table's sequence.
func (q *Queue) Pending(table string) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Entry(nil), q.tables[table]...)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, pending := range q.tables {
		n += len(pending)
	}
	return n
}

// Snapshot returns the depth of every non-empty table.
func (q *Queue) Snapshot() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]int, len(q.tables))
	for t, pending := range q.tables {
		out[t] = len(pending)
	}
	return out
}
