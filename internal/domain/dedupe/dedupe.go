// Package dedupe tracks node crossings so that each one fires at most once per lap.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Crossing identifies a node passed during one lap of playback.
type Crossing struct {
	Lap  uint64
	Node int
}

func (c Crossing) String() string {
	return fmt.Sprintf("lap %d node %d", c.Lap, c.Node)
}

// Tracker records fired crossings.
type Tracker interface {
	// SeenAndRecord reports whether c already fired and records it if not.
	SeenAndRecord(ctx context.Context, c Crossing) bool

	// Forget removes c so it may fire again, e.g. when its handler was
	// never run.
	Forget(ctx context.Context, c Crossing)

	// Reset forgets everything. Used on seek, stop and path changes.
	Reset()

	Size() int64
}

// entry is one element of the recency list, newest at head.
type entry struct {
	c          Crossing
	prev, next *entry
}

func (e *entry) reset() {
	*e = entry{}
}

// inMemoryTracker keeps crossings in a map plus a recency list. When bounded
// the oldest crossing is evicted first; earlier laps age out naturally.
type inMemoryTracker struct {
	mu      sync.Mutex
	seen    map[Crossing]*entry
	head    *entry
	tail    *entry
	maxSize int
	size    atomic.Int64
	pool    sync.Pool
}

// NewTracker creates an in-memory crossing tracker.
func NewTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 4096,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.seen = make(map[Crossing]*entry)
	t.pool = sync.Pool{New: func() interface{} { return &entry{} }}
	return t
}

func (t *inMemoryTracker) SeenAndRecord(_ context.Context, c Crossing) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[c]; ok {
		return true
	}
	if t.maxSize > 0 && len(t.seen) >= t.maxSize {
		t.evictOldest()
	}

	e := t.pool.Get().(*entry)
	e.c = c
	e.next = t.head
	if t.head != nil {
		t.head.prev = e
	}
	t.head = e
	if t.tail == nil {
		t.tail = e
	}
	t.seen[c] = e
	t.size.Add(1)
	return false
}

func (t *inMemoryTracker) Forget(_ context.Context, c Crossing) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.seen[c]; ok {
		t.unlink(e)
	}
}

func (t *inMemoryTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for e := t.head; e != nil; {
		next := e.next
		e.reset()
		t.pool.Put(e)
		e = next
	}
	t.head, t.tail = nil, nil
	t.seen = make(map[Crossing]*entry)
	t.size.Store(0)
}

// evictOldest drops the tail. Must be called with t.mu held.
func (t *inMemoryTracker) evictOldest() {
	if t.tail != nil {
		t.unlink(t.tail)
	}
}

// unlink removes e from the list and the map. Must be called with t.mu held.
func (t *inMemoryTracker) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		t.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		t.tail = e.prev
	}
	delete(t.seen, e.c)
	e.reset()
	t.pool.Put(e)
	t.size.Add(-1)
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
