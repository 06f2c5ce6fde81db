// Package events carries path change notifications to in-process subscribers.
package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind identifies what changed on a path.
type Kind int

// Notification kinds.
const (
	NodeAdded Kind = iota
	NodeRemoved
	NodePositionChanged
	NodeTimeChanged
	NodeTiltChanged
	NodeEaseChanged
	RotationPointChanged
	PathReset
	// CurveChanged covers raw auxiliary key edits and tangent or wrap mode changes.
	CurveChanged
)

var kindNames = [...]string{
	NodeAdded:            "node_added",
	NodeRemoved:          "node_removed",
	NodePositionChanged:  "node_position_changed",
	NodeTimeChanged:      "node_time_changed",
	NodeTiltChanged:      "node_tilt_changed",
	NodeEaseChanged:      "node_ease_changed",
	RotationPointChanged: "rotation_point_changed",
	PathReset:            "path_reset",
	CurveChanged:         "curve_changed",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is one notification. Index is -1 for path-wide events.
type Event struct {
	Kind      Kind
	Index     int
	Timestamp float64
	// Previous holds the old timestamp of a NodeTimeChanged event.
	Previous float64
}

// Handler receives events synchronously on the publishing goroutine.
type Handler func(Event)

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	ID() uuid.UUID
	Unsubscribe()
}

// Bus dispatches events to its subscribers. Order across subscribers is not defined.
type Bus struct {
	mu       sync.RWMutex
	handlers map[uuid.UUID]Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[uuid.UUID]Handler)}
}

// Subscribe registers h until the returned subscription is cancelled.
func (b *Bus) Subscribe(h Handler) Subscription {
	id := uuid.New()
	b.mu.Lock()
	b.handlers[id] = h
	b.mu.Unlock()
	return &subscription{id: id, bus: b}
}

// Publish delivers e to every current subscriber. Handlers run outside the
// bus lock so they may subscribe or unsubscribe.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(e)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus) remove(id uuid.UUID) {
	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
}

type subscription struct {
	id   uuid.UUID
	bus  *Bus
	once sync.Once
}

func (s *subscription) ID() uuid.UUID { return s.id }

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.id) })
}
