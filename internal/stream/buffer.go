package stream

import (
	"sync"
	"time"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// DefaultBufferCapacity bounds the rolling event window.
const DefaultBufferCapacity = 100

// LiveEvent is one market event as held by the buffer. Created from an
// EventNew, mutated only by score updates, evicted only by capacity
// overflow.
type LiveEvent struct {
	ID          string     `json:"id"`
	Ticker      string     `json:"ticker"`
	Headline    string     `json:"headline"`
	EventType   string     `json:"eventType"`
	PublishedAt time.Time  `json:"publishedAt"`
	SourceURL   string     `json:"sourceUrl,omitempty"`
	ImpactScore float64    `json:"impactScore"`
	Direction   string     `json:"direction,omitempty"`
	Confidence  float64    `json:"confidence"`
	Score       *float64   `json:"score,omitempty"`
	ComputedAt  *time.Time `json:"computedAt,omitempty"`
	ReceivedAt  time.Time  `json:"receivedAt"`
}

// ScorePatch carries the mutable fields of a score update. Direction is
// applied only when non-empty, ComputedAt only when non-nil.
type ScorePatch struct {
	Score      float64
	Confidence float64
	Direction  string
	ComputedAt *time.Time
}

// EventBuffer holds the most recent events, newest first, deduplicated by
// id and truncated to a fixed capacity. Mutation happens on the single
// dispatch path; the lock exists so snapshots can be taken from any
// goroutine (mirror, ops endpoints).
type EventBuffer struct {
	mu       sync.RWMutex
	events   []LiveEvent
	present  map[string]struct{}
	capacity int
	paused   bool
}

// NewEventBuffer creates a buffer bounded to capacity. Non-positive
// capacities fall back to DefaultBufferCapacity.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &EventBuffer{
		events:   make([]LiveEvent, 0, capacity),
		present:  make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// Insert prepends ev unless the buffer is paused or an event with the same
// id is already held. Overflow evicts the oldest entry. Reports whether the
// event was stored.
func (b *EventBuffer) Insert(ev LiveEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.paused {
		return false
	}
	if _, ok := b.present[ev.ID]; ok {
		return false
	}

	b.events = append([]LiveEvent{ev}, b.events...)
	b.present[ev.ID] = struct{}{}

	if len(b.events) > b.capacity {
		evicted := b.events[len(b.events)-1]
		b.events = b.events[:b.capacity]
		delete(b.present, evicted.ID)
	}

	metrics.BufferSize.Set(float64(len(b.events)))
	return true
}

// ApplyScore merges patch into the event with the given id. A missing id is
// a silent no-op: the event may have been evicted, or never seen at all,
// and the two cases are deliberately indistinguishable.
func (b *EventBuffer) ApplyScore(eventID string, patch ScorePatch) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.present[eventID]; !ok {
		return false
	}
	for i := range b.events {
		if b.events[i].ID != eventID {
			continue
		}
		score := patch.Score
		b.events[i].ImpactScore = patch.Score
		b.events[i].Score = &score
		b.events[i].Confidence = patch.Confidence
		if patch.Direction != "" {
			b.events[i].Direction = patch.Direction
		}
		if patch.ComputedAt != nil {
			at := *patch.ComputedAt
			b.events[i].ComputedAt = &at
		}
		return true
	}
	return false
}

// TogglePause flips the insertion suppression flag and returns the new
// value. Buffered events and the connection are unaffected.
func (b *EventBuffer) TogglePause() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = !b.paused
	return b.paused
}

// SetPaused sets the suppression flag directly.
func (b *EventBuffer) SetPaused(paused bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = paused
}

// Paused reports whether insertion is currently suppressed.
func (b *EventBuffer) Paused() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.paused
}

// Clear empties the buffer. Used on credential change or logout.
func (b *EventBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = b.events[:0]
	b.present = make(map[string]struct{}, b.capacity)
	metrics.BufferSize.Set(0)
}

// Len returns the number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// Snapshot returns a copy of the buffered events, newest first. Pointer
// fields are copied so callers cannot mutate buffer state.
func (b *EventBuffer) Snapshot() []LiveEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]LiveEvent, len(b.events))
	copy(out, b.events)
	for i := range out {
		if out[i].Score != nil {
			score := *out[i].Score
			out[i].Score = &score
		}
		if out[i].ComputedAt != nil {
			at := *out[i].ComputedAt
			out[i].ComputedAt = &at
		}
	}
	return out
}
