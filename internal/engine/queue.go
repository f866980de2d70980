package engine

import (
	"container/heap"
	"errors"
	"math"
)

// ErrNonFiniteTime rejects events whose time is infinite or NaN. An
// infinite deadline would park the run-to-exhaustion loop on an event that
// never meaningfully occurs.
var ErrNonFiniteTime = errors.New("engine: event time must be finite")

// EventQueue is the time-ordered event queue. Events at the same time
// dequeue in insertion order, which keeps runs deterministic without
// fractional tie-break times.
type EventQueue struct {
	clock   *Clock
	items   queueItems
	nextSeq uint64
}

// NewEventQueue creates an empty queue advancing the given clock on Pop.
func NewEventQueue(clock *Clock) *EventQueue {
	return &EventQueue{clock: clock}
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int { return len(q.items) }

// Push queues an event. The event's start time is stamped now, or at the
// event's own time when that is already past (pre-run seeding).
func (q *EventQueue) Push(ev *Event) error {
	if math.IsInf(ev.Time, 0) || math.IsNaN(ev.Time) {
		return ErrNonFiniteTime
	}
	ev.started = q.clock.Now()
	if ev.Time < ev.started {
		ev.started = ev.Time
	}
	q.nextSeq++
	heap.Push(&q.items, &queueItem{ev: ev, seq: q.nextSeq})
	return nil
}

// Pop removes and returns the next event and advances the clock to its
// time. ok is false on an empty queue.
func (q *EventQueue) Pop() (*Event, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	item := heap.Pop(&q.items).(*queueItem)
	q.clock.advance(item.ev.Time)
	return item.ev, true
}

// Remove drops the first queued event identical to ev (see Event.Same).
// Used to retract a vessel's pending event when a schedule commit replaces
// it. Reports whether anything was removed.
func (q *EventQueue) Remove(ev *Event) bool {
	for _, item := range q.items {
		if item.ev.Same(ev) {
			heap.Remove(&q.items, item.index)
			return true
		}
	}
	return false
}

type queueItem struct {
	ev    *Event
	seq   uint64
	index int
}

type queueItems []*queueItem

func (h queueItems) Len() int { return len(h) }

func (h queueItems) Less(i, j int) bool {
	if h[i].ev.Time != h[j].ev.Time {
		return h[i].ev.Time < h[j].ev.Time
	}
	return h[i].seq < h[j].seq
}

func (h queueItems) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *queueItems) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *queueItems) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
