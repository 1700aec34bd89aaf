package events

import (
	"slices"
	"sync"
)

// RingBuffer is a circular buffer for storing recent events.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	size   int
	pos    int
	count  int
}

// NewRingBuffer creates a new ring buffer.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		events: make([]Event, size),
		size:   size,
	}
}

func (r *RingBuffer) Add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.pos] = event
	r.pos = (r.pos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// Get returns the n most recent events, oldest first.
func (r *RingBuffer) Get(n int) []Event {
	return r.Filter(n, nil)
}

// Filter returns the n most recent events accepted by keep, oldest first.
// A nil keep accepts every event.
func (r *RingBuffer) Filter(n int, keep func(Event) bool) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	// Walk backwards from the newest event, then reverse.
	var result []Event
	for i := 0; i < r.count && len(result) < n; i++ {
		e := r.events[(r.pos-1-i+r.size)%r.size]
		if keep == nil || keep(e) {
			result = append(result, e)
		}
	}
	slices.Reverse(result)
	return result
}

func (r *RingBuffer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos = 0
	r.count = 0
}
