package events

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
)

// Subscriber is a function that receives events.
type Subscriber func(Event)

type subscription struct {
	eventTypes []EventType
	sessionID  string
	handler    Subscriber
	ch         chan Event
}

func (s *subscription) matches(e Event) bool {
	if s.sessionID != "" && s.sessionID != e.SessionID {
		return false
	}
	return len(s.eventTypes) == 0 || slices.Contains(s.eventTypes, e.Type)
}

// Bus is an in-memory event bus. Events are dispatched in publish order by a
// single goroutine and kept in a ring buffer for History.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	eventChan   chan Event
	ringBuffer  *RingBuffer
	closed      bool
	done        chan struct{}
}

// NewBus creates a new event bus.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	b := &Bus{
		subscribers: make(map[int]*subscription),
		eventChan:   make(chan Event, bufferSize),
		ringBuffer:  NewRingBuffer(bufferSize),
		done:        make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	for {
		select {
		case event := <-b.eventChan:
			b.ringBuffer.Add(event)
			b.notifySubscribers(event)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) notifySubscribers(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !sub.matches(event) {
			continue
		}
		if sub.ch != nil {
			select {
			case sub.ch <- event:
			default:
			}
			continue
		}
		go sub.handler(event)
	}
}

// Publish sends an event to the bus. The event is dropped when the bus is
// closed or its buffer is full.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	select {
	case b.eventChan <- event:
	default:
	}
}

// PublishWait sends an event, waiting for buffer space until ctx is done.
func (b *Bus) PublishWait(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) add(sub *subscription) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Subscribe registers a handler for specific event types, or every type
// when none are given. Handlers run on their own goroutine.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	return b.add(&subscription{eventTypes: eventTypes, handler: handler})
}

// SubscribeChan returns a channel that receives events. Events are dropped
// while the channel is full. The returned function unsubscribes and closes
// the channel.
func (b *Bus) SubscribeChan(bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	return b.subscribeChan(&subscription{eventTypes: eventTypes}, bufSize)
}

// SubscribeSession is SubscribeChan restricted to one session's events.
func (b *Bus) SubscribeSession(sessionID string, bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	return b.subscribeChan(&subscription{eventTypes: eventTypes, sessionID: sessionID}, bufSize)
}

func (b *Bus) subscribeChan(sub *subscription, bufSize int) (<-chan Event, func()) {
	sub.ch = make(chan Event, bufSize)
	unsubscribe := b.add(sub)

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			unsubscribe()
			close(sub.ch)
		})
	}
}

// History returns up to limit recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.ringBuffer.Get(limit)
}

// SessionHistory returns up to limit recent events of one session.
func (b *Bus) SessionHistory(sessionID string, limit int) []Event {
	return b.ringBuffer.Filter(limit, func(e Event) bool { return e.SessionID == sessionID })
}

// Close shuts down the event bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.done)
}
