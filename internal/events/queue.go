package events

import "sync"

// eventQueue is a thread-safe, unbounded FIFO queue.
//
// The publisher enqueues from any goroutine while a single subscriber
// goroutine dequeues. The signal channel enables context-aware waiting.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Release the payload for GC.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drained reports whether the queue is closed and empty.
func (q *eventQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Close signals that no more events will be enqueued and wakes the waiter.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
