package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("events: bus closed")

// Handler consumes one event. A returned error or a panic is logged and
// does not affect other subscribers or later events.
type Handler func(ctx context.Context, e Event) error

// HandlerFunc adapts a handler that cannot fail.
func HandlerFunc(fn func(Event)) Handler {
	return func(_ context.Context, e Event) error {
		fn(e)
		return nil
	}
}

// Bus fans published events out to subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   []*subscription
	closed bool

	clock  *Clock
	now    func() time.Time
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscription struct {
	name    string
	handler Handler
	kinds   map[Kind]bool // nil means every kind
	queue   *eventQueue
	done    chan struct{}
}

// Option configures a Bus.
type Option func(*Bus)

// WithClock sets the sequence clock.
func WithClock(c *Clock) Option {
	return func(b *Bus) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithNow sets the wall clock used to stamp Event.At.
func WithNow(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates a bus with no subscribers.
func NewBus(opts ...Option) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		clock:  NewClock(),
		now:    time.Now,
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for the given kinds (every kind when none are
// given). The returned function unsubscribes; events already queued for
// the subscriber are still delivered.
func (b *Bus) Subscribe(name string, handler Handler, kinds ...Kind) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("events: subscriber %q has nil handler", name)
	}

	s := &subscription{
		name:    name,
		handler: handler,
		queue:   newEventQueue(),
		done:    make(chan struct{}),
	}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	go b.run(s)

	return func() { b.unsubscribe(s) }, nil
}

func (b *Bus) unsubscribe(s *subscription) {
	b.mu.Lock()
	b.subs = slices.DeleteFunc(b.subs, func(x *subscription) bool { return x == s })
	b.mu.Unlock()
	s.queue.Close()
}

// Publish stamps an event and enqueues it for every matching subscriber.
// It never blocks on subscribers. After Close the event is stamped but not
// delivered.
func (b *Bus) Publish(kind Kind, decisionID string, payload any) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Stamping under the lock keeps every subscriber's queue in seq order.
	e := Event{
		Kind:       kind,
		Seq:        b.clock.Next(),
		At:         b.now().UTC(),
		DecisionID: decisionID,
		Payload:    payload,
	}
	if b.closed {
		b.logger.Debug("event dropped after close", "kind", kind, "seq", e.Seq)
		return e
	}
	for _, s := range b.subs {
		if s.kinds != nil && !s.kinds[kind] {
			continue
		}
		s.queue.Enqueue(e)
	}
	return e
}

// Pending returns the number of undelivered events across subscribers.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.subs {
		n += s.queue.Len()
	}
	return n
}

// Close stops accepting events and waits until every subscriber has drained
// its queue or ctx is done. Handlers still running when ctx expires see
// their context canceled.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.queue.Close()
	}
	defer b.cancel()

	for _, s := range subs {
		select {
		case <-s.done:
		case <-ctx.Done():
			return fmt.Errorf("events: close with %d undelivered: %w", b.Pending(), ctx.Err())
		}
	}
	return nil
}

func (b *Bus) run(s *subscription) {
	defer close(s.done)
	for {
		if e, ok := s.queue.TryDequeue(); ok {
			b.deliver(s, e)
			continue
		}
		if s.queue.Drained() {
			return
		}
		<-s.queue.Wait()
	}
}

func (b *Bus) deliver(s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"subscriber", s.name,
				"kind", e.Kind,
				"seq", e.Seq,
				"panic", r,
			)
		}
	}()

	if err := s.handler(b.ctx, e); err != nil {
		b.logger.Warn("event handler failed",
			"subscriber", s.name,
			"kind", e.Kind,
			"seq", e.Seq,
			"error", err,
		)
	}
}
