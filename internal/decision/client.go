package decision

import (
	"context"
	"sync"
	"time"
)

// DefaultClientTimeout bounds each store call.
const DefaultClientTimeout = 5 * time.Second

// Client wraps a Store with a per-call timeout and, for stores that are not
// safe for concurrent use, a mutex around every call.
type Client struct {
	store   Store
	timeout time.Duration
	mu      *sync.Mutex // nil when the store is concurrency safe
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient wraps s.
func NewClient(s Store, opts ...ClientOption) *Client {
	c := &Client{
		store:   s,
		timeout: DefaultClientTimeout,
	}
	if cs, ok := s.(ConcurrencySafe); !ok || !cs.ConcurrencySafe() {
		c.mu = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Serialized reports whether calls to the wrapped store are serialised.
func (c *Client) Serialized() bool {
	return c.mu != nil
}

func (c *Client) begin(ctx context.Context) (context.Context, func()) {
	cancel := func() {}
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	if c.mu == nil {
		return ctx, cancel
	}
	c.mu.Lock()
	return ctx, func() {
		c.mu.Unlock()
		cancel()
	}
}

// Save persists d.
func (c *Client) Save(ctx context.Context, d Decision) error {
	ctx, done := c.begin(ctx)
	defer done()
	return c.store.Save(ctx, d)
}

// Get looks up a decision. found is false for unknown ids.
func (c *Client) Get(ctx context.Context, id string) (Decision, bool, error) {
	ctx, done := c.begin(ctx)
	defer done()
	return c.store.Get(ctx, id)
}

// SaveOutcome persists o if the store supports outcomes.
func (c *Client) SaveOutcome(ctx context.Context, o Outcome) (bool, error) {
	oc, ok := c.store.(OutcomeStore)
	if !ok {
		return false, ErrUnsupported
	}
	ctx, done := c.begin(ctx)
	defer done()
	return oc.SaveOutcome(ctx, o)
}

// Outcomes returns every stored outcome if the store supports outcomes.
func (c *Client) Outcomes(ctx context.Context) ([]Outcome, error) {
	oc, ok := c.store.(OutcomeStore)
	if !ok {
		return nil, ErrUnsupported
	}
	ctx, done := c.begin(ctx)
	defer done()
	return oc.Outcomes(ctx)
}

// CountDecisions counts decisions created at or after since.
func (c *Client) CountDecisions(ctx context.Context, since time.Time) (int64, error) {
	counter, ok := c.store.(Counter)
	if !ok {
		return 0, ErrUnsupported
	}
	ctx, done := c.begin(ctx)
	defer done()
	return counter.CountDecisions(ctx, since)
}

// List returns decisions created in [from, to).
func (c *Client) List(ctx context.Context, from, to time.Time) ([]Decision, error) {
	lister, ok := c.store.(Lister)
	if !ok {
		return nil, ErrUnsupported
	}
	ctx, done := c.begin(ctx)
	defer done()
	return lister.List(ctx, from, to)
}
