package decision

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It implements every optional
// capability and is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	decisions map[string]Decision
	order     []string
	outcomes  map[string]Outcome
	outOrder  []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions: make(map[string]Decision),
		outcomes:  make(map[string]Outcome),
	}
}

// ConcurrencySafe implements ConcurrencySafe.
func (s *MemoryStore) ConcurrencySafe() bool { return true }

// Save stores a copy of d. A second Save for the same id is ignored.
func (s *MemoryStore) Save(ctx context.Context, d Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.decisions[d.ID]; exists {
		return nil
	}
	s.decisions[d.ID] = Clone(d)
	s.order = append(s.order, d.ID)
	return nil
}

// Get returns a copy of the decision with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Decision, bool, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[id]
	if !ok {
		return Decision{}, false, nil
	}
	return Clone(d), true, nil
}

// SaveOutcome stores o unless an outcome for the decision already exists.
func (s *MemoryStore) SaveOutcome(ctx context.Context, o Outcome) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outcomes[o.DecisionID]; exists {
		return false, nil
	}
	s.outcomes[o.DecisionID] = o
	s.outOrder = append(s.outOrder, o.DecisionID)
	return true, nil
}

// Outcomes returns all outcomes in insertion order.
func (s *MemoryStore) Outcomes(ctx context.Context) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Outcome, 0, len(s.outOrder))
	for _, id := range s.outOrder {
		out = append(out, s.outcomes[id])
	}
	return out, nil
}

// CountDecisions implements Counter.
func (s *MemoryStore) CountDecisions(ctx context.Context, since time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, d := range s.decisions {
		if since.IsZero() || !d.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// List implements Lister.
func (s *MemoryStore) List(ctx context.Context, from, to time.Time) ([]Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Decision{}
	for _, id := range s.order {
		d := s.decisions[id]
		if !from.IsZero() && d.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !d.CreatedAt.Before(to) {
			continue
		}
		out = append(out, Clone(d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Clone deep-copies d so stored records cannot be mutated through aliases.
func Clone(d Decision) Decision {
	c := d
	if d.Output != nil {
		out := *d.Output
		if d.Output.Breakdown != nil {
			out.Breakdown = make(map[string]float64, len(d.Output.Breakdown))
			for k, v := range d.Output.Breakdown {
				out.Breakdown[k] = v
			}
		}
		if d.Output.Notes != nil {
			out.Notes = append([]string(nil), d.Output.Notes...)
		}
		c.Output = &out
	}
	if d.Baseline != nil {
		b := *d.Baseline
		c.Baseline = &b
	}
	if d.Input.RoomBreakdown != nil {
		c.Input.RoomBreakdown = make(map[string]int, len(d.Input.RoomBreakdown))
		for k, v := range d.Input.RoomBreakdown {
			c.Input.RoomBreakdown[k] = v
		}
	}
	if d.Input.SpecialItems != nil {
		c.Input.SpecialItems = append([]string(nil), d.Input.SpecialItems...)
	}
	if d.Input.ParkingDistance != nil {
		p := *d.Input.ParkingDistance
		c.Input.ParkingDistance = &p
	}
	return c
}
