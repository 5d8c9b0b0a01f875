package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator returns "<prefix>-1", "<prefix>-2", ... and never runs out.
//
// Unlike decision.FixedGenerator, which replays a predetermined list, this
// suits scenarios whose number of decisions is not known up front.
//
// Thread-safety: guarded by an internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix uses "dec".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "dec"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id. Implements decision.IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
