package admission

import (
	"fmt"
	"sync/atomic"

	"media-gateway/internal/metrics"
)

// Pool is a fixed set of independent gates, one per logical worker.
// Requests are assigned to gates round-robin and never migrate.
type Pool struct {
	gates []*Gate
	next  atomic.Uint64
}

// NewPool creates workers gates of the given capacity each.
func NewPool(workers, capacity int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{gates: make([]*Gate, workers)}
	for i := range p.gates {
		p.gates[i] = NewGate(fmt.Sprintf("worker-%d", i), capacity, opts...)
	}
	return p
}

// Pick returns the gate for the next request.
func (p *Pool) Pick() *Gate {
	n := p.next.Add(1) - 1
	return p.gates[n%uint64(len(p.gates))]
}

// Workers returns the number of gates.
func (p *Pool) Workers() int {
	return len(p.gates)
}

// Capacity returns the system-wide concurrency, workers × per-gate capacity.
func (p *Pool) Capacity() int {
	total := 0
	for _, g := range p.gates {
		total += g.Capacity()
	}
	return total
}

// Stats returns a snapshot of every gate.
func (p *Pool) Stats() []Stats {
	out := make([]Stats, len(p.gates))
	for i, g := range p.gates {
		out[i] = g.Stats()
	}
	return out
}

// GetStats implements metrics.StatsProvider.
func (p *Pool) GetStats() []metrics.GateStats {
	out := make([]metrics.GateStats, len(p.gates))
	for i, g := range p.gates {
		s := g.Stats()
		out[i] = metrics.GateStats{
			Worker:   s.Name,
			Capacity: s.Capacity,
			InFlight: s.InFlight,
			Waiting:  s.Waiting,
		}
	}
	return out
}
