package admission

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrTimeout is returned when no slot frees up within the admission timeout.
	ErrTimeout = errors.New("admission: timed out waiting for a free slot")
	// ErrDoubleRelease is returned by a second Release of the same Ticket.
	ErrDoubleRelease = errors.New("admission: ticket released twice")
)

// DefaultCapacity is the per-gate concurrency used when none is configured.
const DefaultCapacity = 4

// Stats is a point-in-time snapshot of a gate.
type Stats struct {
	Name           string
	Capacity       int
	InFlight       int
	Waiting        int
	Acquired       uint64
	Released       uint64
	DoubleReleases uint64
}

// Gate is a counting admission primitive. Waiters are woken in FIFO order.
type Gate struct {
	name     string
	capacity int
	timeout  time.Duration
	sem      *semaphore.Weighted

	inFlight       atomic.Int64
	waiting        atomic.Int64
	acquired       atomic.Uint64
	released       atomic.Uint64
	doubleReleases atomic.Uint64

	onWait          func(time.Duration)
	onDoubleRelease func()
}

// Option configures a Gate.
type Option func(*Gate)

// WithTimeout bounds how long Acquire waits. Zero waits until ctx is done.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) { g.timeout = d }
}

// WithWaitObserver reports how long each successful Acquire waited.
func WithWaitObserver(fn func(time.Duration)) Option {
	return func(g *Gate) { g.onWait = fn }
}

// WithDoubleReleaseObserver is called whenever a ticket is released twice.
func WithDoubleReleaseObserver(fn func()) Option {
	return func(g *Gate) { g.onDoubleRelease = fn }
}

// NewGate creates a gate admitting at most capacity concurrent holders.
// A non-positive capacity falls back to DefaultCapacity.
func NewGate(name string, capacity int, opts ...Option) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	g := &Gate{
		name:     name,
		capacity: capacity,
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Capacity returns the fixed number of slots.
func (g *Gate) Capacity() int {
	return g.capacity
}

// Name returns the gate's label.
func (g *Gate) Name() string {
	return g.name
}

// Acquire blocks until a slot is free, ctx is done, or the admission timeout
// elapses. The returned Ticket must be released exactly once.
func (g *Gate) Acquire(ctx context.Context) (*Ticket, error) {
	// Fast path keeps the waiting gauge honest for uncontended gates.
	if tk, ok := g.TryAcquire(); ok {
		return tk, nil
	}
	start := time.Now()

	waitCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.waiting.Add(1)
	err := g.sem.Acquire(waitCtx, 1)
	g.waiting.Add(-1)

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("admission: %w", ctx.Err())
		}
		return nil, ErrTimeout
	}
	return g.admit(start), nil
}

// TryAcquire takes a slot only if one is immediately free.
func (g *Gate) TryAcquire() (*Ticket, bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return g.admit(time.Now()), true
}

func (g *Gate) admit(start time.Time) *Ticket {
	g.inFlight.Add(1)
	g.acquired.Add(1)
	if g.onWait != nil {
		g.onWait(time.Since(start))
	}
	return &Ticket{gate: g}
}

// Stats returns a snapshot of the gate's counters.
func (g *Gate) Stats() Stats {
	return Stats{
		Name:           g.name,
		Capacity:       g.capacity,
		InFlight:       int(g.inFlight.Load()),
		Waiting:        int(g.waiting.Load()),
		Acquired:       g.acquired.Load(),
		Released:       g.released.Load(),
		DoubleReleases: g.doubleReleases.Load(),
	}
}

// Ticket is proof of one admitted slot.
type Ticket struct {
	gate     *Gate
	released atomic.Bool
}

// Release returns the slot to its gate. Only the first call has an effect;
// later calls are counted and reported as ErrDoubleRelease.
func (t *Ticket) Release() error {
	if t == nil {
		return nil
	}
	if !t.released.CompareAndSwap(false, true) {
		t.gate.doubleReleases.Add(1)
		if t.gate.onDoubleRelease != nil {
			t.gate.onDoubleRelease()
		}
		return ErrDoubleRelease
	}
	t.gate.inFlight.Add(-1)
	t.gate.released.Add(1)
	t.gate.sem.Release(1)
	return nil
}
