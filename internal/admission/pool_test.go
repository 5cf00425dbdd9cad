package admission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRoundRobin(t *testing.T) {
	p := NewPool(3, 2)
	require.Equal(t, 3, p.Workers())
	assert.Equal(t, 6, p.Capacity())

	var names []string
	for i := 0; i < 6; i++ {
		names = append(names, p.Pick().Name())
	}
	assert.Equal(t, []string{
		"worker-0", "worker-1", "worker-2",
		"worker-0", "worker-1", "worker-2",
	}, names)
}

func TestPoolGatesAreIndependent(t *testing.T) {
	p := NewPool(2, 1)
	a := p.Pick()
	b := p.Pick()

	ta, ok := a.TryAcquire()
	require.True(t, ok)
	defer ta.Release()

	// a is full, b still has room
	_, ok = a.TryAcquire()
	assert.False(t, ok)
	tb, ok := b.TryAcquire()
	require.True(t, ok)
	require.NoError(t, tb.Release())
}

func TestPoolMinimumOneWorker(t *testing.T) {
	p := NewPool(0, 4)
	assert.Equal(t, 1, p.Workers())
}

func TestPoolGetStats(t *testing.T) {
	p := NewPool(2, 3)
	tk, ok := p.Pick().TryAcquire()
	require.True(t, ok)
	defer tk.Release()

	stats := p.GetStats()
	require.Len(t, stats, 2)
	assert.Equal(t, "worker-0", stats[0].Worker)
	assert.Equal(t, 3, stats[0].Capacity)
	assert.Equal(t, 1, stats[0].InFlight)
	assert.Equal(t, 0, stats[1].InFlight)

	raw := p.Stats()
	assert.Equal(t, uint64(1), raw[0].Acquired)
}
