package metrics

import (
	"sync"
	"time"

	"media-gateway/internal/logging"
)

// StatsProvider interface for collecting admission stats
type StatsProvider interface {
	GetStats() []GateStats
}

// GateStats is a point-in-time view of one worker's admission gate
type GateStats struct {
	Worker   string
	Capacity int
	InFlight int
	Waiting  int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	var inFlight, waiting int
	for _, s := range c.statsProvider.GetStats() {
		AdmissionCapacity.WithLabelValues(s.Worker).Set(float64(s.Capacity))
		AdmissionInFlight.WithLabelValues(s.Worker).Set(float64(s.InFlight))
		AdmissionWaiting.WithLabelValues(s.Worker).Set(float64(s.Waiting))
		inFlight += s.InFlight
		waiting += s.Waiting
	}

	logging.Debug("Metrics collected: in_flight=%d, waiting=%d", inFlight, waiting)
}
