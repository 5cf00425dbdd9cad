package workers

import (
	"runtime"
)

// DefaultLimit caps the derived worker count. Each worker is an admission
// gate with its own capacity, so the total number of concurrent tool
// processes grows with workers × capacity.
const DefaultLimit = 4

// Count returns the number of workers for a task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// Resolve returns the configured worker count. A positive request is used
// as is; zero or negative derives min(GOMAXPROCS, limit).
func Resolve(requested, limit int) int {
	if requested > 0 {
		return requested
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return ForCPU(limit)
}
