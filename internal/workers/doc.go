/*
Package workers sizes the admission pool in containerized environments.

# Overview

When running in a container, the number of available CPUs may be limited by
cgroup constraints. Go 1.19+ sets GOMAXPROCS from the container CPU limit,
while runtime.NumCPU() still returns the host machine's CPU count.

The gateway models its deployment's worker processes as independent
admission gates. This package picks how many.

# Usage

	// GATEWAY_WORKERS=0 derives min(GOMAXPROCS, 4)
	n := workers.Resolve(cfg.Workers, workers.DefaultLimit)
	pool := admission.NewPool(n, cfg.Concurrency)

Each gate admits up to its capacity, so at most n × capacity tool processes
run at once.

# Lower-level Helpers

Count scales GOMAXPROCS by a multiplier and caps the result:

	// 1 worker per CPU, maximum of 8
	numWorkers := workers.ForCPU(8)

	// 2 workers per CPU, no maximum
	numWorkers := workers.Count(2.0, 0)

The result is never less than 1.
*/
package workers
