// Package memory sets the Go runtime memory limit inside a container.
//
// GOMAXPROCS follows the container CPU quota, but the memory limit has to be
// set explicitly. The gateway's heap is small next to the ffmpeg processes it
// spawns, and those processes are not covered by GOMEMLIMIT at all, so the
// limit is derived from the container limit with headroom left for them.
//
// # Environment Variables
//
//   - GOMEMLIMIT: standard Go variable; when set it wins and nothing is changed
//   - MEMORY_LIMIT: container limit in bytes, usually from the Downward API
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap (default 0.85)
//
// Lower MEMORY_RATIO as GATEWAY_WORKERS × GATEWAY_CONCURRENCY grows:
//
//	| Workload                           | Ratio          |
//	|------------------------------------|----------------|
//	| Probes and thumbnails only         | 0.85 (default) |
//	| Preview clips and WebM remuxes     | 0.75           |
//	| Many concurrent transcodes         | 0.60           |
//
// # Kubernetes
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.75"
//
// GOMEMLIMIT is a soft limit: the collector works harder as the heap
// approaches it, but it never caps memory used by child processes.
package memory
