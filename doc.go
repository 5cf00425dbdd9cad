// Package main provides the entry point for media-gateway.
//
// media-gateway is an HTTP service that turns a media URL into a thumbnail,
// a preview clip, a WebM remux or ffprobe metadata by running ffmpeg and
// ffprobe as child processes. Admission is bounded per worker so a burst of
// requests queues instead of forking an unbounded number of tools.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads and validates environment variables
//  2. Memory Configuration: Sets the Go memory limit from MEMORY_LIMIT
//  3. Tool Check: Resolves ffmpeg and ffprobe and records their versions
//  4. Component Initialization:
//     - Transcoder: spawns and reaps tool processes
//     - Admission Pool: one gate per worker, each with a fixed slot count
//     - Fetcher: ranged prefix downloads for credentialed sources
//     - Gateway: runs jobs and maps failures to HTTP statuses
//     - Metrics Collector: exports admission gauges
//  5. HTTP Server Setup: Configures routes, middleware, and starts servers
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM and kills running tools
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8000):
//     - /thumb, /video, /preview, /webm, /meta transforms
//     - /version and /buildinfo
//     - /health, /healthz, /livez, /readyz probes
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Graceful Shutdown
//
//  1. Stop metrics collector
//  2. Kill running tool processes
//  3. Shutdown metrics server (if running)
//  4. Shutdown main HTTP server (SHUTDOWN_TIMEOUT)
//
// See [media-gateway/internal/startup] for the full list of environment
// variables.
package main
