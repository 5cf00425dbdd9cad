// Package middleware provides the HTTP middleware stack for media-gateway.
//
// It includes:
//   - Request ID propagation with a request-scoped zerolog logger
//   - Panic recovery that lets http.ErrAbortHandler through
//   - Prometheus request metrics with a bounded path label set
//   - OpenTelemetry tracing via otelhttp
//   - Structured access logging
//   - Per-client rate limiting via httprate
//   - gzip compression for JSON and text bodies
//
// Media bodies are never compressed. Every wrapper implements Unwrap so
// http.ResponseController can reach the connection for per-write deadlines.
package middleware
