// Package metrics provides Prometheus instrumentation for the media gateway.
//
// All metrics are prefixed with "media_gateway_" and registered with the
// default registry through promauto, so they are served by promhttp on the
// metrics port.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Admission Metrics
//   - AdmissionCapacity, AdmissionInFlight, AdmissionWaiting: per-worker gauges,
//     refreshed by Collector from a StatsProvider
//   - AdmissionWaitDuration: time spent waiting for a ticket
//   - AdmissionRejectedTotal: requests that gave up waiting (timeout, canceled)
//   - AdmissionDoubleReleasesTotal: must stay at zero
//
// ## Transcoder Metrics
//   - TranscoderJobsTotal{kind,status}, TranscoderJobDuration{kind}
//   - TranscoderJobsInProgress, TranscoderBytesRelayed{kind}
//
// ## Fetch Metrics
//   - FetchRequestsTotal{outcome}, FetchRedirectsTotal, FetchBytesTotal, FetchDuration
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics
