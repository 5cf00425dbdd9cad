package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gateway_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gateway_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Admission metrics
var (
	AdmissionCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_gateway_admission_capacity",
			Help: "Configured concurrent job capacity per worker",
		},
		[]string{"worker"},
	)

	AdmissionInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_gateway_admission_in_flight",
			Help: "Number of admission tickets currently held per worker",
		},
		[]string{"worker"},
	)

	AdmissionWaiting = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_gateway_admission_waiting",
			Help: "Number of requests waiting for an admission ticket per worker",
		},
		[]string{"worker"},
	)

	AdmissionWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_gateway_admission_wait_duration_seconds",
			Help:    "Time spent waiting for an admission ticket",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	AdmissionRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gateway_admission_rejected_total",
			Help: "Requests that never obtained a ticket, by reason",
		},
		[]string{"reason"}, // "timeout", "canceled"
	)

	AdmissionDoubleReleasesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gateway_admission_double_releases_total",
			Help: "Tickets released more than once (programming error)",
		},
	)
)

// Transcoder metrics
var (
	TranscoderJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gateway_transcoder_jobs_total",
			Help: "Total number of transform jobs by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	TranscoderJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_gateway_transcoder_job_duration_seconds",
			Help:    "Transform job duration in seconds, from spawn to exit",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	TranscoderJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_gateway_transcoder_jobs_in_progress",
			Help: "Number of tool processes currently running",
		},
	)

	TranscoderBytesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gateway_transcoder_bytes_relayed_total",
			Help: "Bytes of tool output delivered to clients",
		},
		[]string{"kind"},
	)
)

// Fetch metrics
var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_gateway_fetch_requests_total",
			Help: "Partial-content fetches by outcome",
		},
		[]string{"outcome"}, // "success", "client_error", "upstream_error"
	)

	FetchRedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gateway_fetch_redirects_followed_total",
			Help: "Redirect hops followed (credential stripped)",
		},
	)

	FetchBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_gateway_fetch_bytes_total",
			Help: "Bytes pre-fetched from origins",
		},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_gateway_fetch_duration_seconds",
			Help:    "Partial-content fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_gateway_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
