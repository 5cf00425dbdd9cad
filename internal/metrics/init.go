package metrics

// Job outcome labels used by TranscoderJobsTotal.
const (
	StatusSuccess          = "success"
	StatusInvalid          = "invalid"
	StatusFetchError       = "fetch_error"
	StatusAdmissionTimeout = "admission_timeout"
	StatusSpawnError       = "spawn_error"
	StatusToolError        = "tool_error"
	StatusClientGone       = "client_gone"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(kinds []string) {
	statuses := []string{
		StatusSuccess, StatusInvalid, StatusFetchError, StatusAdmissionTimeout,
		StatusSpawnError, StatusToolError, StatusClientGone,
	}

	for _, kind := range kinds {
		for _, status := range statuses {
			TranscoderJobsTotal.WithLabelValues(kind, status)
		}
		TranscoderJobDuration.WithLabelValues(kind)
		TranscoderBytesRelayed.WithLabelValues(kind)
	}

	for _, outcome := range []string{"success", "client_error", "upstream_error"} {
		FetchRequestsTotal.WithLabelValues(outcome)
	}

	for _, reason := range []string{"timeout", "canceled"} {
		AdmissionRejectedTotal.WithLabelValues(reason)
	}
}
