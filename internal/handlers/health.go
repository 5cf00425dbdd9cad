package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-gateway/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// GateStatus is one admission gate in the health response.
type GateStatus struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	InFlight int    `json:"inFlight"`
	Waiting  int    `json:"waiting"`
}

// ToolsStatus reports which external tools were found at startup.
type ToolsStatus struct {
	FFmpeg  bool   `json:"ffmpeg"`
	FFprobe bool   `json:"ffprobe"`
	Version string `json:"version,omitempty"`
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Tools ToolsStatus  `json:"tools"`
	Gates []GateStatus `json:"gates"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	ready := h.tools.Ready()

	response := HealthResponse{
		Ready:   ready,
		Version: startup.Version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Tools: ToolsStatus{
			FFmpeg:  h.tools.FFmpeg,
			FFprobe: h.tools.FFprobe,
			Version: h.tools.FFmpegVersion,
		},
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	for _, s := range h.gateway.Pool().Stats() {
		response.Gates = append(response.Gates, GateStatus{
			Name:     s.Name,
			Capacity: s.Capacity,
			InFlight: s.InFlight,
			Waiting:  s.Waiting,
		})
	}

	status := http.StatusOK
	response.Status = statusHealthy
	if !ready {
		response.Status = statusDegraded
		status = http.StatusServiceUnavailable
	}

	writeJSONStatus(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, map[string]string{"status": "alive"})
}

// ReadinessCheck returns 200 only when ffmpeg and ffprobe were found at startup
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.tools.Ready() {
		writeJSON(w, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}

// GetBuildInfo returns the application version and build information
func (h *Handlers) GetBuildInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, startup.GetBuildInfo())
}
