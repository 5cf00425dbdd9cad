package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"media-gateway/internal/logging"
)

// ErrorResponse is the body of every non-tool error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ToolErrorResponse is the body returned when the tool exits non-zero.
// StderrTruncated is set when Stderr holds only the tail of the output.
type ToolErrorResponse struct {
	Error           string `json:"error"`
	ExitCode        int    `json:"exitCode"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	StderrTruncated bool   `json:"stderrTruncated"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// WriteError writes {"error": message} with the given status code.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// writeBody writes a buffered tool output.
func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.Debug("failed to write response body: %v", err)
	}
}
