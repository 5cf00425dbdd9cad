package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"media-gateway/internal/logging"
)

// ResponseWriter wrapper to capture status code and bytes written
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying connection.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
}

// DefaultLoggingConfig returns a sensible default configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{"/metrics"},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// sanitizeLogField removes control characters that could be used for log injection.
// This includes newlines, carriage returns, tabs, null bytes, and ANSI escape sequences.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\x00':
			continue
		case r == '\x1b':
			continue
		case r < 0x20 && r != '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Logger returns HTTP access logging middleware. It writes one structured
// record per request, including requests whose stream was aborted.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)

			defer func() {
				rec := recover()
				if rec != nil && rec != http.ErrAbortHandler {
					// Recoverer answers with a 500.
					wrapped.statusCode = http.StatusInternalServerError
				}
				logRequest(r, wrapped, time.Since(start), rec == http.ErrAbortHandler)
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}

// logRequest emits the access record. The query is logged without values
// for parameters that may carry credentials.
func logRequest(r *http.Request, rw *responseWriter, duration time.Duration, aborted bool) {
	logger := zerolog.Ctx(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		base := logging.Base()
		logger = &base
	}

	var event *zerolog.Event
	switch {
	case aborted || rw.statusCode >= http.StatusInternalServerError:
		event = logger.Error()
	case rw.statusCode >= http.StatusBadRequest:
		event = logger.Warn()
	default:
		event = logger.Info()
	}

	event = event.
		Str("component", "http").
		Str("client_ip", sanitizeLogField(getClientIP(r))).
		Str("method", sanitizeLogField(r.Method)).
		Str("path", sanitizeLogField(r.URL.Path)).
		Int("status", rw.statusCode).
		Int64("bytes", rw.bytesWritten).
		Dur("duration", duration)

	if q := sanitizeLogField(r.URL.RawQuery); q != "" {
		event = event.Str("query", q)
	}
	if enc := rw.Header().Get("Content-Encoding"); enc != "" {
		event = event.Str("content_encoding", enc)
	}
	if ua := sanitizeLogField(r.Header.Get("User-Agent")); ua != "" {
		event = event.Str("user_agent", ua)
	}
	if traceID, _ := ExtractTraceContext(r); traceID != "" {
		event = event.Str("trace_id", traceID)
	}
	if aborted {
		event = event.Bool("aborted", true)
	}

	event.Msg("request")
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}

	return false
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// logRequestError logs a write-path failure the handler could not see.
func logRequestError(r *http.Request, what string, err error) {
	logger := zerolog.Ctx(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		base := logging.Base()
		logger = &base
	}
	logger.Debug().Err(err).Str("path", sanitizeLogField(r.URL.Path)).Msg(what)
}
