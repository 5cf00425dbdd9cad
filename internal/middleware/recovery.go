package middleware

import (
	"net/http"
	"runtime"

	"media-gateway/internal/gateway"
	"media-gateway/internal/logging"
)

// Recoverer turns a handler panic into a 500 JSON response.
// http.ErrAbortHandler is re-raised so the server drops the connection
// without logging a stack trace.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)

			logger := logging.With("panic-recovery")
			logger.Error().
				Str("method", r.Method).
				Str("path", sanitizeLogField(r.URL.Path)).
				Str("request_id", RequestIDFromContext(r.Context())).
				Interface("panic_value", rec).
				Str("stack_trace", string(buf[:n])).
				Msg("panic recovered in HTTP handler")

			gateway.WriteError(w, http.StatusInternalServerError, "internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
