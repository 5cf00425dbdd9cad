package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRequestIDGenerated(t *testing.T) {
	var gotID string
	var logLevel zerolog.Level
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
		logLevel = zerolog.Ctx(r.Context()).GetLevel()
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meta", http.NoBody))

	if gotID == "" {
		t.Fatal("Expected a generated request ID")
	}
	if len(gotID) != 36 {
		t.Errorf("Expected a UUID, got %q", gotID)
	}
	if w.Header().Get(HeaderRequestID) != gotID {
		t.Errorf("Expected response header %q, got %q", gotID, w.Header().Get(HeaderRequestID))
	}
	if logLevel == zerolog.Disabled {
		t.Error("Expected a request logger in the context")
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	var gotID string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/meta", http.NoBody)
	req.Header.Set(HeaderRequestID, "upstream-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if gotID != "upstream-123" {
		t.Errorf("Expected caller ID to be kept, got %q", gotID)
	}
}

func TestRequestIDRejectsOversized(t *testing.T) {
	var gotID string
	handler := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
	}))

	long := strings.Repeat("a", maxRequestIDLen+1)
	req := httptest.NewRequest(http.MethodGet, "/meta", http.NoBody)
	req.Header.Set(HeaderRequestID, long)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotID == long || gotID == "" {
		t.Errorf("Expected oversized ID to be replaced, got %q", gotID)
	}
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("Expected empty ID, got %q", id)
	}
}

func TestRecovererWritesJSON(t *testing.T) {
	captureLogs(t)
	handler := Recoverer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/thumb", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "internal server error") {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

func TestRecovererRepanicsAbort(t *testing.T) {
	handler := Recoverer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected ErrAbortHandler, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/webm", http.NoBody))
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{RequestLimit: 2, WindowSize: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		req.RemoteAddr = "192.0.2.10:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do("/meta"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := do("/meta")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Expected Retry-After 60, got %q", w.Header().Get("Retry-After"))
	}
	if !strings.Contains(w.Body.String(), "rate limit exceeded") {
		t.Errorf("Unexpected body %q", w.Body.String())
	}

	if w := do("/healthz"); w.Code != http.StatusOK {
		t.Errorf("Expected health check to bypass the limit, got %d", w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(RateLimitConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meta", http.NoBody))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestShouldTrace(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/thumb", true},
		{"/webm", true},
		{"/metrics", false},
		{"/healthz", false},
		{"/livez", false},
		{"/readyz", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
		if got := shouldTrace(r); got != tt.want {
			t.Errorf("shouldTrace(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSpanNameFormatter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/thumb?url=http://example.com/a.mp4", http.NoBody)
	if got := spanNameFormatter("media-gateway", r); got != "GET /thumb" {
		t.Errorf("Expected span name without query, got %q", got)
	}
}

func TestTracingPassesThrough(t *testing.T) {
	var traceID string
	handler := Tracing("media-gateway")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID, _ = ExtractTraceContext(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meta", http.NoBody))

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if traceID != "" {
		t.Errorf("Expected no trace ID with the no-op provider, got %q", traceID)
	}
}
