package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultCompressionConfig(t *testing.T) {
	config := DefaultCompressionConfig()

	if config.MinSize != 1024 {
		t.Errorf("Expected MinSize to be 1024, got %d", config.MinSize)
	}

	for _, ct := range config.CompressibleTypes {
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") {
			t.Errorf("Media type %s must not be compressible", ct)
		}
	}
}

func TestCompressionMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		responseBody      string
		contentType       string
		acceptEncoding    string
		expectCompression bool
	}{
		{
			name:              "Compresses large JSON",
			responseBody:      strings.Repeat(`{"key":"value"}`, 200),
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: true,
		},
		{
			name:              "Doesn't compress small responses",
			responseBody:      `{"error":"small"}`,
			contentType:       "application/json",
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "Doesn't compress images",
			responseBody:      strings.Repeat("data", 500),
			contentType:       "image/jpeg",
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "Doesn't compress video",
			responseBody:      strings.Repeat("data", 500),
			contentType:       "video/webm",
			acceptEncoding:    "gzip",
			expectCompression: false,
		},
		{
			name:              "Respects client without gzip support",
			responseBody:      strings.Repeat("data", 500),
			contentType:       "application/json",
			acceptEncoding:    "",
			expectCompression: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.responseBody))
			})

			req := httptest.NewRequest(http.MethodGet, "/meta", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()

			Compression(DefaultCompressionConfig())(handler).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}

			isCompressed := w.Header().Get("Content-Encoding") == "gzip"
			if isCompressed != tt.expectCompression {
				t.Errorf("Expected compression=%v, got compression=%v", tt.expectCompression, isCompressed)
			}

			body := w.Body.Bytes()
			if tt.expectCompression {
				gr, err := gzip.NewReader(w.Body)
				if err != nil {
					t.Fatalf("Failed to create gzip reader: %v", err)
				}
				defer gr.Close()
				if body, err = io.ReadAll(gr); err != nil {
					t.Fatalf("Failed to decompress: %v", err)
				}
			}
			if string(body) != tt.responseBody {
				t.Error("Response content doesn't match original")
			}
		})
	}
}

func TestCompressionKeepsErrorStatus(t *testing.T) {
	body := strings.Repeat(`{"stderr":"Invalid data found when processing input"}`, 40)
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(body))
	})

	req := httptest.NewRequest(http.MethodGet, "/thumb", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	Compression(DefaultCompressionConfig())(handler).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("Expected compressed error body")
	}
}

func TestGzipResponseWriterBuffering(t *testing.T) {
	w := httptest.NewRecorder()
	grw := newGzipResponseWriter(w, DefaultCompressionConfig())

	smallData := []byte("small")
	n, err := grw.Write(smallData)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(smallData) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(smallData), n)
	}
	if !bytes.Equal(grw.buffer, smallData) {
		t.Error("Buffer content doesn't match written data")
	}
	if w.Body.Len() != 0 {
		t.Error("Nothing should reach the client before the decision")
	}
}

func TestGzipFlushCommitsSmallStreamChunk(t *testing.T) {
	w := httptest.NewRecorder()
	grw := newGzipResponseWriter(w, DefaultCompressionConfig())
	grw.Header().Set("Content-Type", "application/json")

	grw.WriteHeader(http.StatusOK)
	grw.Write([]byte(`{"streams":[`))
	grw.Flush()

	if !w.Flushed {
		t.Error("Expected underlying writer to be flushed")
	}
	if w.Body.String() != `{"streams":[` {
		t.Errorf("Expected first chunk to be sent uncompressed, got %q", w.Body.String())
	}

	grw.Write([]byte(`]}`))
	if err := grw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.Body.String() != `{"streams":[]}` {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

func TestCompressionDoesNotFinishAbortedStream(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("x", 2048)))
		panic(http.ErrAbortHandler)
	})

	req := httptest.NewRequest(http.MethodGet, "/meta", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	func() {
		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Errorf("Expected ErrAbortHandler, got %v", rec)
			}
		}()
		Compression(DefaultCompressionConfig())(handler).ServeHTTP(w, req)
	}()

	gr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	if _, err := io.ReadAll(gr); err == nil {
		t.Error("Expected truncated gzip stream to fail to decode")
	}
}

func TestCompressionSkipsHead(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodHead, "/livez", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	Compression(DefaultCompressionConfig())(handler).ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "" {
		t.Error("HEAD responses must not be compressed")
	}
}

func BenchmarkCompressionMiddleware(b *testing.B) {
	body := []byte(strings.Repeat(`{"key":"value"}`, 200))
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	req := httptest.NewRequest(http.MethodGet, "/meta", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}
