package streaming

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDefaultTimeoutWriterConfig(t *testing.T) {
	config := DefaultTimeoutWriterConfig()

	if config.WriteTimeout != 30*time.Second {
		t.Errorf("Expected WriteTimeout=30s, got %v", config.WriteTimeout)
	}

	if config.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout=60s, got %v", config.IdleTimeout)
	}

	if config.MaxDuration != 0 {
		t.Errorf("Expected MaxDuration=0 (unlimited), got %v", config.MaxDuration)
	}

	if config.ChunkSize != 64*1024 {
		t.Errorf("Expected ChunkSize=64KB, got %d", config.ChunkSize)
	}

	if config.OnProgress != nil {
		t.Error("Expected OnProgress to be nil")
	}
}

func TestNewTimeoutWriter(t *testing.T) {
	w := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), w, DefaultTimeoutWriterConfig())

	if tw == nil {
		t.Fatal("NewTimeoutWriter returned nil")
	}

	if tw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten=0, got %d", tw.bytesWritten)
	}

	if tw.closed {
		t.Error("Expected closed=false")
	}

	if err := tw.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestTimeoutWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), w, DefaultTimeoutWriterConfig())
	defer tw.Close()

	data := []byte("test data")
	n, err := tw.Write(data)

	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	bytesWritten, writes, _ := tw.Stats()
	if bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytes written=%d, got %d", len(data), bytesWritten)
	}
	if writes != 1 {
		t.Errorf("Expected 1 write, got %d", writes)
	}

	if w.Body.String() != "test data" {
		t.Errorf("Expected body 'test data', got %q", w.Body.String())
	}
}

func TestTimeoutWriterChunked(t *testing.T) {
	w := httptest.NewRecorder()
	config := DefaultTimeoutWriterConfig()
	config.ChunkSize = 4

	tw := NewTimeoutWriter(context.Background(), w, config)
	defer tw.Close()

	n, err := tw.Write([]byte("0123456789"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 10 {
		t.Errorf("Expected 10 bytes, got %d", n)
	}

	_, writes, _ := tw.Stats()
	if writes != 3 {
		t.Errorf("Expected 3 chunk writes, got %d", writes)
	}
	if !w.Flushed {
		t.Error("Expected chunked writes to flush")
	}
}

func TestTimeoutWriterClose(t *testing.T) {
	w := httptest.NewRecorder()
	tw := NewTimeoutWriter(context.Background(), w, DefaultTimeoutWriterConfig())

	if err := tw.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// Close is idempotent
	if err := tw.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	if _, err := tw.Write([]byte("late")); !errors.Is(err, ErrStreamCanceled) {
		t.Errorf("Expected ErrStreamCanceled after close, got %v", err)
	}
}

func TestTimeoutWriterClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	tw := NewTimeoutWriter(ctx, w, DefaultTimeoutWriterConfig())
	defer tw.Close()

	cancel()

	if _, err := tw.Write([]byte("x")); !errors.Is(err, ErrClientGone) {
		t.Errorf("Expected ErrClientGone, got %v", err)
	}
}

func TestTimeoutWriterMaxDuration(t *testing.T) {
	w := httptest.NewRecorder()
	config := DefaultTimeoutWriterConfig()
	config.MaxDuration = time.Millisecond

	tw := NewTimeoutWriter(context.Background(), w, config)
	defer tw.Close()

	select {
	case <-tw.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("duration limit never canceled the stream")
	}

	if _, err := tw.Write([]byte("x")); !errors.Is(err, ErrMaxDuration) {
		t.Errorf("Expected ErrMaxDuration, got %v", err)
	}
}

// stalledWriter blocks every body write until release is closed.
type stalledWriter struct {
	header  http.Header
	release chan struct{}
}

func (s *stalledWriter) Header() http.Header { return s.header }
func (s *stalledWriter) WriteHeader(int)      {}
func (s *stalledWriter) Write(p []byte) (int, error) {
	<-s.release
	return len(p), nil
}

func TestTimeoutWriterIdleTimeout(t *testing.T) {
	w := &stalledWriter{header: http.Header{}, release: make(chan struct{})}
	config := DefaultTimeoutWriterConfig()
	config.IdleTimeout = 20 * time.Millisecond

	tw := NewTimeoutWriter(context.Background(), w, config)
	defer tw.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = tw.Write([]byte("x"))
	}()

	select {
	case <-tw.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("idle checker never canceled the blocked write")
	}
	close(w.release)
	<-done

	if err := tw.Err(); !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout after a blocked write, got %v", err)
	}
}

func TestTimeoutWriterIdleIgnoresQuietProducer(t *testing.T) {
	w := httptest.NewRecorder()
	config := DefaultTimeoutWriterConfig()
	config.IdleTimeout = 20 * time.Millisecond

	tw := NewTimeoutWriter(context.Background(), w, config)
	defer tw.Close()

	// Nothing to write for several idle periods.
	time.Sleep(100 * time.Millisecond)

	if err := tw.Context().Err(); err != nil {
		t.Fatalf("Stream canceled while no write was pending: %v", context.Cause(tw.Context()))
	}
	if _, err := tw.Write([]byte("late")); err != nil {
		t.Errorf("Write() error: %v", err)
	}
	if w.Body.String() != "late" {
		t.Errorf("Expected body %q, got %q", "late", w.Body.String())
	}
}

func TestTimeoutWriterProgress(t *testing.T) {
	w := httptest.NewRecorder()
	config := DefaultTimeoutWriterConfig()

	var last int64
	config.OnProgress = func(bytesWritten int64, _ time.Duration) {
		last = bytesWritten
	}

	tw := NewTimeoutWriter(context.Background(), w, config)
	defer tw.Close()

	_, _ = tw.Write([]byte("abc"))
	_, _ = tw.Write([]byte("de"))

	if last != 5 {
		t.Errorf("Expected progress 5, got %d", last)
	}
}

// failingWriter is a ResponseWriter whose body writes fail, like a reset connection.
type failingWriter struct {
	header http.Header
	status int
}

func (f *failingWriter) Header() http.Header {
	if f.header == nil {
		f.header = http.Header{}
	}
	return f.header
}

func (f *failingWriter) WriteHeader(code int) { f.status = code }

func (f *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write: broken pipe")
}

func TestTimeoutWriterBrokenPipe(t *testing.T) {
	tw := NewTimeoutWriter(context.Background(), &failingWriter{}, DefaultTimeoutWriterConfig())
	defer tw.Close()

	if _, err := tw.Write([]byte("x")); !errors.Is(err, ErrClientGone) {
		t.Errorf("Expected ErrClientGone, got %v", err)
	}
}
