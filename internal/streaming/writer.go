package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"media-gateway/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a write operation exceeded the configured timeout.
	// This typically occurs when a client is receiving data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the stream was canceled programmatically
	// by calling Close() on the TimeoutWriter.
	ErrStreamCanceled = errors.New("stream canceled")

	// ErrMaxDuration indicates that the stream ran longer than MaxDuration.
	ErrMaxDuration = errors.New("stream duration limit exceeded")
)

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout is the maximum time to wait for a single write operation
	WriteTimeout time.Duration
	// IdleTimeout is the maximum time a single write may stay blocked.
	// Time spent waiting for the producer does not count.
	IdleTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited)
	MaxDuration time.Duration
	// ChunkSize is the size of chunks to write (0 = write as received)
	ChunkSize int
	// OnProgress is called after each successful write with bytes written so far
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultTimeoutWriterConfig returns sensible defaults
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxDuration:  0,         // Unlimited by default
		ChunkSize:    64 * 1024, // 64KB chunks
		OnProgress:   nil,
	}
}

// TimeoutWriter wraps an http.ResponseWriter with timeout protection.
// Write deadlines are applied through http.ResponseController, so a slow
// client fails the write itself instead of leaving it blocked.
type TimeoutWriter struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	parent       context.Context
	ctx          context.Context
	cancel       context.CancelCauseFunc
	config       TimeoutWriterConfig
	startTime    time.Time
	writeStarted time.Time // zero while no write is in flight
	limit        *time.Timer
	bytesWritten int64
	writes       int
	mu           sync.Mutex
	closed       bool
	done         chan struct{}
}

// NewTimeoutWriter creates a new timeout-protected writer
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancelCause(ctx)

	tw := &TimeoutWriter{
		w:         w,
		rc:        http.NewResponseController(w),
		parent:    ctx,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
		done:      make(chan struct{}),
	}

	if config.MaxDuration > 0 {
		tw.limit = time.AfterFunc(config.MaxDuration, func() {
			logging.Warn("Stream duration limit exceeded: %v", config.MaxDuration)
			cancel(ErrMaxDuration)
		})
	}

	// Start idle timeout checker
	go tw.idleChecker()

	return tw
}

// Write implements io.Writer with timeout protection
func (tw *TimeoutWriter) Write(p []byte) (n int, err error) {
	tw.mu.Lock()
	if tw.closed {
		tw.mu.Unlock()
		return 0, ErrStreamCanceled
	}
	tw.mu.Unlock()

	if err := tw.Err(); err != nil {
		return 0, err
	}

	// Write in chunks if configured
	if tw.config.ChunkSize > 0 && len(p) > tw.config.ChunkSize {
		return tw.writeChunked(p)
	}

	return tw.writeWithTimeout(p)
}

// writeChunked writes data in smaller chunks
func (tw *TimeoutWriter) writeChunked(p []byte) (int, error) {
	totalWritten := 0

	for len(p) > 0 {
		// Check context between chunks
		if tw.ctx.Err() != nil {
			return totalWritten, tw.contextError()
		}

		chunkSize := min(tw.config.ChunkSize, len(p))

		n, err := tw.writeWithTimeout(p[:chunkSize])
		totalWritten += n

		if err != nil {
			return totalWritten, err
		}

		p = p[chunkSize:]

		// Flush after each chunk for streaming
		if err := tw.Flush(); err != nil {
			return totalWritten, err
		}
	}

	return totalWritten, nil
}

// writeWithTimeout performs a single write bounded by WriteTimeout
func (tw *TimeoutWriter) writeWithTimeout(p []byte) (int, error) {
	if tw.config.WriteTimeout > 0 {
		// Writers without deadline support (e.g. test recorders) write unbounded.
		if err := tw.rc.SetWriteDeadline(time.Now().Add(tw.config.WriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return 0, fmt.Errorf("%w: %v", ErrClientGone, err)
		}
	}

	tw.mu.Lock()
	tw.writeStarted = time.Now()
	tw.mu.Unlock()

	n, err := tw.w.Write(p)

	tw.mu.Lock()
	tw.writeStarted = time.Time{}
	tw.mu.Unlock()

	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			tw.cancel(ErrWriteTimeout)
			return n, ErrWriteTimeout
		}
		return n, fmt.Errorf("%w: %v", ErrClientGone, err)
	}

	tw.mu.Lock()
	tw.bytesWritten += int64(n)
	tw.writes++
	bytesWritten := tw.bytesWritten
	tw.mu.Unlock()

	if tw.config.OnProgress != nil {
		tw.config.OnProgress(bytesWritten, time.Since(tw.startTime))
	}
	return n, nil
}

// Flush pushes buffered response bytes to the client.
func (tw *TimeoutWriter) Flush() error {
	if err := tw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	return nil
}

// idleChecker cancels the stream when a write has been blocked longer than
// IdleTimeout.
func (tw *TimeoutWriter) idleChecker() {
	if tw.config.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			started := tw.writeStarted
			tw.mu.Unlock()
			if started.IsZero() {
				continue
			}

			if blocked := time.Since(started); blocked > tw.config.IdleTimeout {
				logging.Warn("Stream write blocked past idle timeout: %v", blocked)
				tw.cancel(ErrWriteTimeout)
				return
			}

		case <-tw.done:
			return
		case <-tw.ctx.Done():
			return
		}
	}
}

// Context is canceled when the stream fails, times out, or is closed.
func (tw *TimeoutWriter) Context() context.Context {
	return tw.ctx
}

// Err returns the reason the stream can no longer be written, or nil.
func (tw *TimeoutWriter) Err() error {
	if tw.ctx.Err() != nil {
		return tw.contextError()
	}
	if tw.config.MaxDuration > 0 && time.Since(tw.startTime) > tw.config.MaxDuration {
		return ErrMaxDuration
	}
	return nil
}

// contextError returns an appropriate error based on context state
func (tw *TimeoutWriter) contextError() error {
	if tw.parent.Err() != nil {
		return ErrClientGone
	}
	if cause := context.Cause(tw.ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return ErrStreamCanceled
}

// Close marks the writer as closed and clears any write deadline
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}

	tw.closed = true
	close(tw.done)
	if tw.limit != nil {
		tw.limit.Stop()
	}
	tw.cancel(ErrStreamCanceled)

	if err := tw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Stats returns streaming statistics
func (tw *TimeoutWriter) Stats() (bytesWritten int64, writes int, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, tw.writes, time.Since(tw.startTime)
}
