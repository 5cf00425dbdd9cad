package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"media-gateway/internal/logging"
)

// ChunkSource yields an ordered, finite sequence of byte chunks. Next blocks
// until a chunk is available and returns io.EOF after the last one.
type ChunkSource interface {
	Next() ([]byte, error)
}

// Killer is implemented by sources that can be stopped early, such as a
// running process. Relay kills them as soon as the stream can no longer be
// written, so a blocked Next returns.
type Killer interface {
	Kill()
}

// Result summarizes a relay.
type Result struct {
	// Bytes and Writes count what reached the response body.
	Bytes  int64
	Writes int
	// Committed is true once the status line and headers were sent. After
	// that point a failure can no longer be reported as an error response.
	Committed bool
	// Held is output read from the source but not yet sent when the relay
	// stopped. On a tool failure it is part of the diagnostic stdout.
	Held []byte
}

// Relay forwards chunks from src to w in arrival order, flushing after each
// one. The most recent chunk is held back until the next chunk arrives or
// the source ends; at the end finish is called and the held chunk is only
// sent if it returns nil. A source that fails before producing more than one
// chunk therefore leaves the response uncommitted, so the caller can still
// answer with an error.
//
// A write failure is returned as an error wrapping ErrClientGone,
// ErrWriteTimeout or ErrMaxDuration, and finish is not called; the caller is
// expected to kill the producer. The same errors are returned when the writer
// gives up while the source is quiet, in which case a Killer source has
// already been killed.
func Relay(ctx context.Context, w http.ResponseWriter, src ChunkSource, contentType string, cfg TimeoutWriterConfig, finish func() error) (Result, error) {
	tw := NewTimeoutWriter(ctx, w, cfg)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Debug("Failed to close timeout writer: %v", err)
		}
	}()

	if k, ok := src.(Killer); ok {
		stop := context.AfterFunc(tw.Context(), k.Kill)
		defer stop()
	}

	var res Result
	// failed reports the writer's error over the source's when both are set.
	failed := func(err error) (Result, error) {
		if werr := tw.Err(); werr != nil {
			return res, werr
		}
		return res, err
	}
	send := func(chunk []byte) error {
		if err := tw.Err(); err != nil {
			return err
		}
		if !res.Committed {
			commitHeaders(w, contentType)
			res.Committed = true
		}
		n, err := tw.Write(chunk)
		res.Bytes += int64(n)
		if err != nil {
			return err
		}
		res.Writes++
		return tw.Flush()
	}

	var held []byte
	for {
		chunk, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Held = held
			return failed(fmt.Errorf("reading source: %w", err))
		}
		if held != nil {
			if err := send(held); err != nil {
				return res, err
			}
		}
		held = chunk
	}

	if finish != nil {
		if err := finish(); err != nil {
			res.Held = held
			return failed(err)
		}
	}

	if held != nil {
		if err := send(held); err != nil {
			return res, err
		}
	} else if !res.Committed {
		if err := tw.Err(); err != nil {
			return res, err
		}
		commitHeaders(w, contentType)
		res.Committed = true
	}

	bytesWritten, writes, duration := tw.Stats()
	logging.Debug("Stream completed: %d bytes in %d writes over %v", bytesWritten, writes, duration)
	return res, nil
}

func commitHeaders(w http.ResponseWriter, contentType string) {
	h := w.Header()
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}
