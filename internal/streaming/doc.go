// Package streaming relays tool output to HTTP clients as it is produced.
//
// # Overview
//
// Transcoded media can take a long time to produce, and clients may be slow
// or disappear halfway through. This package provides:
//
//   - TimeoutWriter: an http.ResponseWriter wrapper with per-write deadlines,
//     an idle timeout for writes that stop making progress, and an optional
//     maximum stream duration. Waiting on a quiet producer is never idle time.
//   - Relay: ordered, flushed forwarding of a chunk sequence with a
//     hold-back rule that keeps a failed tool from producing a corrupt
//     but well-formed response
//
// # Commit Rule
//
// Relay always keeps the newest chunk in hand. Headers and a 200 status go
// out only when a second chunk proves the stream is progressing, or when the
// producer has exited successfully. If the producer fails while nothing has
// been sent, the caller still owns the response and can write an error body.
// If it fails after the response was committed, the caller must abort the
// connection so the client sees a truncated transfer instead of a complete one.
// A source that implements Killer is killed as soon as the writer gives up.
//
// # Errors
//
//   - ErrClientGone: the request context ended or a write to the client failed
//   - ErrWriteTimeout: a single write stayed blocked past its limit
//   - ErrMaxDuration: the stream outlived MaxDuration
//   - ErrStreamCanceled: the writer was closed
//
// Callers should treat ErrClientGone as a normal event and stop the producer.
//
// # Usage
//
//	res, err := streaming.Relay(r.Context(), w, proc, "video/webm", cfg, func() error {
//	    _, err := proc.Wait()
//	    return err
//	})
package streaming
