package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"media-gateway/internal/admission"
	"media-gateway/internal/command"
	"media-gateway/internal/fetch"
	"media-gateway/internal/logging"
	"media-gateway/internal/metrics"
	"media-gateway/internal/streaming"
	"media-gateway/internal/transcoder"
)

// FetchMode controls when sources are pre-fetched and fed through stdin.
type FetchMode string

// Fetch modes.
const (
	// FetchAuto pre-fetches only when the caller supplied a credential, so
	// the token never has to be handed to the tool.
	FetchAuto   FetchMode = "auto"
	FetchAlways FetchMode = "always"
	FetchNever  FetchMode = "never"
)

// ParseFetchMode validates a textual fetch mode. Empty means FetchAuto.
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(s) {
	case "", FetchAuto:
		return FetchAuto, nil
	case FetchAlways, FetchNever:
		return FetchMode(s), nil
	}
	return "", fmt.Errorf("invalid fetch mode %q (want auto, always or never)", s)
}

const retryAfterSeconds = 5

// Config holds gateway settings.
type Config struct {
	FetchMode FetchMode
	Stream    streaming.TimeoutWriterConfig
}

// Gateway executes transform jobs against a pool of admission gates.
type Gateway struct {
	pool      *admission.Pool
	runner    Runner
	fetcher   Fetcher
	fetchMode FetchMode
	streamCfg streaming.TimeoutWriterConfig
}

// New creates a Gateway. fetcher may be nil when FetchMode is FetchNever.
func New(pool *admission.Pool, runner Runner, fetcher Fetcher, cfg Config) *Gateway {
	if cfg.FetchMode == "" {
		cfg.FetchMode = FetchAuto
	}
	return &Gateway{
		pool:      pool,
		runner:    runner,
		fetcher:   fetcher,
		fetchMode: cfg.FetchMode,
		streamCfg: cfg.Stream,
	}
}

// Pool returns the gateway's admission pool.
func (g *Gateway) Pool() *admission.Pool {
	return g.pool
}

// SuccessWriter renders a successful buffered run.
type SuccessWriter func(w http.ResponseWriter, stdout []byte, res *transcoder.ExitResult)

// Job is one transform to execute.
type Job struct {
	Request command.Request
	// Stream relays stdout while the tool runs instead of buffering it.
	Stream bool
	// RequireOutput treats an empty successful output as a tool failure.
	RequireOutput bool
	// OnSuccess overrides the default buffered response. Ignored when streaming.
	OnSuccess SuccessWriter
}

// Execute runs job and writes exactly one outcome to w.
func (g *Gateway) Execute(w http.ResponseWriter, r *http.Request, job Job) {
	ctx := r.Context()
	kind := string(job.Request.Kind)
	log := g.logger(ctx).With().Str("kind", kind).Logger()

	start := time.Now()
	status := metrics.StatusSuccess
	defer func() {
		metrics.TranscoderJobsTotal.WithLabelValues(kind, status).Inc()
		metrics.TranscoderJobDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	req := job.Request
	if g.shouldPrefetch(req) {
		req = req.WithStdinInput()
	}

	cmd, err := command.Build(req)
	if err != nil {
		status = metrics.StatusInvalid
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var stdin []byte
	if req.ReadsStdin() {
		res, err := g.fetcher.Fetch(ctx, req.Source, req.Credential)
		if err != nil {
			status = metrics.StatusFetchError
			g.writeFetchError(w, log, err)
			return
		}
		log.Debug().Int("bytes", len(res.Body)).Bool("redirected", res.Redirected).Msg("source fetched")
		stdin = res.Body
	}

	gate := g.pool.Pick()
	ticket, err := gate.Acquire(ctx)
	if err != nil {
		if errors.Is(err, admission.ErrTimeout) {
			status = metrics.StatusAdmissionTimeout
			metrics.AdmissionRejectedTotal.WithLabelValues("timeout").Inc()
			log.Warn().Str("worker", gate.Name()).Msg("admission timed out")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
			WriteError(w, http.StatusServiceUnavailable, "server busy, try again later")
			return
		}
		status = metrics.StatusClientGone
		metrics.AdmissionRejectedTotal.WithLabelValues("canceled").Inc()
		log.Debug().Err(err).Msg("client left while waiting for admission")
		return
	}
	defer func() {
		if err := ticket.Release(); err != nil {
			log.Error().Err(err).Msg("admission ticket")
		}
	}()

	metrics.TranscoderJobsInProgress.Inc()
	defer metrics.TranscoderJobsInProgress.Dec()

	proc, err := g.runner.Start(ctx, cmd, stdin)
	if err != nil {
		status = metrics.StatusSpawnError
		log.Error().Err(err).Msg("failed to start tool")
		WriteError(w, http.StatusInternalServerError, "failed to start transcoder")
		return
	}

	if job.Stream {
		var abort bool
		status, abort = g.stream(ctx, w, log, job, proc)
		if abort {
			// Headers are gone; only a broken transfer tells the client the body is incomplete.
			panic(http.ErrAbortHandler)
		}
	} else {
		status = g.buffer(ctx, w, log, job, proc)
	}
}

// stream relays stdout as it is produced. A tool failure before anything was
// sent is reported as a 400; after that abort is true and the caller must
// abort the connection.
func (g *Gateway) stream(ctx context.Context, w http.ResponseWriter, log zerolog.Logger, job Job, proc Process) (status string, abort bool) {
	kind := string(job.Request.Kind)

	var exit *transcoder.ExitResult
	res, err := streaming.Relay(ctx, w, proc, command.ContentType(job.Request.Kind), g.streamCfg, func() error {
		var err error
		exit, err = proc.Wait()
		return err
	})
	metrics.TranscoderBytesRelayed.WithLabelValues(kind).Add(float64(res.Bytes))

	if err == nil {
		log.Debug().Int64("bytes", res.Bytes).Int("writes", res.Writes).Msg("stream completed")
		return metrics.StatusSuccess, false
	}

	// Whatever happened, the process must be gone and reaped before we return.
	if exit == nil {
		proc.Kill()
		exit, _ = proc.Wait()
	}

	status = failureStatus(err)
	if ctx.Err() != nil {
		log.Debug().Err(err).Int64("bytes", res.Bytes).Msg("client disconnected, tool killed")
		return metrics.StatusClientGone, false
	}
	if res.Committed {
		// The client is still connected, so the transfer must visibly break.
		log.Warn().Err(err).Int64("bytes", res.Bytes).Msg("stream failed after response was committed, aborting")
		return status, true
	}

	var toolErr *transcoder.ToolError
	switch {
	case errors.As(err, &toolErr):
		stdout := append(res.Held, exitStdout(exit)...)
		g.writeToolError(w, log, toolErr, stdout)

	case errors.Is(err, streaming.ErrClientGone):
		log.Debug().Err(err).Msg("client connection failed, tool killed")

	case errors.Is(err, streaming.ErrWriteTimeout), errors.Is(err, streaming.ErrMaxDuration):
		log.Warn().Err(err).Msg("stream timed out before any output was sent")
		WriteError(w, http.StatusGatewayTimeout, "transcoder output timed out")

	case errors.Is(err, transcoder.ErrKilled):
		log.Warn().Msg("tool was stopped before finishing")
		WriteError(w, http.StatusServiceUnavailable, "transcoder was stopped")

	default:
		log.Error().Err(err).Msg("stream failed")
		WriteError(w, http.StatusInternalServerError, "failed to read transcoder output")
	}
	return status, false
}

// failureStatus maps a failed run to its metrics label.
func failureStatus(err error) string {
	var toolErr *transcoder.ToolError
	switch {
	case errors.As(err, &toolErr):
		return metrics.StatusToolError
	case errors.Is(err, streaming.ErrClientGone),
		errors.Is(err, streaming.ErrWriteTimeout),
		errors.Is(err, streaming.ErrMaxDuration),
		errors.Is(err, transcoder.ErrKilled):
		return metrics.StatusClientGone
	default:
		return metrics.StatusSpawnError
	}
}

// buffer collects the whole output, then responds.
func (g *Gateway) buffer(ctx context.Context, w http.ResponseWriter, log zerolog.Logger, job Job, proc Process) string {
	out, readErr := transcoder.Collect(proc, transcoder.MaxBufferedOutput)
	exit, err := proc.Wait()
	if readErr != nil {
		err = readErr
	}

	var toolErr *transcoder.ToolError
	switch {
	case err == nil:
	case errors.As(err, &toolErr):
		g.writeToolError(w, log, toolErr, append(out, exitStdout(exit)...))
		return metrics.StatusToolError
	case isClientGone(ctx, err):
		log.Debug().Err(err).Msg("client disconnected, tool killed")
		return metrics.StatusClientGone
	case errors.Is(err, transcoder.ErrKilled):
		log.Warn().Msg("tool was stopped before finishing")
		WriteError(w, http.StatusServiceUnavailable, "transcoder was stopped")
		return metrics.StatusClientGone
	default:
		log.Error().Err(err).Msg("tool run failed")
		WriteError(w, http.StatusInternalServerError, "failed to read transcoder output")
		return metrics.StatusSpawnError
	}

	if job.RequireOutput && len(out) == 0 {
		g.writeToolError(w, log, &transcoder.ToolError{
			Tool:            toolFor(job.Request.Kind),
			Stderr:          exitStderr(exit),
			StderrTruncated: exit != nil && exit.StderrTruncated,
		}, nil)
		return metrics.StatusToolError
	}

	metrics.TranscoderBytesRelayed.WithLabelValues(string(job.Request.Kind)).Add(float64(len(out)))

	if job.OnSuccess != nil {
		job.OnSuccess(w, out, exit)
	} else {
		writeBody(w, command.ContentType(job.Request.Kind), out)
	}
	return metrics.StatusSuccess
}

func (g *Gateway) writeToolError(w http.ResponseWriter, log zerolog.Logger, toolErr *transcoder.ToolError, stdout []byte) {
	msg := "transcoder failed"
	if toolErr.ExitCode == 0 {
		msg = "transcoder produced no output"
	}
	log.Warn().Int("exit_code", toolErr.ExitCode).Str("stderr", tail(toolErr.Stderr, 512)).Msg(msg)

	WriteJSON(w, http.StatusBadRequest, ToolErrorResponse{
		Error:           msg,
		ExitCode:        toolErr.ExitCode,
		Stdout:          string(stdout),
		Stderr:          string(toolErr.Stderr),
		StderrTruncated: toolErr.StderrTruncated,
	})
}

func (g *Gateway) writeFetchError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		log.Error().Err(err).Msg("fetch failed")
		WriteError(w, http.StatusBadGateway, "failed to fetch source")
		return
	}
	if fe.Kind == fetch.KindUpstream {
		log.Warn().Err(err).Int("origin_status", fe.Status).Msg("fetch failed")
	} else {
		log.Debug().Err(err).Msg("fetch rejected")
	}
	WriteError(w, fe.HTTPStatus(), fe.Error())
}

func (g *Gateway) shouldPrefetch(r command.Request) bool {
	if g.fetcher == nil || r.Kind == command.KindToolVersion || !fetch.IsRemote(r.Source) {
		return false
	}
	switch g.fetchMode {
	case FetchAlways:
		return true
	case FetchNever:
		return false
	default:
		return r.Credential != ""
	}
}

func (g *Gateway) logger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "gateway").Logger()
	}
	return logging.With("gateway")
}

// isClientGone reports whether err is the consequence of the caller leaving.
func isClientGone(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, streaming.ErrClientGone)
}

func toolFor(kind command.Kind) command.Tool {
	if kind == command.KindProbe {
		return command.ToolFFprobe
	}
	return command.ToolFFmpeg
}

func exitStdout(res *transcoder.ExitResult) []byte {
	if res == nil {
		return nil
	}
	return res.Stdout
}

func exitStderr(res *transcoder.ExitResult) []byte {
	if res == nil {
		return nil
	}
	return res.Stderr
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
