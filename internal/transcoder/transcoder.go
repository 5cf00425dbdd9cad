package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"media-gateway/internal/command"
	"media-gateway/internal/logging"
	"media-gateway/internal/procgroup"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultChunkSize   = 64 * 1024
	DefaultStderrLimit = 1 << 20
	DefaultKillGrace   = 2 * time.Second

	// MaxBufferedOutput caps collected output; buffered transforms are single
	// frames, probe JSON, or version text.
	MaxBufferedOutput = 64 << 20
)

// Config holds runner settings.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	ChunkSize   int
	StderrLimit int
	KillGrace   time.Duration
}

// Transcoder spawns tool processes and tracks the ones still running.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	chunkSize   int
	stderrLimit int
	killGrace   time.Duration

	processes map[uint64]*Process
	processMu sync.Mutex
	nextID    atomic.Uint64
}

// ExitResult describes a reaped process.
type ExitResult struct {
	ExitCode        int
	Stdout          []byte // stdout not consumed through Next, drained by Wait
	Stderr          []byte
	StderrTruncated bool
	Duration        time.Duration
}

// New creates a new Transcoder instance.
func New(cfg Config) *Transcoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.StderrLimit <= 0 {
		cfg.StderrLimit = DefaultStderrLimit
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}

	return &Transcoder{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		chunkSize:   cfg.ChunkSize,
		stderrLimit: cfg.StderrLimit,
		killGrace:   cfg.KillGrace,
		processes:   make(map[uint64]*Process),
	}
}

func (t *Transcoder) path(tool command.Tool) string {
	if tool == command.ToolFFprobe {
		return t.ffprobePath
	}
	return t.ffmpegPath
}

// Start spawns the tool for c. When stdin is non-nil it is written to the
// process's standard input, which is closed afterwards; stdout is readable
// through Next concurrently. The process is killed when ctx is done.
//
// A failure to start is returned as *SpawnError. On success the caller owns
// the Process and must call Wait.
func (t *Transcoder) Start(ctx context.Context, c command.Command, stdin []byte) (*Process, error) {
	path := t.path(c.Tool)

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, path, c.Args...)
	procgroup.Isolate(cmd)

	p := &Process{
		id:        t.nextID.Add(1),
		tool:      c.Tool,
		cmd:       cmd,
		cancel:    cancel,
		stderr:    newTailBuffer(t.stderrLimit),
		chunkSize: t.chunkSize,
		owner:     t,
		stopper:   procgroup.NewStopper(cmd, t.killGrace),
	}

	cmd.Cancel = func() error {
		p.killed.Store(true)
		return p.stopper.Stop()
	}
	// Closes our pipe ends if a stray descendant keeps them open after the kill.
	cmd.WaitDelay = 2 * t.killGrace

	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	cmd.Stderr = p.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &SpawnError{Tool: c.Tool, Path: path, Err: err}
	}
	p.stdout = stdout

	p.started = time.Now()
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, &SpawnError{Tool: c.Tool, Path: path, Err: err}
	}

	t.processMu.Lock()
	t.processes[p.id] = p
	t.processMu.Unlock()

	logging.Debug("Started %s (pid %d): %s", c.Tool, cmd.Process.Pid, c)
	return p, nil
}

// Chunks is the part of a Process that Collect needs.
type Chunks interface {
	Next() ([]byte, error)
	Kill()
}

// Collect reads p until io.EOF and returns everything it produced. Output
// beyond limit kills the process and fails with ErrOutputTooLarge; the
// caller still has to Wait.
func Collect(p Chunks, limit int) ([]byte, error) {
	var out bytes.Buffer
	for {
		chunk, err := p.Next()
		if errors.Is(err, io.EOF) {
			return out.Bytes(), nil
		}
		if err != nil {
			return out.Bytes(), err
		}
		if out.Len()+len(chunk) > limit {
			p.Kill()
			return out.Bytes(), fmt.Errorf("%w: more than %d bytes", ErrOutputTooLarge, limit)
		}
		out.Write(chunk)
	}
}

// Running returns the number of live processes.
func (t *Transcoder) Running() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup stops all active tool processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	procs := make([]*Process, 0, len(t.processes))
	for _, p := range t.processes {
		procs = append(procs, p)
	}
	t.processMu.Unlock()

	for _, p := range procs {
		logging.Info("Killing %s process (pid %d)", p.tool, p.Pid())
		p.Kill()
	}
}

func (t *Transcoder) forget(id uint64) {
	t.processMu.Lock()
	delete(t.processes, id)
	t.processMu.Unlock()
}

// Process is one running tool invocation. It is owned by a single request.
type Process struct {
	id        uint64
	tool      command.Tool
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	stdout    io.ReadCloser
	stderr    *tailBuffer
	chunkSize int
	owner     *Transcoder
	started   time.Time

	eof     bool
	killed  atomic.Bool
	stopper *procgroup.Stopper

	waitOnce sync.Once
	result   *ExitResult
	waitErr  error
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Next returns the next chunk of stdout, blocking until at least one byte is
// available. It returns io.EOF once the stream has ended. Each returned
// slice is freshly allocated and may be retained by the caller.
func (p *Process) Next() ([]byte, error) {
	if p.eof {
		return nil, io.EOF
	}
	buf := make([]byte, p.chunkSize)
	for {
		n, err := p.stdout.Read(buf)
		if n > 0 {
			if errors.Is(err, io.EOF) {
				p.eof = true
			}
			return buf[:n], nil
		}
		if err != nil {
			p.eof = true
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading %s stdout: %w", p.tool, err)
		}
	}
}

// Kill terminates the process group. It is safe to call at any time and
// more than once; Wait must still be called to reap the process.
func (p *Process) Kill() {
	p.cancel()
}

// Wait drains any unread stdout, reaps the process, and reports its exit
// status. A non-zero exit is returned as *ToolError; a process ended by
// Kill or cancellation returns ErrKilled. Wait is idempotent.
func (p *Process) Wait() (*ExitResult, error) {
	p.waitOnce.Do(p.wait)
	return p.result, p.waitErr
}

func (p *Process) wait() {
	defer p.owner.forget(p.id)
	defer p.cancel()

	var rest bytes.Buffer
	if !p.eof {
		// Keep the bounded tail only; the pipe must be emptied either way.
		_, _ = io.Copy(&limitedWriter{w: &rest, n: MaxBufferedOutput}, p.stdout)
		p.eof = true
	}

	err := p.cmd.Wait()
	p.stopper.Reaped()

	res := &ExitResult{
		ExitCode:        -1,
		Stdout:          rest.Bytes(),
		Stderr:          p.stderr.Bytes(),
		StderrTruncated: p.stderr.Truncated(),
		Duration:        time.Since(p.started),
	}
	if p.cmd.ProcessState != nil {
		res.ExitCode = p.cmd.ProcessState.ExitCode()
	}
	p.result = res

	switch {
	case p.killed.Load():
		p.waitErr = fmt.Errorf("%s (pid %d): %w", p.tool, p.Pid(), ErrKilled)
	case err == nil:
	case isExitError(err):
		p.waitErr = &ToolError{
			Tool:            p.tool,
			ExitCode:        res.ExitCode,
			Stdout:          res.Stdout,
			Stderr:          res.Stderr,
			StderrTruncated: res.StderrTruncated,
		}
	default:
		p.waitErr = fmt.Errorf("waiting for %s: %w", p.tool, err)
	}

	logging.Debug("%s (pid %d) exited with status %d after %v", p.tool, p.Pid(), res.ExitCode, res.Duration)
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// limitedWriter accepts everything but keeps at most n bytes.
type limitedWriter struct {
	w io.Writer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if l.n > 0 {
		keep := p
		if len(keep) > l.n {
			keep = keep[:l.n]
		}
		written, err := l.w.Write(keep)
		l.n -= written
		if err != nil {
			return written, err
		}
	}
	return len(p), nil
}
