package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"media-gateway/internal/command"
	"media-gateway/internal/fetch"
	"media-gateway/internal/transcoder"
)

// fakeProcess replays chunks and then exits with a fixed status.
type fakeProcess struct {
	mu       sync.Mutex
	chunks   [][]byte
	exitCode int
	stderr   string
	// stderrTruncated marks stderr as a kept tail.
	stderrTruncated bool
	// block makes Next wait for Kill once the chunks run out.
	block bool
	// pauses[i] delays chunk i, like a tool that goes quiet between outputs.
	pauses []time.Duration
	served int

	killed   chan struct{}
	killOnce sync.Once
	kills    int
	waits    int
}

func newFakeProcess(exitCode int, stderr string, chunks ...string) *fakeProcess {
	p := &fakeProcess{exitCode: exitCode, stderr: stderr, killed: make(chan struct{})}
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
	}
	return p
}

func (p *fakeProcess) Next() ([]byte, error) {
	p.mu.Lock()
	var pause time.Duration
	if p.served < len(p.pauses) {
		pause = p.pauses[p.served]
	}
	p.mu.Unlock()

	if pause > 0 {
		select {
		case <-time.After(pause):
		case <-p.killed:
			return nil, io.EOF
		}
	}

	p.mu.Lock()
	if len(p.chunks) > 0 {
		c := p.chunks[0]
		p.chunks = p.chunks[1:]
		p.served++
		p.mu.Unlock()
		return c, nil
	}
	block := p.block
	p.mu.Unlock()

	if block {
		<-p.killed
	}
	return nil, io.EOF
}

func (p *fakeProcess) Wait() (*transcoder.ExitResult, error) {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()

	select {
	case <-p.killed:
		return &transcoder.ExitResult{ExitCode: -1}, fmt.Errorf("ffmpeg: %w", transcoder.ErrKilled)
	default:
	}

	res := &transcoder.ExitResult{
		ExitCode:        p.exitCode,
		Stderr:          []byte(p.stderr),
		StderrTruncated: p.stderrTruncated,
	}
	if p.exitCode != 0 {
		return res, &transcoder.ToolError{
			Tool:            command.ToolFFmpeg,
			ExitCode:        p.exitCode,
			Stderr:          []byte(p.stderr),
			StderrTruncated: p.stderrTruncated,
		}
	}
	return res, nil
}

func (p *fakeProcess) Kill() {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.killOnce.Do(func() { close(p.killed) })
}

func (p *fakeProcess) killCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

func (p *fakeProcess) waitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// fakeRunner hands out a prepared process and records every call.
type fakeRunner struct {
	mu       sync.Mutex
	proc     *fakeProcess
	err      error
	calls    int
	commands []command.Command
	stdins   [][]byte
}

func (r *fakeRunner) Start(ctx context.Context, c command.Command, stdin []byte) (Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.commands = append(r.commands, c)
	r.stdins = append(r.stdins, stdin)
	if r.err != nil {
		return nil, r.err
	}
	// like exec.CommandContext, a finished request kills the process
	context.AfterFunc(ctx, r.proc.Kill)
	return r.proc, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeFetcher returns a fixed result and counts calls.
type fakeFetcher struct {
	mu          sync.Mutex
	body        []byte
	err         error
	calls       int
	credentials []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL, credential string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.credentials = append(f.credentials, credential)
	if f.err != nil {
		return nil, f.err
	}
	return &fetch.Result{Body: f.body, FinalURL: rawURL}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
