package handlers

import (
	"context"
	"io"
	"sync"

	"media-gateway/internal/command"
	"media-gateway/internal/fetch"
	"media-gateway/internal/gateway"
	"media-gateway/internal/transcoder"
)

// fakeProcess replays chunks and then exits with a fixed status.
type fakeProcess struct {
	mu       sync.Mutex
	chunks   [][]byte
	exitCode int
	stderr   string
}

func newFakeProcess(exitCode int, stderr string, chunks ...string) *fakeProcess {
	p := &fakeProcess{exitCode: exitCode, stderr: stderr}
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
	}
	return p
}

func (p *fakeProcess) Next() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.chunks) == 0 {
		return nil, io.EOF
	}
	c := p.chunks[0]
	p.chunks = p.chunks[1:]
	return c, nil
}

func (p *fakeProcess) Wait() (*transcoder.ExitResult, error) {
	res := &transcoder.ExitResult{ExitCode: p.exitCode, Stderr: []byte(p.stderr)}
	if p.exitCode != 0 {
		return res, &transcoder.ToolError{
			Tool:     command.ToolFFmpeg,
			ExitCode: p.exitCode,
			Stderr:   []byte(p.stderr),
		}
	}
	return res, nil
}

func (p *fakeProcess) Kill() {}

// fakeRunner hands out a prepared process and records every command.
type fakeRunner struct {
	mu       sync.Mutex
	proc     *fakeProcess
	commands []command.Command
	stdins   [][]byte
}

func (r *fakeRunner) Start(_ context.Context, c command.Command, stdin []byte) (gateway.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, c)
	r.stdins = append(r.stdins, stdin)
	return r.proc, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commands)
}

// fakeFetcher records the credential it was handed.
type fakeFetcher struct {
	mu          sync.Mutex
	body        []byte
	calls       int
	credentials []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL, credential string) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.credentials = append(f.credentials, credential)
	return &fetch.Result{Body: f.body, FinalURL: rawURL}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
