package gateway

import (
	"context"

	"media-gateway/internal/command"
	"media-gateway/internal/fetch"
	"media-gateway/internal/transcoder"
)

// Process is a running tool invocation.
type Process interface {
	Next() ([]byte, error)
	Wait() (*transcoder.ExitResult, error)
	Kill()
}

// Runner spawns tool processes.
type Runner interface {
	Start(ctx context.Context, c command.Command, stdin []byte) (Process, error)
}

// Fetcher downloads a source prefix for tools fed through stdin.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, credential string) (*fetch.Result, error)
}

// TranscoderRunner adapts a *transcoder.Transcoder to Runner.
type TranscoderRunner struct {
	T *transcoder.Transcoder
}

// Start implements Runner.
func (r TranscoderRunner) Start(ctx context.Context, c command.Command, stdin []byte) (Process, error) {
	p, err := r.T.Start(ctx, c, stdin)
	if err != nil {
		return nil, err
	}
	return p, nil
}
