package transcoder

import (
	"errors"
	"fmt"
	"strings"

	"media-gateway/internal/command"
)

// ErrKilled is returned by Wait when the process was terminated by Kill,
// context cancellation, or Cleanup rather than exiting on its own.
var ErrKilled = errors.New("process killed")

// ErrOutputTooLarge is returned by Collect when the tool writes more than the
// caller is willing to buffer.
var ErrOutputTooLarge = errors.New("output too large")

// SpawnError means the tool could not be started at all, usually because the
// binary is missing or not executable. No output was produced.
type SpawnError struct {
	Tool command.Tool
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s (%s): %v", e.Tool, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ToolError means the tool ran and exited non-zero. Stdout and Stderr hold
// whatever diagnostic text it produced; StderrTruncated is set when only the
// tail of stderr was kept.
type ToolError struct {
	Tool            command.Tool
	ExitCode        int
	Stdout          []byte
	Stderr          []byte
	StderrTruncated bool
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(string(e.Stderr))
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, msg)
}
