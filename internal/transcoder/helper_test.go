package transcoder

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"media-gateway/internal/command"
)

// TestHelperProcess is not a real test. It is re-executed by the other tests
// as a stand-in for ffmpeg, selected through the arguments after "--".
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "no helper mode")
		os.Exit(2)
	}

	mode, rest := args[1], args[2:]
	switch mode {
	case "emit":
		// emit <chunks> <chunkBytes> [delayMs]
		chunks, _ := strconv.Atoi(rest[0])
		size, _ := strconv.Atoi(rest[1])
		delay := 0
		if len(rest) > 2 {
			delay, _ = strconv.Atoi(rest[2])
		}
		for i := 0; i < chunks; i++ {
			_, _ = os.Stdout.Write([]byte(strings.Repeat(string(rune('a'+i%26)), size)))
			if delay > 0 {
				time.Sleep(time.Duration(delay) * time.Millisecond)
			}
		}
		os.Exit(0)
	case "fail":
		// fail <code> <stdout> <stderr>
		code, _ := strconv.Atoi(rest[0])
		fmt.Fprint(os.Stdout, rest[1])
		fmt.Fprint(os.Stderr, rest[2])
		os.Exit(code)
	case "cat":
		_, _ = io.Copy(os.Stdout, os.Stdin)
		os.Exit(0)
	case "stderr-flood":
		n, _ := strconv.Atoi(rest[0])
		fmt.Fprint(os.Stderr, strings.Repeat("x", n))
		fmt.Fprint(os.Stderr, "END")
		os.Exit(1)
	case "sleep":
		_, _ = os.Stdout.Write([]byte("started"))
		time.Sleep(time.Minute)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown helper mode %q\n", mode)
		os.Exit(2)
	}
}

// helperCommand builds a Command that re-executes the test binary in the
// given helper mode.
func helperCommand(t *testing.T, mode string, args ...string) command.Command {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	return command.Command{
		Tool: command.ToolFFmpeg,
		Args: append([]string{"-test.run=TestHelperProcess", "--", mode}, args...),
	}
}

func newHelperTranscoder(chunkSize int) *Transcoder {
	return New(Config{
		FFmpegPath:  os.Args[0],
		FFprobePath: os.Args[0],
		ChunkSize:   chunkSize,
		StderrLimit: 1024,
		KillGrace:   200 * time.Millisecond,
	})
}
