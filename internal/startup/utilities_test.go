package startup

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"media-gateway/internal/logging"
)

// captureLogs sends the process logger to a buffer for one test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.Configure(logging.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { logging.Configure(logging.Config{}) })
	return &buf
}

func TestFormatBytesStartup(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{10485760, "10.0 MiB"},
		{912680550, "870.4 MiB"},
		{1073741824, "1.0 GiB"},
		{123456789012, "115.0 GiB"},
		{1099511627776, "1.0 TiB"},
		{1152921504606846976, "1.0 EiB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := formatBytesStartup(tt.bytes); result != tt.expected {
				t.Errorf("formatBytesStartup(%d) = %q, expected %q", tt.bytes, result, tt.expected)
			}
		})
	}
}

func TestLogMemoryConfig(t *testing.T) {
	tests := []struct {
		name string
		mc   MemoryConfig
		want string
	}{
		{"not configured", MemoryConfig{}, "not configured"},
		{"from GOMEMLIMIT", MemoryConfig{Configured: true, Source: "GOMEMLIMIT", GoMemLimit: 536870912}, "512.0 MiB"},
		{
			"from MEMORY_LIMIT",
			MemoryConfig{Configured: true, Source: "MEMORY_LIMIT", ContainerLimit: 1073741824, GoMemLimit: 912680550, Ratio: 0.85},
			"870.4 MiB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			LogMemoryConfig(tt.mc)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("Expected log to contain %q, got:\n%s", tt.want, buf.String())
			}
		})
	}
}

func TestLogConfig(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FETCH_MODE", "never")
	t.Setenv("GATEWAY_WORKERS", "0")

	cfg, err := ParseConfig()
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	buf := captureLogs(t)
	LogConfig(cfg)

	out := buf.String()
	for _, want := range []string{"FETCH_MODE", "never", "auto"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected config log to contain %q", want)
		}
	}
}

func TestLogServerStarted(t *testing.T) {
	buf := captureLogs(t)
	LogServerStarted(ServerConfig{
		Port:            "8000",
		MetricsPort:     "9090",
		MetricsEnabled:  true,
		Workers:         2,
		Concurrency:     4,
		StartupDuration: 150 * time.Millisecond,
	})
	if !strings.Contains(buf.String(), "8 concurrent jobs") {
		t.Errorf("Expected total concurrency in the startup log, got:\n%s", buf.String())
	}

	buf.Reset()
	LogServerStarted(ServerConfig{Port: "8000"})
	if !strings.Contains(buf.String(), "DISABLED") {
		t.Error("Expected metrics to be reported as disabled")
	}
}

func TestLogShutdownSequence(_ *testing.T) {
	LogShutdownInitiated("interrupt")
	LogShutdownStep("Stopping tool processes")
	LogShutdownStepComplete("Tool processes stopped")
	LogShutdownComplete()
}

func TestWorkersString(t *testing.T) {
	if got := workersString(0); got != "auto" {
		t.Errorf("workersString(0) = %q, expected auto", got)
	}
	if got := workersString(3); got != "3" {
		t.Errorf("workersString(3) = %q, expected 3", got)
	}
}

func TestDurationString(t *testing.T) {
	if got := durationString(0); got != "none" {
		t.Errorf("durationString(0) = %q, expected none", got)
	}
	if got := durationString(30 * time.Second); got != "30s" {
		t.Errorf("durationString(30s) = %q, expected 30s", got)
	}
}

func BenchmarkFormatBytesStartup(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = formatBytesStartup(1234567890)
	}
}
