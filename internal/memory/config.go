package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"media-gateway/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is headroom for ffmpeg and ffprobe.
const DefaultMemoryRatio = 0.85

// Values of ConfigResult.Source.
const (
	SourceEnv       = "GOMEMLIMIT"
	SourceContainer = "MEMORY_LIMIT"
	SourceNone      = "none"
)

// ConfigResult describes what Configure did.
type ConfigResult struct {
	Configured     bool
	Source         string
	ContainerLimit int64 // 0 unless Source is SourceContainer
	GoMemLimit     int64
	Ratio          float64
}

// Headroom is the part of the container limit left outside the Go heap,
// available to child processes.
func (r ConfigResult) Headroom() int64 {
	if r.ContainerLimit <= 0 || r.GoMemLimit <= 0 {
		return 0
	}
	return r.ContainerLimit - r.GoMemLimit
}

// limitFor returns the heap limit for a container limit along with the
// ratio actually applied.
func limitFor(containerLimit int64, ratio float64) (int64, float64) {
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultMemoryRatio
	}
	return int64(float64(containerLimit) * ratio), ratio
}

// Configure sets the Go memory limit to ratio × containerLimit. Call it
// early in main.
//
// An explicit GOMEMLIMIT environment variable always wins. A zero
// containerLimit leaves the runtime default in place; a ratio outside
// (0, 1] falls back to DefaultMemoryRatio.
func Configure(containerLimit int64, ratio float64) ConfigResult {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		res := ConfigResult{Source: SourceEnv}
		if current := debug.SetMemoryLimit(-1); current > 0 && current < math.MaxInt64 {
			res.Configured = true
			res.GoMemLimit = current
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return res
	}

	if containerLimit <= 0 {
		logging.Debug("MEMORY_LIMIT not set, Go memory limit left at the runtime default")
		return ConfigResult{Source: SourceNone}
	}

	if ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %.2f out of range (0.0-1.0], using %.2f", ratio, DefaultMemoryRatio)
	}
	limit, applied := limitFor(containerLimit, ratio)
	debug.SetMemoryLimit(limit)

	res := ConfigResult{
		Configured:     true,
		Source:         SourceContainer,
		ContainerLimit: containerLimit,
		GoMemLimit:     limit,
		Ratio:          applied,
	}
	logging.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s), %s left for tool processes",
		formatBytes(limit), applied*100, formatBytes(containerLimit), formatBytes(res.Headroom()))
	return res
}

// formatBytes renders b with a binary unit, e.g. "1.5 KiB".
func formatBytes(b int64) string {
	if b < 1024 {
		return strconv.FormatInt(b, 10) + " B"
	}
	v := float64(b)
	units := "KMGTPE"
	i := -1
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(v, 'f', 1, 64) + " " + units[i:i+1] + "iB"
}
