// Package transcoder runs the external media tools (ffmpeg, ffprobe).
//
// It supports:
//   - Spawning a tool in its own process group with an optional stdin payload
//   - Reading stdout as an ordered sequence of bounded chunks while the tool runs
//   - Capturing stderr separately, capped, for diagnostics
//   - Reaping the process and reporting its exit status
//   - Killing the whole process group on cancellation or shutdown
//
// The tool binaries are resolved from the configured paths, defaulting to
// the system PATH.
package transcoder
