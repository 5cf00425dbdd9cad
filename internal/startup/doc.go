// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig],
// which parses [Config] with github.com/caarlos0/env and validates it.
// An invalid value is a startup error. The following variables are supported:
//
//   - PORT: HTTP server port (default: 8000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - FFMPEG_PATH, FFPROBE_PATH: Tool binaries (default: ffmpeg, ffprobe)
//   - GATEWAY_WORKERS: Number of admission gates, 0 derives min(GOMAXPROCS, 4) (default: 0)
//   - GATEWAY_CONCURRENCY: Concurrent jobs per gate (default: 4)
//   - ADMISSION_TIMEOUT: Maximum wait for a slot, 0 waits until the client leaves (default: 30s)
//   - FETCH_CEILING_BYTES: Source prefix size for pre-fetched inputs (default: 10485760)
//   - FETCH_TIMEOUT: Upstream fetch timeout (default: 30s)
//   - FETCH_MODE: auto, always or never (default: auto)
//   - CHUNK_SIZE: Maximum relay chunk size (default: 65536)
//   - STREAM_WRITE_TIMEOUT: Per-write client deadline (default: 30s)
//   - STREAM_IDLE_TIMEOUT: Maximum gap between chunks (default: 60s)
//   - STREAM_MAX_DURATION: Upper bound on one stream, 0 for none (default: 0)
//   - STDERR_LIMIT_BYTES: Captured diagnostic tail (default: 1048576)
//   - PROCESS_KILL_GRACE: SIGTERM to SIGKILL delay (default: 2s)
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: Per-IP rate limit, 0 disables (default: 0, 1m)
//   - TRACING_ENABLED: OpenTelemetry HTTP spans (default: false)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT: Container memory limit for automatic GOMEMLIMIT configuration
//   - MEMORY_RATIO: Percentage of MEMORY_LIMIT for Go heap (default: 0.85)
//   - SHUTDOWN_TIMEOUT: Graceful shutdown deadline (default: 10s)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Memory limit configuration
//   - [CheckTools]: ffmpeg and ffprobe availability
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints, admission capacity and startup duration
//   - [LogShutdownInitiated]: Graceful shutdown start
//   - [LogShutdownComplete]: Shutdown completion
//
// # Example Usage
//
//	config, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//
//	tools := startup.CheckTools(ctx, config.FFmpegPath, config.FFprobePath)
//
//	startup.LogServerStarted(startup.ServerConfig{
//	    Port:            config.Port,
//	    MetricsPort:     config.MetricsPort,
//	    MetricsEnabled:  config.MetricsEnabled,
//	    StartupDuration: time.Since(startTime),
//	})
package startup
