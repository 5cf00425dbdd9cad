package startup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"

	"media-gateway/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port           string `env:"PORT" envDefault:"8000"`
	MetricsPort    string `env:"METRICS_PORT" envDefault:"9090"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`

	FFmpegPath  string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH" envDefault:"ffprobe"`

	// Workers is the number of admission gates; 0 derives it from GOMAXPROCS.
	Workers          int           `env:"GATEWAY_WORKERS" envDefault:"0"`
	Concurrency      int           `env:"GATEWAY_CONCURRENCY" envDefault:"4"`
	AdmissionTimeout time.Duration `env:"ADMISSION_TIMEOUT" envDefault:"30s"`

	FetchCeiling int64         `env:"FETCH_CEILING_BYTES" envDefault:"10485760"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	FetchMode    string        `env:"FETCH_MODE" envDefault:"auto"`

	ChunkSize          int           `env:"CHUNK_SIZE" envDefault:"65536"`
	StreamWriteTimeout time.Duration `env:"STREAM_WRITE_TIMEOUT" envDefault:"30s"`
	StreamIdleTimeout  time.Duration `env:"STREAM_IDLE_TIMEOUT" envDefault:"60s"`
	StreamMaxDuration  time.Duration `env:"STREAM_MAX_DURATION" envDefault:"0"`
	StderrLimit        int           `env:"STDERR_LIMIT_BYTES" envDefault:"1048576"`
	KillGrace          time.Duration `env:"PROCESS_KILL_GRACE" envDefault:"2s"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"0"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	TracingEnabled    bool          `env:"TRACING_ENABLED" envDefault:"false"`

	// LogLevel has no default so that DEBUG=true keeps working.
	LogLevel        string `env:"LOG_LEVEL"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"json"`
	LogHealthChecks bool   `env:"LOG_HEALTH_CHECKS" envDefault:"true"`

	MemoryLimit int64   `env:"MEMORY_LIMIT"`
	MemoryRatio float64 `env:"MEMORY_RATIO" envDefault:"0.85"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseConfig reads Config from the environment and validates it.
func ParseConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Port != "", "PORT must not be empty")
	check(!c.MetricsEnabled || c.MetricsPort != "", "METRICS_PORT must not be empty when metrics are enabled")
	check(c.FFmpegPath != "", "FFMPEG_PATH must not be empty")
	check(c.FFprobePath != "", "FFPROBE_PATH must not be empty")
	check(c.Workers >= 0, "GATEWAY_WORKERS must be >= 0, got %d", c.Workers)
	check(c.Concurrency >= 1, "GATEWAY_CONCURRENCY must be >= 1, got %d", c.Concurrency)
	check(c.AdmissionTimeout >= 0, "ADMISSION_TIMEOUT must not be negative")
	check(c.FetchCeiling > 0, "FETCH_CEILING_BYTES must be > 0, got %d", c.FetchCeiling)
	check(c.FetchTimeout >= 0, "FETCH_TIMEOUT must not be negative")
	switch c.FetchMode {
	case "auto", "always", "never":
	default:
		check(false, "FETCH_MODE must be auto, always or never, got %q", c.FetchMode)
	}
	check(c.ChunkSize > 0, "CHUNK_SIZE must be > 0, got %d", c.ChunkSize)
	check(c.StreamWriteTimeout >= 0, "STREAM_WRITE_TIMEOUT must not be negative")
	check(c.StreamIdleTimeout >= 0, "STREAM_IDLE_TIMEOUT must not be negative")
	check(c.StreamMaxDuration >= 0, "STREAM_MAX_DURATION must not be negative")
	check(c.StderrLimit > 0, "STDERR_LIMIT_BYTES must be > 0, got %d", c.StderrLimit)
	check(c.KillGrace >= 0, "PROCESS_KILL_GRACE must not be negative")
	check(c.RateLimitRequests >= 0, "RATE_LIMIT_REQUESTS must be >= 0, got %d", c.RateLimitRequests)
	check(c.RateLimitRequests == 0 || c.RateLimitWindow > 0, "RATE_LIMIT_WINDOW must be > 0 when rate limiting is enabled")
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		check(false, "LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	check(c.MemoryLimit >= 0, "MEMORY_LIMIT must not be negative")
	check(c.MemoryRatio > 0 && c.MemoryRatio <= 1, "MEMORY_RATIO must be in (0, 1], got %v", c.MemoryRatio)
	check(c.ShutdownTimeout > 0, "SHUTDOWN_TIMEOUT must be > 0")

	return errors.Join(errs...)
}

// LoadConfig parses the configuration, configures logging from it and logs
// the startup banner and configuration sections.
func LoadConfig() (*Config, error) {
	cfg, err := ParseConfig()
	if err != nil {
		return nil, err
	}

	logging.Configure(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	printBanner()
	logSystemInfo()
	LogConfig(cfg)

	return cfg, nil
}

// LogConfig logs the effective configuration.
func LogConfig(cfg *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  PORT:                 %s", cfg.Port)
	logging.Info("  METRICS_PORT:         %s", cfg.MetricsPort)
	logging.Info("  METRICS_ENABLED:      %v", cfg.MetricsEnabled)
	logging.Info("  FFMPEG_PATH:          %s", cfg.FFmpegPath)
	logging.Info("  FFPROBE_PATH:         %s", cfg.FFprobePath)
	logging.Info("  GATEWAY_WORKERS:      %s", workersString(cfg.Workers))
	logging.Info("  GATEWAY_CONCURRENCY:  %d", cfg.Concurrency)
	logging.Info("  ADMISSION_TIMEOUT:    %s", durationString(cfg.AdmissionTimeout))
	logging.Info("  FETCH_MODE:           %s", cfg.FetchMode)
	logging.Info("  FETCH_CEILING_BYTES:  %s", formatBytesStartup(cfg.FetchCeiling))
	logging.Info("  FETCH_TIMEOUT:        %s", durationString(cfg.FetchTimeout))
	logging.Info("  CHUNK_SIZE:           %s", formatBytesStartup(int64(cfg.ChunkSize)))
	logging.Info("  STREAM_WRITE_TIMEOUT: %s", durationString(cfg.StreamWriteTimeout))
	logging.Info("  STREAM_IDLE_TIMEOUT:  %s", durationString(cfg.StreamIdleTimeout))
	logging.Info("  STREAM_MAX_DURATION:  %s", durationString(cfg.StreamMaxDuration))
	logging.Info("  STDERR_LIMIT_BYTES:   %s", formatBytesStartup(int64(cfg.StderrLimit)))
	logging.Info("  PROCESS_KILL_GRACE:   %v", cfg.KillGrace)
	if cfg.RateLimitRequests > 0 {
		logging.Info("  RATE_LIMIT:           %d per %v", cfg.RateLimitRequests, cfg.RateLimitWindow)
	} else {
		logging.Info("  RATE_LIMIT:           DISABLED")
	}
	logging.Info("  TRACING_ENABLED:      %v", cfg.TracingEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:    %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())
	logging.Info("")
}

func workersString(n int) string {
	if n == 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func durationString(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}

// MemoryConfig mirrors the outcome of GOMEMLIMIT configuration for logging.
type MemoryConfig struct {
	Configured     bool
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// LogMemoryConfig logs the memory limit section.
func LogMemoryConfig(mc MemoryConfig) {
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY")
	logging.Info("------------------------------------------------------------")

	if !mc.Configured {
		logging.Info("  GOMEMLIMIT:      not configured (set MEMORY_LIMIT to enable)")
		logging.Info("")
		return
	}

	logging.Info("  Source:          %s", mc.Source)
	logging.Info("  GOMEMLIMIT:      %s", formatBytesStartup(mc.GoMemLimit))
	if mc.ContainerLimit > 0 {
		logging.Info("  Container limit: %s", formatBytesStartup(mc.ContainerLimit))
		logging.Info("  Ratio:           %.0f%%", mc.Ratio*100)
		logging.Info("  Tool headroom:   %s", formatBytesStartup(mc.ContainerLimit-mc.GoMemLimit))
	}
	logging.Info("")
}

// ToolStatus reports which external tools were found at startup.
type ToolStatus struct {
	FFmpeg         bool
	FFprobe        bool
	FFmpegVersion  string
	FFprobeVersion string
}

// Ready reports whether both tools are usable.
func (s ToolStatus) Ready() bool {
	return s.FFmpeg && s.FFprobe
}

// CheckTools verifies that ffmpeg and ffprobe can be executed.
// A missing tool is logged, not fatal: the gateway still serves and
// reports not ready.
func CheckTools(ctx context.Context, ffmpegPath, ffprobePath string) ToolStatus {
	logging.Info("------------------------------------------------------------")
	logging.Info("TOOL CHECK")
	logging.Info("------------------------------------------------------------")

	var status ToolStatus
	var err error

	if status.FFmpegVersion, err = checkTool(ctx, ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Transforms will fail until ffmpeg is installed")
	} else {
		status.FFmpeg = true
		logging.Info("  [OK] FFmpeg is available")
	}

	if status.FFprobeVersion, err = checkTool(ctx, ffprobePath); err != nil {
		logging.Warn("  FFprobe check failed: %v", err)
		logging.Warn("  /meta will fail until ffprobe is installed")
	} else {
		status.FFprobe = true
		logging.Info("  [OK] FFprobe is available")
	}

	logging.Info("")
	return status
}

// checkTool runs "<path> -version" and returns the first line of output.
func checkTool(ctx context.Context, name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", name, err)
	}

	first, _, _ := strings.Cut(string(output), "\n")
	version := strings.TrimSpace(first)
	logging.Debug("  %s version: %s", name, version)

	return version, nil
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			logging.Debug("  [%s]", group)
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup sorts routes into transforms, health probes and info endpoints.
func getRouteGroup(path string) string {
	switch strings.TrimPrefix(path, "/") {
	case "thumb", "video", "preview", "webm", "meta":
		return "transforms"
	case "health", "healthz", "livez", "readyz":
		return "health"
	case "":
		return "root"
	default:
		return "info"
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	Workers         int
	Concurrency     int
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Admission:       %d worker(s) x %d slot(s) = %d concurrent jobs",
		config.Workers, config.Concurrency, config.Workers*config.Concurrency)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
                    ___                    __
   ____ ___  ___  / (_)___ _   ____ _____ _/ /____ _      ______ ___  __
  / __ '__ \/ _ \/ / / __ '/  / __ '/ __ '/ __/ _ \ | /| / / __ '/ / / /
 / / / / / /  __/ / / /_/ /  / /_/ / /_/ / /_/  __/ |/ |/ / /_/ / /_/ /
/_/ /_/ /_/\___/_/_/\__,_/   \__, /\__,_/\__/\___/|__/|__/\__,_/\__, /
                            /____/                             /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

// formatBytesStartup formats bytes into a human-readable binary unit string.
func formatBytesStartup(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
