package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

// Config captures options for the process-wide logger.
type Config struct {
	Level   string    // "debug", "info", "warn", "error"; empty reads LOG_LEVEL/DEBUG
	Format  string    // "json" (default) or "console"
	Output  io.Writer // defaults to os.Stderr
	Service string    // attached to every record
}

var (
	mu           sync.RWMutex
	base         zerolog.Logger
	currentLevel LogLevel
	levelOnce    sync.Once
)

// initLevel initializes the logger from environment variables on first use
func initLevel() {
	levelOnce.Do(func() {
		configure(Config{})
	})
}

// Configure replaces the process-wide logger. It is safe to call more than once;
// the last call wins.
func Configure(cfg Config) {
	levelOnce.Do(func() {})
	configure(cfg)
}

func configure(cfg Config) {
	level := parseLevel(cfg.Level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	service := cfg.Service
	if service == "" {
		service = "media-gateway"
	}

	zerolog.TimeFieldFormat = time.RFC3339

	mu.Lock()
	currentLevel = level
	base = zerolog.New(out).Level(level.zerolog()).With().
		Timestamp().
		Str("service", service).
		Logger()
	mu.Unlock()
}

// parseLevel resolves an explicit level, falling back to DEBUG and LOG_LEVEL.
func parseLevel(explicit string) LogLevel {
	if explicit == "" {
		if debug := os.Getenv("DEBUG"); debug != "" {
			switch strings.ToLower(debug) {
			case "1", "true", "yes", "on":
				return LevelDebug
			}
		}
		explicit = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(explicit) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func logger() *zerolog.Logger {
	initLevel()
	mu.RLock()
	l := base
	mu.RUnlock()
	return &l
}

// Base returns the configured zerolog logger.
func Base() zerolog.Logger {
	return *logger()
}

// With returns a child logger annotated with the given component name.
func With(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logger().Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logger().Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logger().Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logger().Error().Msgf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	logger().WithLevel(zerolog.FatalLevel).Msgf(format, args...)
	os.Exit(1)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
