// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is added to every log line.
const ServiceName = "post-pager"

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Str("service", ServiceName).Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

type contextKey struct{}

// WithLoadID returns ctx carrying the id of a page load so that every
// component logging under ctx can be correlated.
func WithLoadID(ctx context.Context, loadID string) context.Context {
	return context.WithValue(ctx, contextKey{}, loadID)
}

// LoadID returns the page load id of ctx, or "".
func LoadID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}

// Ctx returns logger with the load_id field of ctx added, if any.
func Ctx(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if id := LoadID(ctx); id != "" {
		return logger.With().Str("load_id", id).Logger()
	}
	return logger
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Request flow (endpoint, query)
//   - Cancelled or superseded page loads
//   - Navigation rejected by a guard
//   - Comments toggles
//
// Info: Normal operation events
//   - Page rendered
//   - Total post count loaded
//   - Rate limit state updates (healthy)
//   - Startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit warnings (throttling active)
//   - Retry attempts
//   - Partial page joins
//
// Error: Error conditions requiring attention
//   - Failed listing, count or comments fetches
//   - Critical rate limit blocks
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package (api-client, aggregator, controller, ...)
//   - endpoint: API path
//   - status: HTTP status code
//   - error_class: Error classification (transport, client, server, rate_limit, decode)
//   - page: Page number of a load
//   - post_id: Post of a comments fetch or toggle
//   - load_id: Unique id of one listing -> comments -> render run
//   - generation: Navigation generation of a load
