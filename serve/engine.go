package serve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ErrEngineUnavailable indicates no server engine is available to run the
// app. It is the typed equivalent of the underlying server library not being
// installed.
var ErrEngineUnavailable = errors.New("server engine net/http is not available: no engine factory configured")

// Config holds the settings handed to an engine when it is constructed.
type Config struct {
	// Host is the interface to bind. Empty binds all interfaces.
	Host string

	// Port is the TCP port to bind.
	Port int

	// Handler is the application the engine serves.
	Handler http.Handler

	// LogLevel is forwarded verbatim to the engine's logging configuration.
	LogLevel LogLevel

	// Logger receives the engine's structured log output.
	Logger *slog.Logger

	// GracefulTimeout is the maximum duration to wait for in-flight requests
	// to drain during shutdown.
	// Default: 30 seconds
	GracefulTimeout time.Duration
}

// DefaultConfig returns default engine configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel:        LogLevelInfo,
		GracefulTimeout: 30 * time.Second,
	}
}

// Engine is the server primitive an Instance runs on.
//
// Serve binds the listener and runs the accept loop until shutdown or
// failure. WaitForStartup suspends the caller until the listener is actually
// accepting connections, or fails if the engine failed first. Shutdown
// gracefully stops accepting and drains in-flight work; it is idempotent and
// safe to call on an engine that never served.
type Engine interface {
	Serve(ctx context.Context) error
	WaitForStartup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// EngineFactory constructs an Engine from a Config. Factories must not bind
// the port themselves; binding happens inside Engine.Serve.
type EngineFactory func(cfg Config) (Engine, error)
