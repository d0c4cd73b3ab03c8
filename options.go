package udfhost

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/novadb/udfhost/appconfig"
	"github.com/novadb/udfhost/health"
	"github.com/novadb/udfhost/registry"
	"github.com/novadb/udfhost/serve"
)

// hostConfig collects construction-time settings for a Host.
type hostConfig struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	environ        appconfig.Environ
	engineFactory  serve.EngineFactory
	engineAbsent   bool
	killer         health.ProcessKiller
	startupTimeout time.Duration
	functions      []registry.Function
}

// Option configures a Host at construction time.
type Option func(*hostConfig)

// WithLogger sets the structured logger used by the host and everything it
// constructs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *hostConfig) {
		c.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for
// lifecycle spans. Defaults to a no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *hostConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider used for lifecycle
// metrics. Defaults to a no-op provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *hostConfig) {
		c.meterProvider = mp
	}
}

// WithEnviron overrides the environment lookup used for configuration
// resolution. Defaults to the process environment. Tests supply a map-backed
// lookup so cases stay isolated.
func WithEnviron(env appconfig.Environ) Option {
	return func(c *hostConfig) {
		c.environ = env
	}
}

// WithEngineFactory overrides how the underlying server engine is built.
// Passing nil models an environment where no server engine is installed:
// StartServing will fail with a dependency error instead of serving.
func WithEngineFactory(factory serve.EngineFactory) Option {
	return func(c *hostConfig) {
		c.engineFactory = factory
		c.engineAbsent = factory == nil
	}
}

// WithProcessKiller overrides the port reclamation implementation used when
// a caller requests kill-existing behavior.
func WithProcessKiller(killer health.ProcessKiller) Option {
	return func(c *hostConfig) {
		c.killer = killer
	}
}

// WithStartupTimeout bounds how long StartServing waits for a new instance
// to become ready before declaring the startup failed.
func WithStartupTimeout(d time.Duration) Option {
	return func(c *hostConfig) {
		c.startupTimeout = d
	}
}

// WithFunctions declares exported functions at construction time, as an
// alternative to calling Host.Export afterwards.
func WithFunctions(fns ...registry.Function) Option {
	return func(c *hostConfig) {
		c.functions = append(c.functions, fns...)
	}
}

// startConfig collects per-invocation settings for StartServing.
type startConfig struct {
	logLevel     serve.LogLevel
	killExisting bool
}

// StartOption configures a single StartServing invocation.
type StartOption func(*startConfig)

// WithLogLevel sets the logging verbosity forwarded verbatim to the server
// engine for this run. Defaults to info.
func WithLogLevel(level serve.LogLevel) StartOption {
	return func(c *startConfig) {
		c.logLevel = level
	}
}

// WithKillExistingServer controls forced reclamation of the configured port
// before starting: any OS-level process still bound to it is terminated,
// whether or not this host started it. Defaults to true; pass false to
// leave a foreign listener alone.
func WithKillExistingServer(kill bool) StartOption {
	return func(c *startConfig) {
		c.killExisting = kill
	}
}
