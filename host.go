package udfhost

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/novadb/udfhost/appconfig"
	"github.com/novadb/udfhost/health"
	"github.com/novadb/udfhost/registry"
	"github.com/novadb/udfhost/serve"
)

// Host coordinates the serving lifecycle for a process: it guarantees that
// at most one serving instance is active at a time, replaces the previous
// instance on every successful StartServing, and publishes the connection
// descriptor for the new one.
type Host interface {
	// StartServing resolves configuration, replaces any active serving
	// instance with a new one, waits until the new instance is accepting
	// connections, and returns its connection descriptor. It does not return
	// a result before readiness is confirmed. Concurrent invocations are
	// serialized.
	StartServing(ctx context.Context, opts ...StartOption) (*ConnectionInfo, error)

	// Export declares functions as exposable. In interactive mode each
	// StartServing run re-registers exactly the declared set; in
	// non-interactive mode the declared set is left untouched.
	Export(fns ...registry.Function) error

	// Registry returns the function registry backing the host.
	Registry() *registry.Registry

	// Serving reports whether a serving instance is currently active.
	Serving() bool

	// Shutdown stops the active serving instance, if any, and leaves the
	// host idle. It is safe to call when nothing is serving.
	Shutdown(ctx context.Context) error
}

// defaultHost is the concrete Host implementation.
type defaultHost struct {
	logger         *slog.Logger
	tracer         trace.Tracer
	metrics        *hostMetrics
	environ        appconfig.Environ
	engineFactory  serve.EngineFactory
	killer         health.ProcessKiller
	startupTimeout time.Duration
	registry       *registry.Registry

	// mu serializes whole invocations, not just reference updates:
	// interleaving teardown and startup across callers could leave two
	// ports bound.
	mu       sync.Mutex
	declared map[string]registry.Function
	order    []string
	active   *serve.Instance
}

func (h *defaultHost) Export(fns ...registry.Function) error {
	const op = "Host.Export"

	for _, f := range fns {
		if f == nil || f.Name() == "" {
			return NewInternalError(op, ErrInvalidFunction)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, f := range fns {
		if _, seen := h.declared[f.Name()]; !seen {
			h.order = append(h.order, f.Name())
		}
		h.declared[f.Name()] = f
	}
	return nil
}

func (h *defaultHost) Registry() *registry.Registry {
	return h.registry
}

func (h *defaultHost) Serving() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active != nil
}

func (h *defaultHost) StartServing(ctx context.Context, opts ...StartOption) (*ConnectionInfo, error) {
	const op = "Host.StartServing"

	startCfg := &startConfig{logLevel: serve.LogLevelInfo, killExisting: true}
	for _, opt := range opts {
		opt(startCfg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, span := h.tracer.Start(ctx, "udfhost.start_serving",
		trace.WithAttributes(attribute.String("log_level", startCfg.logLevel.String())))
	defer span.End()
	began := time.Now()

	cfg, err := appconfig.Resolve(h.environ)
	if err != nil {
		h.metrics.recordStart(ctx, outcomeConfigError, 0)
		return nil, NewConfigurationError(op, err)
	}
	if err := cfg.CheckGateway(); err != nil {
		h.metrics.recordStart(ctx, outcomeGatewayOff, 0)
		return nil, NewGatewayError(op, err)
	}

	// Tear down whatever this process is already serving. The old instance
	// is being discarded either way, so failures here are logged and never
	// abort the new start.
	if h.active != nil {
		span.AddEvent("replacing active instance")
		if err := h.active.Shutdown(ctx); err != nil {
			h.logger.Warn("shutdown of previous serving instance failed",
				slog.String("instance_id", h.active.ID()),
				slog.String("error", err.Error()),
			)
		}
		h.active = nil
	}

	// Port reclamation is independent of the in-process instance: a server
	// started by a prior, now-dead process can still hold the port. Run it
	// whenever requested.
	if startCfg.killExisting && h.killer != nil {
		span.AddEvent("reclaiming port")
		if err := h.killer(ctx, cfg.ListenPort); err != nil {
			h.logger.Warn("port reclamation failed",
				slog.Int("port", cfg.ListenPort),
				slog.String("error", err.Error()),
			)
		}
	}

	if cfg.Interactive {
		if err := h.registry.Register(h.declaredFunctions(), true); err != nil {
			h.metrics.recordStart(ctx, outcomeConfigError, 0)
			return nil, NewInternalError(op, err)
		}
	}

	app := serve.NewApplication(cfg, h.registry, h.logger)
	instance, err := serve.NewInstance(cfg, app, h.engineFactory, startCfg.logLevel, h.logger)
	if err != nil {
		if errors.Is(err, serve.ErrEngineUnavailable) {
			h.metrics.recordStart(ctx, outcomeNoEngine, 0)
			return nil, NewDependencyError(op, err)
		}
		h.metrics.recordStart(ctx, outcomeStartFailed, 0)
		return nil, NewStartupError(op, err)
	}
	instance.SetStartupTimeout(h.startupTimeout)

	if err := instance.Start(ctx); err != nil {
		h.metrics.recordStart(ctx, outcomeStartFailed, 0)
		return nil, NewStartupError(op, err)
	}
	if err := instance.WaitForStartup(ctx); err != nil {
		// The half-started instance must not survive as process state.
		if shutdownErr := instance.Shutdown(ctx); shutdownErr != nil {
			h.logger.Warn("cleanup of failed serving instance failed",
				slog.String("instance_id", instance.ID()),
				slog.String("error", shutdownErr.Error()),
			)
		}
		h.metrics.recordStart(ctx, outcomeStartFailed, 0)
		return nil, NewStartupError(op, errors.Join(ErrStartupFailed, err))
	}

	h.active = instance
	info := buildConnectionInfo(cfg, h.registry.Snapshot())

	h.metrics.recordStart(ctx, outcomeSuccess, time.Since(began))
	span.SetAttributes(
		attribute.String("instance_id", instance.ID()),
		attribute.Int("functions", len(info.Functions)),
	)
	h.logger.Info("serving instance running",
		slog.String("instance_id", instance.ID()),
		slog.String("url", info.URL),
		slog.Int("functions", len(info.Functions)),
	)
	return info, nil
}

func (h *defaultHost) Shutdown(ctx context.Context) error {
	const op = "Host.Shutdown"

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.active == nil {
		return nil
	}

	instance := h.active
	h.active = nil
	if err := instance.Shutdown(ctx); err != nil {
		return NewShutdownError(op, err)
	}
	return nil
}

// declaredFunctions returns the exported set in declaration order.
func (h *defaultHost) declaredFunctions() []registry.Function {
	fns := make([]registry.Function, 0, len(h.declared))
	for _, name := range h.order {
		fns = append(fns, h.declared[name])
	}
	return fns
}
