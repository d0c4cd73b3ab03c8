package serve

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/novadb/udfhost/appconfig"
)

// DefaultStartupTimeout bounds how long WaitForStartup will suspend before
// declaring the startup failed.
const DefaultStartupTimeout = 30 * time.Second

// Instance is one serving instance: a single engine bound to a single port,
// running a single application. Instances are single-use; a replaced
// instance is shut down and discarded, never restarted.
type Instance struct {
	id     string
	cfg    appconfig.Config
	engine Engine
	logger *slog.Logger

	startupTimeout time.Duration

	started bool
}

// NewInstance constructs a serving instance from resolved configuration and
// an application handler, using factory to build the underlying engine. A
// nil factory means no server engine is available and yields
// ErrEngineUnavailable.
func NewInstance(cfg appconfig.Config, app *Application, factory EngineFactory, level LogLevel, logger *slog.Logger) (*Instance, error) {
	if factory == nil {
		return nil, ErrEngineUnavailable
	}
	if app == nil {
		return nil, fmt.Errorf("serve: application is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	engineCfg := DefaultConfig()
	engineCfg.Port = cfg.ListenPort
	engineCfg.Handler = app.Handler()
	engineCfg.LogLevel = level
	engineCfg.Logger = logger

	engine, err := factory(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("serve: engine construction failed: %w", err)
	}

	return &Instance{
		id:             uuid.NewString(),
		cfg:            cfg,
		engine:         engine,
		logger:         logger,
		startupTimeout: DefaultStartupTimeout,
	}, nil
}

// SetStartupTimeout overrides the readiness wait bound. It must be called
// before Start.
func (i *Instance) SetStartupTimeout(d time.Duration) {
	if d > 0 {
		i.startupTimeout = d
	}
}

// ID returns the unique identifier of this instance.
func (i *Instance) ID() string {
	return i.id
}

// Port returns the port the instance was configured to bind.
func (i *Instance) Port() int {
	return i.cfg.ListenPort
}

// Start schedules the engine's accept loop and returns immediately. It does
// not wait for the listener to be ready; call WaitForStartup before treating
// the instance as serving.
func (i *Instance) Start(ctx context.Context) error {
	if i.started {
		return fmt.Errorf("serve: instance %s already started", i.id)
	}
	i.started = true

	i.logger.Info("starting serving instance",
		slog.String("instance_id", i.id),
		slog.Int("port", i.cfg.ListenPort),
	)

	go func() {
		if err := i.engine.Serve(ctx); err != nil {
			i.logger.Error("serving instance terminated unexpectedly",
				slog.String("instance_id", i.id),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// WaitForStartup suspends the caller until the instance is accepting
// connections. The wait is bounded; exhaustion is reported as a startup
// failure rather than blocking the caller indefinitely.
func (i *Instance) WaitForStartup(ctx context.Context) error {
	if !i.started {
		return fmt.Errorf("serve: instance %s was never started", i.id)
	}

	waitCtx, cancel := context.WithTimeout(ctx, i.startupTimeout)
	defer cancel()

	if err := i.engine.WaitForStartup(waitCtx); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("serve: instance %s did not become ready within %s", i.id, i.startupTimeout)
		}
		return fmt.Errorf("serve: instance %s failed to start: %w", i.id, err)
	}

	i.logger.Info("serving instance ready",
		slog.String("instance_id", i.id),
		slog.Int("port", i.cfg.ListenPort),
	)
	return nil
}

// Shutdown gracefully stops the instance and releases its port. It is
// idempotent and safe to call on an instance that never started.
func (i *Instance) Shutdown(ctx context.Context) error {
	if !i.started {
		return nil
	}

	if err := i.engine.Shutdown(ctx); err != nil {
		return fmt.Errorf("serve: shutdown of instance %s failed: %w", i.id, err)
	}

	i.logger.Info("serving instance stopped", slog.String("instance_id", i.id))
	return nil
}
