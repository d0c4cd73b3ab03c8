package udfhost

import (
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/novadb/udfhost/health"
	"github.com/novadb/udfhost/registry"
	"github.com/novadb/udfhost/serve"
)

// New creates a Host: the process-wide lifecycle coordinator for UDF
// serving. Construct one per process (or per test case) and keep it; the
// host owns the single active serving instance.
//
// Example:
//
//	host, err := udfhost.New(
//	    udfhost.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Shutdown(context.Background())
//
//	info, err := host.StartServing(ctx,
//	    udfhost.WithLogLevel(serve.LogLevelInfo),
//	    udfhost.WithKillExistingServer(true),
//	)
func New(opts ...Option) (Host, error) {
	cfg := &hostConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	var tracer trace.Tracer
	if cfg.tracerProvider != nil {
		tracer = cfg.tracerProvider.Tracer("udfhost")
	} else {
		tracer = noop.NewTracerProvider().Tracer("udfhost")
	}

	var meter metric.Meter
	if cfg.meterProvider != nil {
		meter = cfg.meterProvider.Meter("udfhost")
	} else {
		meter = metricnoop.NewMeterProvider().Meter("udfhost")
	}
	metrics, err := newHostMetrics(meter)
	if err != nil {
		return nil, NewInternalError("New", err)
	}

	if cfg.environ == nil {
		cfg.environ = os.LookupEnv
	}
	if cfg.engineFactory == nil && !cfg.engineAbsent {
		cfg.engineFactory = serve.NewHTTPEngine
	}
	if cfg.killer == nil {
		cfg.killer = health.KillProcessByPort
	}
	if cfg.startupTimeout <= 0 {
		cfg.startupTimeout = serve.DefaultStartupTimeout
	}

	h := &defaultHost{
		logger:         cfg.logger,
		tracer:         tracer,
		metrics:        metrics,
		environ:        cfg.environ,
		engineFactory:  cfg.engineFactory,
		killer:         cfg.killer,
		startupTimeout: cfg.startupTimeout,
		registry:       registry.NewRegistry(cfg.logger),
		declared:       make(map[string]registry.Function),
	}

	if len(cfg.functions) > 0 {
		if err := h.Export(cfg.functions...); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// NewUDF creates an exportable function from a name, signature, and call
// implementation. It is a convenience wrapper over the registry builder.
func NewUDF(name string, sig registry.Signature, call registry.CallFunc) (registry.Function, error) {
	return registry.New(registry.NewConfig().
		SetName(name).
		SetSignature(sig).
		SetCallFunc(call))
}
