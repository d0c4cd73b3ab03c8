package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// httpEngine runs an application on a net/http server.
type httpEngine struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server

	ready    chan struct{}
	done     chan struct{}
	serveErr error
	closed   bool
}

// NewHTTPEngine creates the default server engine. The listener is not bound
// until Serve runs.
func NewHTTPEngine(cfg Config) (Engine, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("http engine: handler is required")
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = DefaultConfig().GracefulTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// The engine honors the requested verbosity by filtering its own output.
	logger = slog.New(newLevelHandler(logger.Handler(), cfg.LogLevel.SlogLevel()))

	return &httpEngine{
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Serve binds the configured port and runs the accept loop until Shutdown or
// failure. The readiness signal fires as soon as the listener is accepting.
func (e *httpEngine) Serve(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.finish(nil)
		return nil
	}
	e.mu.Unlock()

	addr := net.JoinHostPort(e.cfg.Host, fmt.Sprintf("%d", e.cfg.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		e.finish(fmt.Errorf("failed to listen on %s: %w", addr, err))
		return e.serveErr
	}
	defer func() { _ = listener.Close() }()

	server := &http.Server{
		Handler:           e.cfg.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	e.mu.Lock()
	// A Shutdown that raced startup wins: release the port instead of
	// serving on a listener nothing can stop.
	if e.closed {
		e.mu.Unlock()
		e.finish(nil)
		return nil
	}
	e.listener = listener
	e.server = server
	e.mu.Unlock()

	e.logger.Info("server engine listening",
		slog.String("addr", listener.Addr().String()),
		slog.String("log_level", e.cfg.LogLevel.String()),
	)
	close(e.ready)

	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	e.finish(err)
	return e.serveErr
}

// WaitForStartup suspends the caller until the listener is accepting
// connections. If the engine fails before becoming ready, that failure is
// returned instead.
func (e *httpEngine) WaitForStartup(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-e.done:
		if e.serveErr != nil {
			return e.serveErr
		}
		return fmt.Errorf("http engine: stopped before startup completed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully stops the engine, draining in-flight requests up to
// the graceful timeout before forcing the server closed. It is idempotent,
// and calling it before Serve has bound the listener prevents the bind:
// Serve observes the closed flag and returns without serving.
func (e *httpEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	server := e.server
	e.mu.Unlock()

	if server == nil {
		return nil
	}

	drainCtx, cancel := context.WithTimeout(ctx, e.cfg.GracefulTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(drainCtx); shutdownErr != nil {
		e.logger.Warn("graceful shutdown timed out, forcing stop",
			slog.String("error", shutdownErr.Error()))
		return server.Close()
	}
	return nil
}

// Port returns the port the engine is listening on. This is useful when
// using port 0 to get an available port.
func (e *httpEngine) Port() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener != nil {
		if addr, ok := e.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return e.cfg.Port
}

// finish records the terminal serve error once and releases waiters.
func (e *httpEngine) finish(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.done:
		return
	default:
	}
	e.serveErr = err
	close(e.done)
}

// levelHandler filters records below a minimum level before delegating.
type levelHandler struct {
	handler slog.Handler
	min     slog.Level
}

func newLevelHandler(h slog.Handler, min slog.Level) *levelHandler {
	return &levelHandler{handler: h, min: min}
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.handler.Enabled(ctx, level)
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{handler: h.handler.WithAttrs(attrs), min: h.min}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{handler: h.handler.WithGroup(name), min: h.min}
}
