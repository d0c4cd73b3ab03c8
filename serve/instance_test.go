package serve

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novadb/udfhost/appconfig"
	"github.com/novadb/udfhost/registry"
)

// fakeEngine is a scriptable Engine for lifecycle tests.
type fakeEngine struct {
	mu            sync.Mutex
	serveCalls    int
	shutdownCalls int

	startupErr  error
	startupHang bool
	shutdownErr error
	serveErr    error

	stop chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{stop: make(chan struct{})}
}

func (e *fakeEngine) Serve(ctx context.Context) error {
	e.mu.Lock()
	e.serveCalls++
	err := e.serveErr
	e.mu.Unlock()
	if err != nil {
		return err
	}
	<-e.stop
	return nil
}

func (e *fakeEngine) WaitForStartup(ctx context.Context) error {
	if e.startupHang {
		<-ctx.Done()
		return ctx.Err()
	}
	return e.startupErr
}

func (e *fakeEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutdownCalls == 0 {
		close(e.stop)
	}
	e.shutdownCalls++
	return e.shutdownErr
}

func (e *fakeEngine) counts() (serves, shutdowns int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.serveCalls, e.shutdownCalls
}

func testConfig() appconfig.Config {
	return appconfig.Config{
		ListenPort:      8080,
		BaseURL:         "http://localhost:8080",
		BasePath:        "/api",
		ServerID:        "srv-1",
		AppToken:        "app-token",
		UserToken:       "user-token",
		GatewayEnabled:  true,
		GatewayEndpoint: "http://gw.test",
	}
}

func testApp(t *testing.T) *Application {
	t.Helper()
	return NewApplication(testConfig(), registry.NewRegistry(nil), nil)
}

func fakeFactory(engine *fakeEngine, captured *Config) EngineFactory {
	return func(cfg Config) (Engine, error) {
		if captured != nil {
			*captured = cfg
		}
		return engine, nil
	}
}

func TestNewInstanceNilFactory(t *testing.T) {
	_, err := NewInstance(testConfig(), testApp(t), nil, LogLevelInfo, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	assert.Contains(t, err.Error(), "net/http")
}

func TestNewInstanceForwardsLogLevel(t *testing.T) {
	var captured Config
	_, err := NewInstance(testConfig(), testApp(t), fakeFactory(newFakeEngine(), &captured), LogLevelCritical, nil)
	require.NoError(t, err)

	assert.Equal(t, LogLevelCritical, captured.LogLevel)
	assert.Equal(t, 8080, captured.Port)
	assert.NotNil(t, captured.Handler)
}

func TestInstanceLifecycle(t *testing.T) {
	engine := newFakeEngine()
	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(engine, nil), LogLevelInfo, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, inst.ID())
	assert.Equal(t, 8080, inst.Port())

	ctx := context.Background()
	require.NoError(t, inst.Start(ctx))
	require.NoError(t, inst.WaitForStartup(ctx))

	require.NoError(t, inst.Shutdown(ctx))

	serves, shutdowns := engine.counts()
	assert.Equal(t, 1, serves)
	assert.Equal(t, 1, shutdowns)
}

func TestInstanceStartTwice(t *testing.T) {
	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(newFakeEngine(), nil), LogLevelInfo, nil)
	require.NoError(t, err)

	require.NoError(t, inst.Start(context.Background()))
	assert.Error(t, inst.Start(context.Background()))
}

func TestInstanceShutdownIdempotent(t *testing.T) {
	engine := newFakeEngine()
	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(engine, nil), LogLevelInfo, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, inst.Start(ctx))
	require.NoError(t, inst.WaitForStartup(ctx))

	require.NoError(t, inst.Shutdown(ctx))
	require.NoError(t, inst.Shutdown(ctx))
}

func TestInstanceShutdownNeverStarted(t *testing.T) {
	engine := newFakeEngine()
	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(engine, nil), LogLevelInfo, nil)
	require.NoError(t, err)

	require.NoError(t, inst.Shutdown(context.Background()))

	_, shutdowns := engine.counts()
	assert.Equal(t, 0, shutdowns)
}

func TestInstanceStartupFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.startupErr = errors.New("bind refused")
	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(engine, nil), LogLevelInfo, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, inst.Start(ctx))

	err = inst.WaitForStartup(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind refused")
}

func TestInstanceStartupTimeout(t *testing.T) {
	engine := newFakeEngine()
	engine.startupHang = true
	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(engine, nil), LogLevelInfo, nil)
	require.NoError(t, err)
	inst.SetStartupTimeout(20 * time.Millisecond)

	ctx := context.Background()
	require.NoError(t, inst.Start(ctx))

	err = inst.WaitForStartup(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not become ready")
}

// syncBuffer guards a bytes.Buffer so the serve goroutine can log while the
// test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInstanceLogsServeFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.serveErr = errors.New("accept loop collapsed")

	var out syncBuffer
	logger := slog.New(slog.NewTextHandler(&out, nil))

	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(engine, nil), LogLevelInfo, logger)
	require.NoError(t, err)

	require.NoError(t, inst.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "terminated unexpectedly") &&
			strings.Contains(out.String(), "accept loop collapsed")
	}, time.Second, 10*time.Millisecond)
}

func TestInstanceWaitBeforeStart(t *testing.T) {
	inst, err := NewInstance(testConfig(), testApp(t), fakeFactory(newFakeEngine(), nil), LogLevelInfo, nil)
	require.NoError(t, err)

	assert.Error(t, inst.WaitForStartup(context.Background()))
}
