package udfhost

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// hostMetrics holds the OpenTelemetry metric instruments for the lifecycle
// manager. They are created once during construction and reused for every
// invocation.
type hostMetrics struct {
	// startCounter increments for each StartServing invocation, tagged with
	// its outcome.
	startCounter metric.Int64Counter

	// startupDuration records how long a successful invocation took from
	// entry to confirmed readiness, in milliseconds.
	startupDuration metric.Float64Histogram
}

// newHostMetrics creates and initializes the metric instruments.
func newHostMetrics(meter metric.Meter) (*hostMetrics, error) {
	m := &hostMetrics{}
	var err error

	m.startCounter, err = meter.Int64Counter(
		"udfhost.start.count",
		metric.WithDescription("Number of StartServing invocations by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create start counter: %w", err)
	}

	m.startupDuration, err = meter.Float64Histogram(
		"udfhost.startup.duration",
		metric.WithDescription("Time from invocation to confirmed readiness in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create startup duration histogram: %w", err)
	}

	return m, nil
}

// recordStart records one invocation outcome; duration is only meaningful
// for successful runs.
func (m *hostMetrics) recordStart(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.startCounter.Add(ctx, 1, attrs)
	if outcome == outcomeSuccess {
		m.startupDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

const (
	outcomeSuccess     = "success"
	outcomeConfigError = "configuration_error"
	outcomeGatewayOff  = "gateway_unavailable"
	outcomeNoEngine    = "engine_unavailable"
	outcomeStartFailed = "startup_failed"
)
