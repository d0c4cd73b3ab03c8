package udfhost

import (
	"errors"
	"fmt"
)

// Sentinel errors for common host error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrStartupFailed indicates a serving instance failed to reach the
	// ready state. The host is left idle so a retry is possible.
	ErrStartupFailed = errors.New("serving instance failed to start")

	// ErrInvalidFunction indicates an exported function was rejected by the
	// registry.
	ErrInvalidFunction = errors.New("invalid function")
)

// Error kinds categorize errors by their type.
const (
	// KindConfiguration represents errors caused by missing or malformed
	// environment settings.
	KindConfiguration = "configuration"

	// KindGateway represents the gateway-unavailable precondition failure.
	KindGateway = "gateway"

	// KindDependency represents a missing server engine dependency.
	KindDependency = "dependency"

	// KindStartup represents a serving instance that failed to become ready.
	KindStartup = "startup"

	// KindShutdown represents errors raised while stopping an instance the
	// caller explicitly asked to stop.
	KindShutdown = "shutdown"

	// KindInternal represents internal host errors.
	KindInternal = "internal"
)

// HostError is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of
// error.
//
// HostError implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
type HostError struct {
	// Op is the operation that failed (e.g., "Host.StartServing").
	Op string

	// Kind categorizes the error (e.g., KindConfiguration, KindStartup).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *HostError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("udfhost: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("udfhost: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("udfhost: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *HostError) Unwrap() error {
	return e.Err
}

// Is implements error matching for HostError, allowing comparison based on
// the underlying error or the HostError itself.
func (e *HostError) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*HostError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a new HostError with the provided context added.
func (e *HostError) WithContext(ctx map[string]any) *HostError {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewConfigurationError creates a new HostError with KindConfiguration.
func NewConfigurationError(op string, err error) *HostError {
	return &HostError{Op: op, Kind: KindConfiguration, Err: err}
}

// NewGatewayError creates a new HostError with KindGateway.
func NewGatewayError(op string, err error) *HostError {
	return &HostError{Op: op, Kind: KindGateway, Err: err}
}

// NewDependencyError creates a new HostError with KindDependency.
func NewDependencyError(op string, err error) *HostError {
	return &HostError{Op: op, Kind: KindDependency, Err: err}
}

// NewStartupError creates a new HostError with KindStartup.
func NewStartupError(op string, err error) *HostError {
	return &HostError{Op: op, Kind: KindStartup, Err: err}
}

// NewShutdownError creates a new HostError with KindShutdown.
func NewShutdownError(op string, err error) *HostError {
	return &HostError{Op: op, Kind: KindShutdown, Err: err}
}

// NewInternalError creates a new HostError with KindInternal.
func NewInternalError(op string, err error) *HostError {
	return &HostError{Op: op, Kind: KindInternal, Err: err}
}
