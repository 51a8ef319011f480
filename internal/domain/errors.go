package domain

import "fmt"

// Error types for consistent error handling across the engine and its adapters.

// ErrInvalidInterval indicates a tracked service type has neither a distance
// nor a time interval configured.
type ErrInvalidInterval struct {
	ServiceTypeID string
}

func (e *ErrInvalidInterval) Error() string {
	return fmt.Sprintf("invalid interval: service type %q has no distance or time interval", e.ServiceTypeID)
}

// ErrInvalidInput indicates malformed caller input (negative quantity or
// odometer, malformed date, unknown enum value).
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input on '%s': %s", e.Field, e.Message)
}

// ErrUnresolvableMatch describes a quote line that could not be matched to
// the catalog. It is never returned by the evaluator; it is recorded on the
// line and surfaces as an unknown verdict.
type ErrUnresolvableMatch struct {
	Description string
}

func (e *ErrUnresolvableMatch) Error() string {
	return fmt.Sprintf("no catalog service matches %q", e.Description)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates an invalid entitlement token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
