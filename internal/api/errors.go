package api

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError represents a resource not found error with contextual information.
// It is returned by stores and managers when a server or profile does not exist.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "server", "profile", "secret")
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found
	ResourceName string

	// Message provides a custom error message if the default format is insufficient
	Message string
}

// Error implements the error interface for NotFoundError.
// Returns either the custom message if provided, or a formatted default message
// using the resource type and name.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Example:
//
//	def, err := store.GetServer(ctx, id)
//	if api.IsNotFound(err) {
//	    return fmt.Errorf("no server named %q", id)
//	}
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// Resource-specific not found constructors.
var (
	// NewServerNotFoundError creates a NotFoundError for a server definition.
	NewServerNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("server", id)
	}

	// NewProfileNotFoundError creates a NotFoundError for a profile.
	NewProfileNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("profile", id)
	}

	// NewProcessNotFoundError is returned when an operation needs a running
	// process that the registry does not hold.
	NewProcessNotFoundError = func(id string) *NotFoundError {
		return &NotFoundError{
			ResourceType: "process",
			ResourceName: id,
			Message:      fmt.Sprintf("server %s is not running", id),
		}
	}
)

// ErrStreamClosed is wrapped by StreamError when the peer closed its output.
var ErrStreamClosed = errors.New("stream closed")

// SpawnError is returned when a server process could not be started.
type SpawnError struct {
	ServerID string
	Command  string
	Err      error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn server %s (%s): %v", e.ServerID, e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StreamError reports a failure reading from or writing to a server's
// standard streams. Err is ErrStreamClosed when the stream reached EOF.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// TimeoutError is returned when a protocol phase did not receive its
// response in time, either because the deadline passed or because the
// attempt budget was spent on non-protocol lines.
type TimeoutError struct {
	Phase    string
	After    time.Duration
	Attempts int
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("timed out waiting for %s response after %s (%d lines read)", e.Phase, e.After, e.Attempts)
	}
	return fmt.Sprintf("no %s response within %d lines", e.Phase, e.Attempts)
}

// ProtocolError carries a JSON-RPC error object returned by the peer.
type ProtocolError struct {
	Method  string
	Code    int
	Message string
	Data    []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %s (code %d)", e.Method, e.Message, e.Code)
}

// ParseError is returned when a response could not be decoded into the
// shape the caller asked for.
type ParseError struct {
	Method string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s result: %v", e.Method, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingSecretError is returned under the fail-closed secret policy when a
// declared secret has no stored value.
type MissingSecretError struct {
	ServerID string
	Key      string
}

func (e *MissingSecretError) Error() string {
	return fmt.Sprintf("secret %s for server %s has no stored value", e.Key, e.ServerID)
}

var (
	_ error = (*NotFoundError)(nil)
	_ error = (*SpawnError)(nil)
	_ error = (*StreamError)(nil)
	_ error = (*TimeoutError)(nil)
	_ error = (*ProtocolError)(nil)
	_ error = (*ParseError)(nil)
	_ error = (*MissingSecretError)(nil)
)

// IsTimeout reports whether err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}

// IsProtocolError reports whether err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}

// IsStreamClosed reports whether err is caused by the peer closing its output.
func IsStreamClosed(err error) bool {
	return errors.Is(err, ErrStreamClosed)
}

// IsSpawnError reports whether err is or wraps a SpawnError.
func IsSpawnError(err error) bool {
	var e *SpawnError
	return errors.As(err, &e)
}
