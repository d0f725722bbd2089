/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	// ErrCreation indicates a rollback point could not be fully and
	// atomically captured. No index entry is written when this is returned.
	ErrCreation = errors.New("rollback point creation failed")

	// ErrNotFound indicates the requested rollback point id does not exist.
	ErrNotFound = errors.New("rollback point not found")

	// ErrRepository indicates the rollback index is unreadable, corrupt or
	// unwritable. Fatal: the repository refuses to guess at index contents.
	ErrRepository = errors.New("rollback index error")
)

// ErrorWithContext wraps an error with component and service information for
// better diagnosis of multi-service failures.
type ErrorWithContext struct {
	// Err is the original error
	Err error

	// Context provides additional information about the error
	Context string

	// Component identifies which component produced the error
	Component string

	// ServiceName is the service that was being processed (if applicable)
	ServiceName string
}

// Error implements the error interface
func (e *ErrorWithContext) Error() string {
	msg := fmt.Sprintf("[%s] %s: %v", e.Component, e.Context, e.Err)
	if e.ServiceName != "" {
		msg = fmt.Sprintf("%s (service: %s)", msg, e.ServiceName)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is and errors.As support
func (e *ErrorWithContext) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with context information
func WrapError(err error, component, context, service string) *ErrorWithContext {
	return &ErrorWithContext{
		Err:         err,
		Context:     context,
		Component:   component,
		ServiceName: service,
	}
}

// GetErrorComponent extracts the component name from an error
func GetErrorComponent(err error) string {
	var ec *ErrorWithContext
	if errors.As(err, &ec) {
		return ec.Component
	}
	return "unknown"
}

// GetErrorService extracts the service name from an error
func GetErrorService(err error) string {
	var ec *ErrorWithContext
	if errors.As(err, &ec) {
		return ec.ServiceName
	}
	return ""
}
