// Package services coordinates workflow runs and workflow definition management
// on top of the persistence layer.
package services

import (
	"errors"
	"fmt"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/persistence"
	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/workflow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrFlowIDRequired     = errors.New("flow id is required")
	ErrWorkflowNil        = errors.New("workflow cannot be nil")
	ErrTriggerDataInvalid = errors.New("trigger data does not match the trigger schema")
	ErrInvalidSchema      = errors.New("invalid trigger schema")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
// Workflows rejected by the graph validator count as validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrFlowIDRequired) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrTriggerDataInvalid) ||
		errors.Is(err, ErrInvalidSchema) ||
		errors.Is(err, persistence.ErrInvalidID) ||
		workflow.IsConfigurationError(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) || persistence.IsExecutionNotFound(err)
}

// IsConflictError checks if an error should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, persistence.ErrExecutionAlreadyExists)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
