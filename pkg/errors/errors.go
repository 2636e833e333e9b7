package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Common application errors
var (
	ErrNotFound         = NewNotFoundError("resource", "resource not found")
	ErrAlreadyExists    = NewAlreadyExistsError("resource", "resource already exists")
	ErrInvalidArgument  = NewValidationError("", "invalid argument")
	ErrInternal         = NewInternalError("internal server error", nil)
	ErrUnauthenticated  = NewUnauthenticatedError("authentication credentials were not provided")
	ErrPermissionDenied = NewPermissionDeniedError("you do not have permission to perform this action")
)

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Detail is the client-facing message.
func (e *ValidationError) Detail() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// HTTPStatus returns the HTTP status for this error
func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

// GRPCStatus returns the gRPC status for this error
func (e *ValidationError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Detail is the client-facing message.
func (e *NotFoundError) Detail() string { return e.Error() }

// HTTPStatus returns the HTTP status for this error
func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }

// GRPCStatus returns the gRPC status for this error
func (e *NotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// AlreadyExistsError represents a resource already exists error.
// It maps to 400 on the REST surface, the way a unique-field serializer error does.
type AlreadyExistsError struct {
	Resource string
	Message  string
}

// NewAlreadyExistsError creates a new already exists error
func NewAlreadyExistsError(resource, message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *AlreadyExistsError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// Detail is the client-facing message.
func (e *AlreadyExistsError) Detail() string { return e.Error() }

// HTTPStatus returns the HTTP status for this error
func (e *AlreadyExistsError) HTTPStatus() int { return http.StatusBadRequest }

// GRPCStatus returns the gRPC status for this error
func (e *AlreadyExistsError) GRPCStatus() *status.Status {
	return status.New(codes.AlreadyExists, e.Error())
}

// PermissionDeniedError represents an authenticated caller acting outside its rights
type PermissionDeniedError struct {
	Message string
}

// NewPermissionDeniedError creates a new permission denied error
func NewPermissionDeniedError(message string) *PermissionDeniedError {
	return &PermissionDeniedError{Message: message}
}

// Error implements the error interface
func (e *PermissionDeniedError) Error() string { return e.Message }

// Detail is the client-facing message.
func (e *PermissionDeniedError) Detail() string { return e.Message }

// HTTPStatus returns the HTTP status for this error
func (e *PermissionDeniedError) HTTPStatus() int { return http.StatusForbidden }

// GRPCStatus returns the gRPC status for this error
func (e *PermissionDeniedError) GRPCStatus() *status.Status {
	return status.New(codes.PermissionDenied, e.Message)
}

// UnauthenticatedError represents missing or invalid credentials
type UnauthenticatedError struct {
	Message string
}

// NewUnauthenticatedError creates a new unauthenticated error
func NewUnauthenticatedError(message string) *UnauthenticatedError {
	return &UnauthenticatedError{Message: message}
}

// Error implements the error interface
func (e *UnauthenticatedError) Error() string { return e.Message }

// Detail is the client-facing message.
func (e *UnauthenticatedError) Detail() string { return e.Message }

// HTTPStatus returns the HTTP status for this error
func (e *UnauthenticatedError) HTTPStatus() int { return http.StatusUnauthorized }

// GRPCStatus returns the gRPC status for this error
func (e *UnauthenticatedError) GRPCStatus() *status.Status {
	return status.New(codes.Unauthenticated, e.Message)
}

// InternalError represents an internal server error with context
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Detail hides the wrapped cause from clients.
func (e *InternalError) Detail() string { return "An internal error occurred" }

// HTTPStatus returns the HTTP status for this error
func (e *InternalError) HTTPStatus() int { return http.StatusInternalServerError }

// GRPCStatus returns the gRPC status for this error
func (e *InternalError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, e.Message)
}

// GRPCStatuser interface for errors that can provide gRPC status
type GRPCStatuser interface {
	GRPCStatus() *status.Status
}

// HTTPError is implemented by every typed error in this package.
type HTTPError interface {
	error
	HTTPStatus() int
	Detail() string
}

// HTTPResponse resolves the status code and client-facing detail for err.
// Untyped errors are treated as internal.
func HTTPResponse(err error) (int, string) {
	var he HTTPError
	if stderrors.As(err, &he) {
		return he.HTTPStatus(), he.Detail()
	}
	return http.StatusInternalServerError, "An internal error occurred"
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return stderrors.As(err, &nf)
}
