// Package domain defines core types, interfaces, and errors for the query gateway.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Stable error kinds surfaced to callers and recorded in the audit trail.
const (
	KindUnclassifiableQuery   = "unclassifiable_query"
	KindRoleNotAllowed        = "role_not_allowed_on_server"
	KindQueryTypeNotPermitted = "query_type_not_permitted_for_role"
	KindServerNotAuthorized   = "server_not_authorized_for_query"
	KindDuplicateFingerprint  = "duplicate_fingerprint"
	KindRateLimitExceeded     = "rate_limit_exceeded"
	KindQueryExecutionError   = "query_execution_error"
	KindQueryTimeout          = "query_timeout"
	KindConnectionUnavailable = "connection_unavailable"
	KindNotFound              = "not_found"
	KindValidation            = "validation"
	KindInternal              = "internal"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnclassifiableQueryError indicates the leading SQL keyword was not recognized.
// Rejected before any backend contact.
type UnclassifiableQueryError struct {
	Message string
}

func (e *UnclassifiableQueryError) Error() string { return e.Message }

// RoleNotAllowedError indicates the caller's role is not a member of the
// target server's allowed roles.
type RoleNotAllowedError struct {
	Message string
}

func (e *RoleNotAllowedError) Error() string { return e.Message }

// QueryTypeNotPermittedError indicates the query type is outside the role's
// permitted set.
type QueryTypeNotPermittedError struct {
	Message string
}

func (e *QueryTypeNotPermittedError) Error() string { return e.Message }

// ServerNotAuthorizedError indicates a whitelisted query was submitted
// against a server outside its server restrictions.
type ServerNotAuthorizedError struct {
	Message string
}

func (e *ServerNotAuthorizedError) Error() string { return e.Message }

// DuplicateFingerprintError indicates an active whitelist entry already
// exists for the fingerprint.
type DuplicateFingerprintError struct {
	Message string
}

func (e *DuplicateFingerprintError) Error() string { return e.Message }

// RateLimitError indicates the caller exceeded its request window.
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
}

func (e *RateLimitError) Error() string { return e.Message }

// ExecutionError wraps any backend failure with a normalized message.
// Backend-specific error types never cross this boundary.
type ExecutionError struct {
	BackendMessage string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %s", e.BackendMessage)
}

// TimeoutError indicates the backend statement exceeded the caller's timeout.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }

// ConnectionUnavailableError indicates the pool is exhausted or the backend
// is unreachable.
type ConnectionUnavailableError struct {
	Message string
}

func (e *ConnectionUnavailableError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnclassifiable creates an UnclassifiableQueryError with a formatted message.
func ErrUnclassifiable(format string, args ...interface{}) *UnclassifiableQueryError {
	return &UnclassifiableQueryError{Message: fmt.Sprintf(format, args...)}
}

// ErrRoleNotAllowed creates a RoleNotAllowedError with a formatted message.
func ErrRoleNotAllowed(format string, args ...interface{}) *RoleNotAllowedError {
	return &RoleNotAllowedError{Message: fmt.Sprintf(format, args...)}
}

// ErrQueryTypeNotPermitted creates a QueryTypeNotPermittedError with a formatted message.
func ErrQueryTypeNotPermitted(format string, args ...interface{}) *QueryTypeNotPermittedError {
	return &QueryTypeNotPermittedError{Message: fmt.Sprintf(format, args...)}
}

// ErrServerNotAuthorized creates a ServerNotAuthorizedError with a formatted message.
func ErrServerNotAuthorized(format string, args ...interface{}) *ServerNotAuthorizedError {
	return &ServerNotAuthorizedError{Message: fmt.Sprintf(format, args...)}
}

// ErrDuplicateFingerprint creates a DuplicateFingerprintError with a formatted message.
func ErrDuplicateFingerprint(format string, args ...interface{}) *DuplicateFingerprintError {
	return &DuplicateFingerprintError{Message: fmt.Sprintf(format, args...)}
}

// ErrRateLimit creates a RateLimitError with a retry-after timestamp.
func ErrRateLimit(retryAfter time.Time, format string, args ...interface{}) *RateLimitError {
	return &RateLimitError{Message: fmt.Sprintf(format, args...), RetryAfter: retryAfter}
}

// ErrExecution creates an ExecutionError from a backend message.
func ErrExecution(format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{BackendMessage: fmt.Sprintf(format, args...)}
}

// ErrTimeout creates a TimeoutError with a formatted message.
func ErrTimeout(format string, args ...interface{}) *TimeoutError {
	return &TimeoutError{Message: fmt.Sprintf(format, args...)}
}

// ErrConnectionUnavailable creates a ConnectionUnavailableError with a formatted message.
func ErrConnectionUnavailable(format string, args ...interface{}) *ConnectionUnavailableError {
	return &ConnectionUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrorKind maps an error to its stable kind string.
func ErrorKind(err error) string {
	var unclassifiable *UnclassifiableQueryError
	var roleNotAllowed *RoleNotAllowedError
	var typeNotPermitted *QueryTypeNotPermittedError
	var serverNotAuthorized *ServerNotAuthorizedError
	var duplicate *DuplicateFingerprintError
	var rateLimit *RateLimitError
	var execution *ExecutionError
	var timeout *TimeoutError
	var connUnavailable *ConnectionUnavailableError
	var notFound *NotFoundError
	var validation *ValidationError

	switch {
	case errors.As(err, &unclassifiable):
		return KindUnclassifiableQuery
	case errors.As(err, &roleNotAllowed):
		return KindRoleNotAllowed
	case errors.As(err, &typeNotPermitted):
		return KindQueryTypeNotPermitted
	case errors.As(err, &serverNotAuthorized):
		return KindServerNotAuthorized
	case errors.As(err, &duplicate):
		return KindDuplicateFingerprint
	case errors.As(err, &rateLimit):
		return KindRateLimitExceeded
	case errors.As(err, &execution):
		return KindQueryExecutionError
	case errors.As(err, &timeout):
		return KindQueryTimeout
	case errors.As(err, &connUnavailable):
		return KindConnectionUnavailable
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &validation):
		return KindValidation
	default:
		return KindInternal
	}
}
