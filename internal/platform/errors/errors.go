// Package errors provides structured errors that carry a category, a client-safe
// message and log-only context, and map onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the category of an error. It selects the HTTP status and the log level.
type ErrorType string

const (
	TypeValidation   ErrorType = "validation"    // 400
	TypeUnauthorized ErrorType = "unauthorized"  // 401
	TypeForbidden    ErrorType = "forbidden"     // 403
	TypeNotFound     ErrorType = "not_found"     // 404
	TypeConflict     ErrorType = "conflict"      // 409
	TypeRateLimited  ErrorType = "rate_limited"  // 429
	TypeInternal     ErrorType = "internal"      // 500
	TypeExternal     ErrorType = "external"      // 502
	TypeUnavailable  ErrorType = "unavailable"   // 503
)

type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeExternal:
		return http.StatusBadGateway
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause, Context: make(map[string]any)}
}

func ValidationError(message string) *Error   { return newError(TypeValidation, message, nil) }
func UnauthorizedError(message string) *Error { return newError(TypeUnauthorized, message, nil) }
func ForbiddenError(message string) *Error    { return newError(TypeForbidden, message, nil) }
func NotFoundError(message string) *Error     { return newError(TypeNotFound, message, nil) }
func ConflictError(message string) *Error     { return newError(TypeConflict, message, nil) }
func RateLimitedError(message string) *Error  { return newError(TypeRateLimited, message, nil) }

func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

func ExternalError(message string, cause error) *Error {
	return newError(TypeExternal, message, cause)
}

func UnavailableError(message string, cause error) *Error {
	return newError(TypeUnavailable, message, cause)
}

// WithCause attaches an underlying error (chainable).
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithField adds a log-only context field (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON body sent to clients. Context is never serialized;
// it may hold identifiers that belong in logs only.
type ErrorResponse struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type"`
}

func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Type: e.Type}
}

// AsStructuredError returns err's *Error if it has one, otherwise wraps it as internal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}

// IsType reports whether err carries a structured error of type t.
func IsType(err error, t ErrorType) bool {
	var structuredErr *Error
	return errors.As(err, &structuredErr) && structuredErr.Type == t
}
