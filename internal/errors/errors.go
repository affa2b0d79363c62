package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a Lento error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"        // 401
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrNameAlreadyExists ErrorCode = "NAME_ALREADY_EXISTS" // 409
	ErrConflict          ErrorCode = "CONFLICT"            // 409
	ErrInternal          ErrorCode = "INTERNAL"            // 500
)

// LentoError represents a structured error with code, status, and details.
type LentoError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *LentoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *LentoError {
	return &LentoError{
		Code:    ErrInvalidRequest,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
}

// NewInvalidField creates a 400 error naming the offending field.
func NewInvalidField(field, msg string) *LentoError {
	return &LentoError{
		Code:    ErrInvalidRequest,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("%s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewUnauthorized creates a 401 error for missing or invalid credentials.
func NewUnauthorized(msg string) *LentoError {
	return &LentoError{
		Code:    ErrUnauthorized,
		Status:  http.StatusUnauthorized,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing task, category or user.
func NewNotFound(kind, id string) *LentoError {
	return &LentoError{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewNameAlreadyExists creates a 409 error for name collisions within a user.
func NewNameAlreadyExists(kind, name string) *LentoError {
	return &LentoError{
		Code:    ErrNameAlreadyExists,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("%s with name %q already exists", kind, name),
		Details: map[string]any{"kind": kind, "name": name},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *LentoError {
	return &LentoError{
		Code:    ErrConflict,
		Status:  http.StatusConflict,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *LentoError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &LentoError{
		Code:    ErrInternal,
		Status:  http.StatusInternalServerError,
		Message: msg,
	}
}

// As returns err as a *LentoError, unwrapping as needed.
func As(err error) (*LentoError, bool) {
	var lErr *LentoError
	if stderrors.As(err, &lErr) {
		return lErr, true
	}
	return nil, false
}

// Is checks if an error is a LentoError with the given code.
func Is(err error, code ErrorCode) bool {
	if lErr, ok := As(err); ok {
		return lErr.Code == code
	}
	return false
}
