package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure. Its String form is sent to portal clients.
type ErrorCode int

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Status is the HTTP status returned by the backend, 0 when no response was received.
	Status  int         `json:"status,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrNetwork
	ErrTimeout
	ErrPatientLinkage
	ErrConflict
	ErrIncomplete
	ErrInvalidState
)

var codeNames = map[ErrorCode]string{
	ErrNotFound:       "resource_not_found",
	ErrBadRequest:     "validation_rejected",
	ErrUnauthorized:   "authentication_expired",
	ErrForbidden:      "forbidden",
	ErrInternal:       "server_fault",
	ErrNetwork:        "network_failure",
	ErrTimeout:        "request_timeout",
	ErrPatientLinkage: "patient_linkage_missing",
	ErrConflict:       "slot_unavailable",
	ErrIncomplete:     "incomplete_data",
	ErrInvalidState:   "invalid_state",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error_%d", int(c))
}

func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func NewNetwork(message string, err error) *AppError {
	return &AppError{
		Code:    ErrNetwork,
		Message: message,
		Err:     err,
	}
}

func NewTimeout(err error) *AppError {
	return &AppError{
		Code:    ErrTimeout,
		Message: "request timed out",
		Err:     err,
	}
}

func NewInvalidState(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidState,
		Message: message,
	}
}

func NewIncomplete(message string, err error) *AppError {
	return &AppError{
		Code:    ErrIncomplete,
		Message: message,
		Err:     err,
	}
}

// Unauthorized marks a token the backend no longer accepts.
func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: message,
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, ErrInternal otherwise.
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

func IsNotFound(err error) bool     { return HasCode(err, ErrNotFound) }
func IsUnauthorized(err error) bool { return HasCode(err, ErrUnauthorized) }

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	if appErr, ok := As(err); ok {
		return appErr.Message
	}
	return err.Error()
}
