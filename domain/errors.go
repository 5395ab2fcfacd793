package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeInvalid          ErrorCode = "INVALID"
	ErrCodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeRemoteIO         ErrorCode = "REMOTE_IO"
	ErrCodeAuditWriteFailed ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match on the code of sentinel errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// RemoteIO classifies a failed round trip to the row store. Domain errors pass through untouched.
func RemoteIO(message string, err error) error {
	if err == nil {
		return nil
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return err
	}
	return WrapError(ErrCodeRemoteIO, message, err)
}

// Common domain errors.
var (
	ErrTaskNotFound         = NewError(ErrCodeNotFound, "task not found")
	ErrActorNotFound        = NewError(ErrCodeNotFound, "actor not found")
	ErrNotificationNotFound = NewError(ErrCodeNotFound, "notification not found")
	ErrUnauthenticated      = NewError(ErrCodeUnauthenticated, "no current actor")
	ErrSessionNotFound      = NewError(ErrCodeUnauthenticated, "session not found")
	ErrInvalidToken         = NewError(ErrCodeUnauthenticated, "invalid access token")
	ErrNotAdmin             = NewError(ErrCodeUnauthorized, "administrative role required")
	ErrBadCredential        = NewError(ErrCodeUnauthorized, "credential verification failed")
	ErrInvalidPayload       = NewError(ErrCodeInvalid, "invalid payload")
	ErrEmptyPatch           = NewError(ErrCodeInvalid, "update has no fields")
	ErrInvalidProgress      = NewError(ErrCodeInvalid, "progress must be between 0 and 100")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
