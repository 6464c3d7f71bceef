package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies an application error.
type ErrorCode string

const (
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeCancelled       ErrorCode = "CANCELLED"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError carries a classified error across layers. Tool handlers return
// these so the dispatcher can fold them into function responses instead of
// propagating them up the stack.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a caller may usefully retry the operation.
// Only upstream failures and timeouts qualify.
func (e *AppError) Retryable() bool {
	return e.Code == CodeUpstreamFailure || e.Code == CodeTimeout
}

func NewInvalidInputError(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Code: CodeNotFound, Message: message}
}

func NewUpstreamError(message string, cause error) *AppError {
	return &AppError{Code: CodeUpstreamFailure, Message: message, Err: cause}
}

func NewTimeoutError(message string) *AppError {
	return &AppError{Code: CodeTimeout, Message: message}
}

func NewCancelledError(message string) *AppError {
	return &AppError{Code: CodeCancelled, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message}
}

func NewInternalErrorWithCause(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: cause}
}

// Classify maps an arbitrary error to an AppError. Context errors become
// TIMEOUT/CANCELLED; everything else that is not already classified becomes
// INTERNAL_ERROR.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: CodeTimeout, Message: "timed out", Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: CodeCancelled, Message: "cancelled", Err: err}
	}
	return &AppError{Code: CodeInternal, Message: err.Error(), Err: err}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}

func IsInvalidInput(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeInvalidInput
}

func IsCancelled(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeCancelled
	}
	return errors.Is(err, context.Canceled)
}

func IsTimeout(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}
