package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`

	// RetryAfterSeconds заполняется только для RATE_LIMITED и NO_ELIGIBLE_USER
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthenticated, msg)
}

func Forbidden(msg string) error {
	return New(CodePermissionDenied, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

func RateLimited(msg string, retryAfterSeconds int) error {
	return &AppError{Code: CodeRateLimited, Message: msg, RetryAfterSeconds: retryAfterSeconds}
}

func NoEligibleUser(msg string, retryAfterSeconds int) error {
	return &AppError{Code: CodeNoEligibleUser, Message: msg, RetryAfterSeconds: retryAfterSeconds}
}

// CodeOf возвращает код ошибки, CodeUnknown для посторонних ошибок
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// RetryAfter возвращает retry-after в секундах, 0 если не применимо
func RetryAfter(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.RetryAfterSeconds
	}
	return 0
}
