package errors

import "fmt"

// AppError carries what the HTTP layer and the stream error frame need to
// report a failure: a stable code, a client-safe message and a status.
// Cause is logged but never sent to clients.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches cause and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds one detail entry and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New builds an error whose status and Retryable flag come from code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: StatusOf(code),
		Retryable:  IsRetryableCode(code),
	}
}

// ServiceUnavailable reports a dependency that has not started or is
// failing fast.
func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service)).
		WithDetail("service", service)
}

func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.")
}

// NotFound names the resource kind and, when known, its id.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource)).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// InvalidInput reports one bad request field.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation reports one or more failed field checks in a single message.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").WithCause(cause)
}

// StreamingUnsupported means the response writer cannot flush, so a stream
// would never reach the client.
func StreamingUnsupported() *AppError {
	return New(ErrCodeStreamingUnsupported, "Streaming is not supported by this connection.")
}

func DatabaseError(cause error) *AppError {
	return New(ErrCodeDatabaseError, "A database error occurred. Please try again.").WithCause(cause)
}

// PublishFailed wraps a relay bus failure. The message is already stored
// when this happens.
func PublishFailed(bus string, cause error) *AppError {
	return New(ErrCodePublishFailed, fmt.Sprintf("Publishing to %s failed.", bus)).
		WithDetail("bus", bus).
		WithCause(cause)
}
