package errors

import "net/http"

// ErrorCode is the stable, machine-readable half of an error response.
type ErrorCode string

const (
	ErrCodeServiceUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimited          ErrorCode = "RATE_LIMITED"
	ErrCodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	ErrCodePublishFailed        ErrorCode = "PUBLISH_FAILED"
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
	ErrCodeStreamingUnsupported ErrorCode = "STREAMING_UNSUPPORTED"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable:   {http.StatusServiceUnavailable, true},
	ErrCodeRateLimited:          {http.StatusTooManyRequests, true},
	ErrCodeDatabaseError:        {http.StatusInternalServerError, true},
	ErrCodePublishFailed:        {http.StatusBadGateway, true},
	ErrCodeInvalidInput:         {http.StatusBadRequest, false},
	ErrCodeNotFound:             {http.StatusNotFound, false},
	ErrCodeInternal:             {http.StatusInternalServerError, false},
	ErrCodeStreamingUnsupported: {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether a client may repeat a request that failed
// with code.
func IsRetryableCode(code ErrorCode) bool { return codes[code].retryable }

// StatusOf is the HTTP status for code. Unknown codes map to 500.
func StatusOf(code ErrorCode) int {
	if info, ok := codes[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
