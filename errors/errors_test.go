package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesStatusAndRetryable(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		status    int
		retryable bool
	}{
		{ErrCodeDatabaseError, http.StatusInternalServerError, true},
		{ErrCodePublishFailed, http.StatusBadGateway, true},
		{ErrCodeInvalidInput, http.StatusBadRequest, false},
		{ErrCodeNotFound, http.StatusNotFound, false},
		{ErrorCode("MADE_UP"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		e := New(tt.code, "x")
		assert.Equal(t, tt.status, e.HTTPStatus, tt.code)
		assert.Equal(t, tt.retryable, e.Retryable, tt.code)
	}
}

func TestNotFoundDetails(t *testing.T) {
	e := NotFound("message", "123")
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
	assert.Equal(t, map[string]any{"resource": "message", "id": "123"}, e.Details)
	assert.NotContains(t, NotFound("message", "").Details, "id")
}

func TestErrorStringAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	e := DatabaseError(cause)
	assert.Contains(t, e.Error(), "DATABASE_ERROR")
	assert.Contains(t, e.Error(), "disk full")
	assert.True(t, stderrors.Is(e, cause))

	assert.Equal(t, "RATE_LIMITED: Too many requests. Please wait a moment and try again.", RateLimited().Error())
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create message: %w", InvalidInput("content", "too long"))
	e, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "content", e.Details["field"])

	_, ok = AsAppError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	status, body := Resolve(RateLimited())
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, ErrCodeRateLimited, body.Error.Code)
	assert.True(t, body.Error.Retryable)

	status, body = Resolve(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternal, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "boom")

	status, _ = Resolve(&AppError{Code: ErrCodeNotFound})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWithDetail(t *testing.T) {
	e := ServiceUnavailable("message store").WithDetail("attempts", 3)
	assert.Equal(t, "message store", e.Details["service"])
	assert.Equal(t, 3, e.Details["attempts"])
	assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus)
}

func TestPublishFailed(t *testing.T) {
	cause := fmt.Errorf("broker gone")
	e := PublishFailed("kafka", cause)
	assert.Equal(t, http.StatusBadGateway, e.HTTPStatus)
	assert.Equal(t, "kafka", e.Details["bus"])
	assert.ErrorIs(t, e, cause)
}
