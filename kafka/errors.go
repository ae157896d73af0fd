package kafka

import (
	"context"
	"errors"
	"net"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

// Substrings seen in broker and dial failures that do not surface as typed
// errors through kafka-go's writer.
var (
	connectionHints = []string{
		"connection refused", "connection reset", "broken pipe",
		"i/o timeout", "no route to host", "dial tcp",
		"broker not available", "leader not available",
	}
	transientHints = []string{"temporary", "request timed out", "not enough replicas"}
)

// IsConnectionError reports whether err means the broker could not be
// reached.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return containsAny(err, connectionHints)
}

// IsRetryableError reports whether a write that failed with err is worth
// repeating. Context cancellation never is.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	return IsConnectionError(err) || containsAny(err, transientHints)
}

func containsAny(err error, hints []string) bool {
	msg := strings.ToLower(err.Error())
	for _, h := range hints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}
