// Package errors provides the structured error type returned by chatstream
// handlers: a machine-readable code, a client-safe message, an HTTP status and
// a retryable flag.
package errors
