// Package resilience holds the failure-handling primitives used across
// chatstream: a circuit breaker guarding the poller's store queries, retry
// with exponential backoff for store connects and bus publishes, and token
// bucket rate limiting for the message creation endpoint.
package resilience
