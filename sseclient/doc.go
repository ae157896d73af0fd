// Package sseclient reads chatstream event streams. It backs the tail
// command and the end-to-end tests of the stream endpoints.
package sseclient
