// Package api wires the HTTP surface: the message endpoints on the Gin
// engine and the event-stream endpoints on the root mux.
package api
