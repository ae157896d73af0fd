// Package server provides the HTTP server: a Gin engine behind h2c, with a
// net/http middleware chain that covers every route including the
// event-stream endpoints.
//
// Middleware (server/middleware), outermost first:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - RequestLogger: method, path, status and duration
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: request body cap
//
// RateLimit is a Gin handler attached to individual routes.
//
// Endpoints (server/endpoint): /health, /info, /alive.
package server
