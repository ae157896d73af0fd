package api

import (
	"net/http"

	"github.com/kbukum/chatstream/stream"
)

// Event-stream paths.
const (
	PushPath       = "/sse-route"
	PollPath       = "/sse-route-polling"
	CollectionPath = "/api/messages/sse"
)

// StreamPaths lists every event-stream path. Their handlers answer CORS
// themselves, so the server-wide CORS middleware must skip them.
var StreamPaths = []string{PushPath, PollPath, CollectionPath}

// Mux is where stream routes are mounted. *server.Server and
// *http.ServeMux both satisfy it.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// RegisterStreams mounts the push and polling endpoints on mux. They bypass
// Gin so the handlers write straight to the connection.
func RegisterStreams(mux Mux, gw *stream.Gateway) {
	mount := func(path string, serve http.HandlerFunc) {
		mux.Handle("GET "+path, serve)
		mux.Handle("OPTIONS "+path, http.HandlerFunc(gw.Preflight))
	}
	mount(PushPath, gw.ServePush)
	mount(PollPath, gw.ServePoll)
	mount(CollectionPath, gw.ServePoll)
}
