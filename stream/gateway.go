package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/logger"
)

// Gateway serves the streaming endpoints and tracks live connections so
// they can be closed on shutdown.
type Gateway struct {
	hub  *Hub
	push Source
	poll Source
	cfg  Config
	opts []Option
	log  *logger.Logger

	mu     sync.Mutex
	conns  map[*Conn]struct{}
	closed bool
}

// NewGateway creates a gateway pushing from hub and polling through poller.
// cfg should already have defaults applied.
func NewGateway(hub *Hub, poller *Poller, cfg Config, opts ...Option) *Gateway {
	o := buildOptions("stream.gateway", opts)
	return &Gateway{
		hub:   hub,
		push:  NewHubSource(hub),
		poll:  NewPollSource(poller, cfg.PollInterval, cfg.MaxQueryFailures),
		cfg:   cfg,
		opts:  opts,
		log:   o.log,
		conns: make(map[*Conn]struct{}),
	}
}

// Hub returns the broadcast hub.
func (g *Gateway) Hub() *Hub { return g.hub }

// ServePush streams hub broadcasts to the client.
func (g *Gateway) ServePush(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, g.push, ConnConfig{
		Strategy:        StrategyPush,
		KeepAlive:       g.cfg.KeepAlive,
		MaxPingFailures: g.cfg.MaxPingFailures,
		Connected:       g.cfg.SendConnected(),
		SinkBuffer:      g.cfg.SinkBuffer,
	}, "no-cache, no-transform")
}

// ServePoll streams messages found by polling the store.
func (g *Gateway) ServePoll(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, g.poll, ConnConfig{
		Strategy:        StrategyPoll,
		KeepAlive:       g.cfg.KeepAlive,
		MaxPingFailures: g.cfg.MaxPingFailures,
		SinkBuffer:      g.cfg.SinkBuffer,
	}, "no-cache")
}

// Preflight answers CORS preflight requests for the stream endpoints.
func (g *Gateway) Preflight(w http.ResponseWriter, _ *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

// Len returns the number of live connections.
func (g *Gateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// CloseAll closes every live connection and refuses new ones.
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	g.closed = true
	conns := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	if len(conns) > 0 {
		g.log.Info("[STREAM] Closed live connections", map[string]interface{}{"connections": len(conns)})
	}
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, source Source, cfg ConnConfig, cacheControl string) {
	if _, ok := w.(http.Flusher); !ok {
		g.log.Error("[STREAM] Streaming not supported", map[string]interface{}{
			logger.FieldStrategy: cfg.Strategy,
			"remote_addr":        r.RemoteAddr,
		})
		writeError(w, apperrors.StreamingUnsupported())
		return
	}

	conn := NewConn(w, source, cfg, g.opts...)
	if !g.track(conn) {
		writeError(w, apperrors.ServiceUnavailable("stream"))
		return
	}
	defer g.untrack(conn)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		g.log.Debug("[STREAM] Could not disable write deadline", logger.ErrorFields(err, map[string]interface{}{
			logger.FieldConnID: conn.ID(),
		}))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", cacheControl)
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		conn.Close()
		return
	}

	g.log.Debug("[STREAM] Client connected", map[string]interface{}{
		logger.FieldConnID:   conn.ID(),
		logger.FieldStrategy: cfg.Strategy,
		"remote_addr":        r.RemoteAddr,
	})

	if err := conn.Serve(r.Context()); err != nil {
		g.log.Debug("[STREAM] Connection ended with error", logger.ErrorFields(err, map[string]interface{}{
			logger.FieldConnID: conn.ID(),
		}))
	}
}

func (g *Gateway) track(c *Conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[c] = struct{}{}
	return true
}

func (g *Gateway) untrack(c *Conn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	status, body := apperrors.Resolve(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
