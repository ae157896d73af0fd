package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/observability"
)

// State is the lifecycle state of a Conn.
type State int32

const (
	StateOpening State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Strategy names used in logs and metrics.
const (
	StrategyPush = "push"
	StrategyPoll = "poll"
)

// ErrKeepAliveFailed ends a connection whose pings could not be queued.
var ErrKeepAliveFailed = errors.New("stream: keep-alive failed")

// ConnConfig configures one connection.
type ConnConfig struct {
	Strategy        string
	KeepAlive       time.Duration
	MaxPingFailures int
	// Connected writes the acknowledgement event before delivery starts.
	Connected  bool
	SinkBuffer int
}

// Conn streams frames from a Source to one HTTP response.
//
// Only the Serve goroutine writes to the response, and every write first
// checks that the connection is not Closing or Closed. Each write carries a
// deadline of one keep-alive interval, so a stalled client surfaces as a
// write error. Close may be called from any goroutine; it detaches the
// source, closes the sink exactly once and cuts short a write in progress.
type Conn struct {
	id     string
	cfg    ConnConfig
	w      http.ResponseWriter
	rc     *http.ResponseController
	sink   *QueueSink
	source Source

	state     atomic.Int32
	quit      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	detach   func()
	detached bool
	serving  bool

	log     *logger.Logger
	metrics *observability.StreamMetrics
}

// NewConn prepares a connection. Response headers must already be set.
func NewConn(w http.ResponseWriter, source Source, cfg ConnConfig, opts ...Option) *Conn {
	o := buildOptions("stream.conn", opts)
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.MaxPingFailures <= 0 {
		cfg.MaxPingFailures = DefaultMaxPingFailures
	}
	if cfg.SinkBuffer <= 0 {
		cfg.SinkBuffer = DefaultSinkBuffer
	}
	id := uuid.NewString()
	c := &Conn{
		id:     id,
		cfg:    cfg,
		w:      w,
		rc:     http.NewResponseController(w),
		sink:   NewQueueSink(cfg.SinkBuffer),
		source: source,
		quit:   make(chan struct{}),
		log: o.log.WithFields(map[string]interface{}{
			logger.FieldConnID:   id,
			logger.FieldStrategy: cfg.Strategy,
		}),
		metrics: o.metrics,
	}
	c.state.Store(int32(StateOpening))
	return c
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// State returns the current lifecycle state.
func (c *Conn) State() State { return State(c.state.Load()) }

// Sink returns the connection's sink.
func (c *Conn) Sink() *QueueSink { return c.sink }

// Serve runs the connection until ctx is done, the sink is closed, a write
// fails, keep-alive gives up or Close is called. It always leaves the
// connection Closed. The returned error is nil for orderly endings.
func (c *Conn) Serve(ctx context.Context) error {
	defer c.Close()
	if !c.beginServe() {
		return nil
	}
	defer c.endServe()

	c.metrics.ConnectionOpened(ctx, c.cfg.Strategy)
	defer c.metrics.ConnectionClosed(context.WithoutCancel(ctx), c.cfg.Strategy)

	if c.cfg.Connected {
		if err := c.write(ConnectedFrame); err != nil {
			return c.writeFailed(err)
		}
	}

	detach, err := c.source.Attach(ctx, c.sink)
	if err != nil {
		return fmt.Errorf("stream: attach source: %w", err)
	}
	if !c.setDetach(detach) {
		return nil
	}
	if !c.state.CompareAndSwap(int32(StateOpening), int32(StateActive)) {
		return nil
	}
	c.log.Debug("[STREAM] Connection active")

	ticker := time.NewTicker(c.cfg.KeepAlive)
	defer ticker.Stop()
	pingFailures := 0

	for {
		// Close wins over queued frames and ticks.
		select {
		case <-c.quit:
			return nil
		default:
		}

		select {
		case <-ctx.Done():
			c.log.Debug("[STREAM] Client disconnected", map[string]interface{}{"reason": ctx.Err().Error()})
			return nil

		case <-c.quit:
			return nil

		case <-c.sink.Done():
			// The source closed the sink, e.g. after writing an error event.
			if c.State() != StateActive {
				return nil
			}
			c.log.Debug("[STREAM] Sink closed by source, flushing queued frames")
			return c.writeFailed(c.drain())

		case frame := <-c.sink.Frames():
			if err := c.write(frame); err != nil {
				return c.writeFailed(err)
			}

		case <-ticker.C:
			if err := c.ping(ctx, &pingFailures); err != nil {
				return err
			}
		}
	}
}

// ping queues a keep-alive. Consecutive failures are counted in failures;
// reaching MaxPingFailures returns ErrKeepAliveFailed.
func (c *Conn) ping(ctx context.Context, failures *int) error {
	if c.State() >= StateClosing {
		return nil
	}
	err := c.sink.Write(PingFrame)
	if err == nil {
		*failures = 0
		return nil
	}
	*failures++
	c.metrics.KeepAliveFailure(ctx)
	c.log.Warn("[STREAM] Keep-alive not queued", logger.ErrorFields(err, map[string]interface{}{
		"consecutive_failures": *failures,
	}))
	if *failures >= c.cfg.MaxPingFailures {
		return ErrKeepAliveFailed
	}
	return nil
}

// Close moves the connection to Closing, detaches the source, closes the
// sink and marks it Closed. Only the first call does anything.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.quit)

		c.mu.Lock()
		c.detached = true
		detach := c.detach
		c.detach = nil
		if c.serving {
			// Unblocks a write stuck on a stalled client.
			_ = c.rc.SetWriteDeadline(time.Now())
		}
		c.mu.Unlock()
		if detach != nil {
			detach()
		}

		_ = c.sink.Close()
		c.state.Store(int32(StateClosed))
		c.log.Debug("[STREAM] Connection closed")
	})
}

// setDetach records the source's detach func. If Close already ran it
// detaches immediately and reports false.
func (c *Conn) setDetach(detach func()) bool {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		detach()
		return false
	}
	c.detach = detach
	c.mu.Unlock()
	return true
}

// beginServe marks the response as in use by Serve. It reports false when
// the connection was closed before Serve started.
func (c *Conn) beginServe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached || c.State() != StateOpening {
		return false
	}
	c.serving = true
	return true
}

// endServe clears the write deadline and releases the response. Close no
// longer touches it afterwards.
func (c *Conn) endServe() {
	c.mu.Lock()
	c.serving = false
	_ = c.rc.SetWriteDeadline(time.Time{})
	c.mu.Unlock()
}

// drain writes frames queued before the sink closed.
func (c *Conn) drain() error {
	for {
		select {
		case frame := <-c.sink.Frames():
			if err := c.write(frame); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// writeFailed maps a write error to Serve's result. Writes refused or cut
// short because the connection is closing are an orderly end.
func (c *Conn) writeFailed(err error) error {
	if err == nil || errors.Is(err, ErrSinkClosed) || c.State() >= StateClosing {
		return nil
	}
	c.log.Debug("[STREAM] Write failed", logger.ErrorFields(err, nil))
	return err
}

// write sends one frame unless the connection is closing. The deadline
// turns a client that stopped reading into a write error.
func (c *Conn) write(frame []byte) error {
	if c.State() >= StateClosing {
		return ErrSinkClosed
	}
	_ = c.rc.SetWriteDeadline(time.Now().Add(c.cfg.KeepAlive))
	if c.State() >= StateClosing {
		return ErrSinkClosed
	}
	if _, err := c.w.Write(frame); err != nil {
		return err
	}
	return c.rc.Flush()
}
