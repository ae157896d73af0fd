package stream

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrSinkFull is returned when a sink cannot buffer another frame.
	ErrSinkFull = errors.New("stream: sink buffer full")
	// ErrSinkClosed is returned by writes to a closed sink.
	ErrSinkClosed = errors.New("stream: sink closed")
)

// Sink is the write end of one client's stream.
type Sink interface {
	ID() string
	// Write queues a frame without blocking.
	Write(frame []byte) error
	// Close is idempotent.
	Close() error
	Closed() bool
	// Capacity reports how many more frames the sink can buffer. A negative
	// value means unknown.
	Capacity() int
}

// QueueSink is a bounded, channel-backed Sink owned by one connection.
// Writers never block; the owning connection drains Frames.
type QueueSink struct {
	id     string
	frames chan []byte
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ Sink = (*QueueSink)(nil)

// NewQueueSink creates a sink that buffers up to size frames.
func NewQueueSink(size int) *QueueSink {
	if size <= 0 {
		size = 1
	}
	return &QueueSink{
		id:     uuid.NewString(),
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

func (s *QueueSink) ID() string { return s.id }

func (s *QueueSink) Write(frame []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.frames <- frame:
		return nil
	default:
		return ErrSinkFull
	}
}

// Close marks the sink closed and releases Done. Frames already queued stay
// readable so the owner can flush them.
func (s *QueueSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *QueueSink) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *QueueSink) Capacity() int {
	return cap(s.frames) - len(s.frames)
}

// Frames returns the queue drained by the owning connection.
func (s *QueueSink) Frames() <-chan []byte { return s.frames }

// Done is closed when the sink is closed.
func (s *QueueSink) Done() <-chan struct{} { return s.done }
