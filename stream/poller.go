package stream

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/chatstream/chat"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/observability"
	"github.com/kbukum/chatstream/resilience"
)

// Watermark tracks how far one connection has read the message store.
//
// At is the newest UpdatedAt delivered so far and never moves backwards.
// Queries include records at exactly At, so seen keeps the IDs already
// delivered at that instant to avoid sending them twice.
type Watermark struct {
	At   time.Time
	seen []string
}

// NewWatermark starts at the Unix epoch, before any stored message.
func NewWatermark() Watermark {
	return Watermark{At: time.Unix(0, 0).UTC()}
}

// Seen reports whether id was delivered at the boundary instant.
func (w Watermark) Seen(id string) bool {
	return slices.Contains(w.seen, id)
}

// advance returns the watermark after delivering batch.
func (w Watermark) advance(batch []chat.Message) Watermark {
	newest, ok := chat.Newest(batch)
	if !ok || newest.UpdatedAt.Before(w.At) {
		return w
	}

	next := Watermark{At: newest.UpdatedAt}
	if newest.UpdatedAt.Equal(w.At) {
		next.seen = slices.Clone(w.seen)
	}
	for _, m := range batch {
		if m.UpdatedAt.Equal(next.At) && !slices.Contains(next.seen, m.ID) {
			next.seen = append(next.seen, m.ID)
		}
	}
	return next
}

// Poller queries the store for messages beyond a Watermark.
type Poller struct {
	finder   chat.Finder
	pageSize int
	breaker  *resilience.CircuitBreaker
	log      *logger.Logger
	metrics  *observability.StreamMetrics
}

// NewPoller creates a poller returning at most pageSize messages per call.
func NewPoller(finder chat.Finder, pageSize int, opts ...Option) *Poller {
	o := buildOptions("stream.poller", opts)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if o.breaker == nil {
		o.breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("message-store"))
	}
	return &Poller{
		finder:   finder,
		pageSize: pageSize,
		breaker:  o.breaker,
		log:      o.log,
		metrics:  o.metrics,
	}
}

// Poll fetches the newest messages at or after wm.At, leaves out those
// already delivered at the boundary and returns at most pageSize of them,
// newest first, together with the watermark to use once they are delivered.
// On error wm is returned unchanged.
func (p *Poller) Poll(ctx context.Context, wm Watermark) (Watermark, []chat.Message, error) {
	q := chat.Query{
		Filter: &chat.Filter{
			Field:    chat.FieldUpdatedAt,
			Operator: chat.OpGreaterThanEqual,
			Value:    wm.At,
		},
		Sort:  chat.SortUpdatedAtDesc,
		Limit: p.pageSize + len(wm.seen),
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanPollQuery)
	span.SetAttributes(attribute.String("watermark", wm.At.Format(time.RFC3339Nano)))

	start := time.Now()
	var records []chat.Message
	err := p.breaker.Execute(func() error {
		var err error
		records, err = p.finder.Find(ctx, q)
		return err
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		status := observability.PollError
		if errors.Is(err, resilience.ErrCircuitOpen) {
			status = observability.PollSkipped
		}
		p.metrics.Poll(ctx, status, elapsed)
		observability.EndSpan(span, err)
		return wm, nil, err
	}

	batch := make([]chat.Message, 0, len(records))
	for _, m := range records {
		if m.UpdatedAt.Before(wm.At) {
			continue
		}
		if m.UpdatedAt.Equal(wm.At) && wm.Seen(m.ID) {
			continue
		}
		batch = append(batch, m)
		if len(batch) == p.pageSize {
			break
		}
	}

	status := observability.PollOK
	if len(batch) == 0 {
		status = observability.PollEmpty
	}
	p.metrics.Poll(ctx, status, elapsed)
	span.SetAttributes(attribute.Int("messages", len(batch)))
	observability.EndSpan(span, nil)

	if len(batch) == 0 {
		return wm, nil, nil
	}
	return wm.advance(batch), batch, nil
}

// PollSource feeds a sink from a per-connection poll loop.
type PollSource struct {
	poller      *Poller
	interval    time.Duration
	maxFailures int
	log         *logger.Logger
}

var _ Source = (*PollSource)(nil)

// NewPollSource creates a source that polls every interval and gives up
// after maxFailures consecutive query failures.
func NewPollSource(poller *Poller, interval time.Duration, maxFailures int) *PollSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxFailures <= 0 {
		maxFailures = DefaultMaxQueryFailures
	}
	return &PollSource{
		poller:      poller,
		interval:    interval,
		maxFailures: maxFailures,
		log:         poller.log,
	}
}

// Attach starts the poll loop for sink. The returned detach stops the loop
// and waits for it to exit.
func (s *PollSource) Attach(ctx context.Context, sink Sink) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx, sink)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (s *PollSource) run(ctx context.Context, sink Sink) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log := s.log.WithFields(map[string]interface{}{logger.FieldSinkID: sink.ID()})
	wm := NewWatermark()
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if sink.Closed() {
			return
		}

		next, batch, err := s.poller.Poll(ctx, wm)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			log.Warn("[STREAM_POLL] Poll failed", logger.ErrorFields(err, map[string]interface{}{
				"consecutive_failures": failures,
			}))
			if failures >= s.maxFailures {
				log.Error("[STREAM_POLL] Giving up after repeated poll failures", map[string]interface{}{
					"consecutive_failures": failures,
				})
				_ = sink.Write(EncodeError(ErrorCodeStoreUnavailable))
				_ = sink.Close()
				return
			}
			continue
		}
		failures = 0
		if len(batch) == 0 {
			continue
		}

		if sink.Closed() {
			return
		}
		frame, err := EncodeMessages(batch)
		if err != nil {
			log.Error("[STREAM_POLL] Encode failed", logger.ErrorFields(err, nil))
			continue
		}
		switch err := sink.Write(frame); {
		case err == nil:
			// Advance only once queued; a full sink gets the batch again.
			wm = next
		case errors.Is(err, ErrSinkFull):
			log.Warn("[STREAM_POLL] Sink full, retrying batch next cycle", map[string]interface{}{
				"messages": len(batch),
			})
		default:
			return
		}
	}
}
