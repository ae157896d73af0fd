package stream

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/chatstream/chat"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/observability"
)

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// BroadcastResult counts what happened to each subscriber during one pass.
type BroadcastResult struct {
	Delivered int
	// Dropped sinks were alive but had no room; they stay subscribed.
	Dropped int
	// Failed sinks were closed or rejected the write; they are pruned.
	Failed int
}

// Hub fans message batches out to every subscribed sink.
//
// The registry is guarded by mu and broadcasts iterate a snapshot, so
// subscriptions may change during a pass. Passes themselves are serialized
// by sendMu so every sink sees batches in the order Broadcast was called.
type Hub struct {
	mu     sync.RWMutex
	sinks  map[string]Sink
	closed bool

	sendMu sync.Mutex

	log     *logger.Logger
	metrics *observability.StreamMetrics
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	o := buildOptions("stream.hub", opts)
	return &Hub{
		sinks:   make(map[string]Sink),
		log:     o.log,
		metrics: o.metrics,
	}
}

// Subscribe registers sink for future broadcasts. Subscribing an already
// subscribed sink changes nothing. A nil sink, including a typed nil
// pointer, is logged and ignored. After
// Close the sink is closed immediately instead of being registered.
func (h *Hub) Subscribe(sink Sink) Unsubscribe {
	if isNilSink(sink) {
		h.log.Error("[STREAM_HUB] Rejected nil sink subscription")
		return func() {}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = sink.Close()
		return func() {}
	}
	h.sinks[sink.ID()] = sink
	total := len(h.sinks)
	h.mu.Unlock()

	h.log.Debug("[STREAM_HUB] Sink subscribed", map[string]interface{}{
		logger.FieldSinkID: sink.ID(),
		"subscribers":      total,
	})

	var once sync.Once
	return func() {
		once.Do(func() { h.Unsubscribe(sink) })
	}
}

// Unsubscribe removes sink if it is registered.
func (h *Hub) Unsubscribe(sink Sink) {
	if isNilSink(sink) {
		return
	}
	h.mu.Lock()
	current, ok := h.sinks[sink.ID()]
	if ok && current == sink {
		delete(h.sinks, sink.ID())
	}
	total := len(h.sinks)
	h.mu.Unlock()

	if ok {
		h.log.Debug("[STREAM_HUB] Sink unsubscribed", map[string]interface{}{
			logger.FieldSinkID: sink.ID(),
			"subscribers":      total,
		})
	}
}

// Broadcast sends msgs to every subscribed sink as one message event. An
// empty batch is a no-op. Sinks found closed or failing are pruned after
// the pass; sinks without buffer room are skipped and kept.
func (h *Hub) Broadcast(ctx context.Context, msgs []chat.Message) BroadcastResult {
	var result BroadcastResult
	if len(msgs) == 0 {
		return result
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	snapshot := h.snapshot()
	if len(snapshot) == 0 {
		return result
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanBroadcast)
	span.SetAttributes(
		attribute.Int("messages", len(msgs)),
		attribute.Int("subscribers", len(snapshot)),
	)

	frame, err := EncodeMessages(msgs)
	if err != nil {
		h.log.Error("[STREAM_HUB] Broadcast encode failed", logger.ErrorFields(err, nil))
		observability.EndSpan(span, err)
		return result
	}

	var dead []Sink
	for _, sink := range snapshot {
		if sink.Closed() {
			dead = append(dead, sink)
			result.Failed++
			continue
		}
		if sink.Capacity() == 0 {
			result.Dropped++
			continue
		}
		switch err := safeWrite(sink, frame); {
		case err == nil:
			result.Delivered++
		case errors.Is(err, ErrSinkFull):
			result.Dropped++
		default:
			dead = append(dead, sink)
			result.Failed++
		}
	}

	if len(dead) > 0 {
		h.prune(dead)
	}

	h.metrics.Delivery(ctx, observability.DeliveryOK, result.Delivered)
	h.metrics.Delivery(ctx, observability.DeliveryDropped, result.Dropped)
	h.metrics.Delivery(ctx, observability.DeliveryFailed, result.Failed)
	span.SetAttributes(
		attribute.Int("delivered", result.Delivered),
		attribute.Int("dropped", result.Dropped),
		attribute.Int("failed", result.Failed),
	)
	observability.EndSpan(span, nil)

	h.log.Debug("[STREAM_HUB] Broadcast sent", map[string]interface{}{
		"messages":  len(msgs),
		"delivered": result.Delivered,
		"dropped":   result.Dropped,
		"failed":    result.Failed,
		"data_size": len(frame),
	})
	return result
}

// Len returns the number of subscribed sinks.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}

// Close closes every subscribed sink and empties the registry. Later
// subscriptions are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	sinks := make([]Sink, 0, len(h.sinks))
	for id, sink := range h.sinks {
		sinks = append(sinks, sink)
		delete(h.sinks, id)
	}
	h.closed = true
	h.mu.Unlock()

	for _, sink := range sinks {
		_ = sink.Close()
	}
	if len(sinks) > 0 {
		h.log.Debug("[STREAM_HUB] Hub closed", map[string]interface{}{"closed_sinks": len(sinks)})
	}
}

func (h *Hub) snapshot() []Sink {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Sink, 0, len(h.sinks))
	for _, sink := range h.sinks {
		out = append(out, sink)
	}
	return out
}

func (h *Hub) prune(dead []Sink) {
	h.mu.Lock()
	for _, sink := range dead {
		if current, ok := h.sinks[sink.ID()]; ok && current == sink {
			delete(h.sinks, sink.ID())
		}
	}
	total := len(h.sinks)
	h.mu.Unlock()

	h.log.Debug("[STREAM_HUB] Pruned dead sinks", map[string]interface{}{
		"pruned":      len(dead),
		"subscribers": total,
	})
}

func isNilSink(sink Sink) bool {
	if sink == nil {
		return true
	}
	switch v := reflect.ValueOf(sink); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// safeWrite turns a panicking sink into a failed one.
func safeWrite(sink Sink, frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stream: sink %s panicked: %v", sink.ID(), r)
		}
	}()
	return sink.Write(frame)
}
