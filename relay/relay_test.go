package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/chatstream/chat"
	"github.com/kbukum/chatstream/component"
	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/redis"
	"github.com/kbukum/chatstream/resilience"
	"github.com/kbukum/chatstream/stream"
)

func msg(id string) chat.Message {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return chat.Message{ID: id, Sender: "1", Receiver: "2", Content: "hi " + id, CreatedAt: at, UpdatedAt: at}
}

type collector struct {
	mu      sync.Mutex
	batches [][]chat.Message
}

func (c *collector) handle(_ context.Context, msgs []chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, msgs)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Publish(ctx, []chat.Message{msg("a")}))
	require.NoError(t, bus.Publish(ctx, []chat.Message{msg("b")}))

	var c collector
	done := make(chan error, 1)
	go func() { done <- bus.Consume(ctx, c.handle) }()

	require.Eventually(t, func() bool { return c.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a", c.batches[0][0].ID)
	assert.Equal(t, "b", c.batches[1][0].ID)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.NoError(t, <-done)
	assert.ErrorIs(t, bus.Publish(ctx, []chat.Message{msg("c")}), ErrBusClosed)
}

func TestMemoryBusPublishBlocksUntilContextDone(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Publish(context.Background(), []chat.Message{msg("a")}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(ctx, []chat.Message{msg("b")}), context.DeadlineExceeded)
}

func TestNopBus(t *testing.T) {
	bus := NewNopBus()
	assert.Equal(t, DriverNone, bus.Name())
	require.NoError(t, bus.Publish(context.Background(), []chat.Message{msg("a")}))

	done := make(chan error, 1)
	go func() { done <- bus.Consume(context.Background(), func(context.Context, []chat.Message) {}) }()
	require.NoError(t, bus.Close())
	assert.NoError(t, <-done)
}

func TestRedisBusRoundTrip(t *testing.T) {
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Addr: mini.Addr()}, nil)
	require.NoError(t, err)
	bus := NewRedisBus(client, "", nil)
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Ping(ctx))

	var c collector
	go func() { _ = bus.Consume(ctx, c.handle) }()

	// The subscription is confirmed asynchronously; publish until it lands.
	require.Eventually(t, func() bool {
		_ = bus.Publish(ctx, []chat.Message{msg("r1")})
		return c.len() > 0
	}, 2*time.Second, 20*time.Millisecond)

	c.mu.Lock()
	got := c.batches[0][0]
	c.mu.Unlock()
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, chat.Ref("1"), got.Sender)
	assert.True(t, got.UpdatedAt.Equal(msg("r1").UpdatedAt))

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(ctx, []chat.Message{msg("r2")}), ErrBusClosed)
}

type flakyBus struct {
	NopBus
	fails int32
	calls atomic.Int32
	err   error
}

func (b *flakyBus) Name() string { return "flaky" }

func (b *flakyBus) Publish(context.Context, []chat.Message) error {
	if b.calls.Add(1) <= b.fails {
		return b.err
	}
	return nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestPublisherRetries(t *testing.T) {
	bus := &flakyBus{fails: 2, err: errors.New("boom")}
	p := NewPublisher(bus, fastRetry(), nil)
	require.NoError(t, p.Publish(context.Background(), msg("a")))
	assert.Equal(t, int32(3), bus.calls.Load())
}

func TestPublisherGivesUp(t *testing.T) {
	bus := &flakyBus{fails: 10, err: errors.New("boom")}
	p := NewPublisher(bus, fastRetry(), nil)

	err := p.Publish(context.Background(), msg("a"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePublishFailed, appErr.Code)
	assert.Equal(t, int32(3), bus.calls.Load())
}

func TestPublisherDoesNotRetryClosedBus(t *testing.T) {
	bus := &flakyBus{fails: 10, err: ErrBusClosed}
	p := NewPublisher(bus, fastRetry(), nil)
	require.Error(t, p.Publish(context.Background(), msg("a")))
	assert.Equal(t, int32(1), bus.calls.Load())
}

func TestPublisherSkipsEmptyBatch(t *testing.T) {
	bus := &flakyBus{fails: 10, err: errors.New("boom")}
	p := NewPublisher(bus, fastRetry(), nil)
	require.NoError(t, p.Publish(context.Background()))
	assert.Zero(t, bus.calls.Load())
}

func TestRelayDrainsBusIntoHub(t *testing.T) {
	hub := stream.NewHub()
	sink := stream.NewQueueSink(4)
	hub.Subscribe(sink)

	bus := NewMemoryBus(4)
	r := New(bus, hub, nil)
	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()))

	p := NewPublisher(bus, fastRetry(), nil)
	require.NoError(t, p.Publish(context.Background(), msg("m1")))

	select {
	case frame := <-sink.Frames():
		assert.Contains(t, string(frame), "event: message\n")
		assert.Contains(t, string(frame), `"id":"m1"`)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed frame")
	}

	assert.Eventually(t, func() bool { return r.Batches() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, component.StatusHealthy, r.Health(context.Background()).Status)
	assert.Equal(t, "driver=memory", r.Describe().Details)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))
}

func TestRelayHealthDegradedWhenBrokerDown(t *testing.T) {
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Addr: mini.Addr(), MaxRetries: 1}, nil)
	require.NoError(t, err)
	r := New(NewRedisBus(client, "", nil), stream.NewHub(), nil)

	assert.Equal(t, component.StatusHealthy, r.Health(context.Background()).Status)
	mini.Close()
	assert.Equal(t, component.StatusDegraded, r.Health(context.Background()).Status)
	require.NoError(t, r.Stop(context.Background()))
}

func TestConfigAndFactory(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, 256, cfg.Buffer)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	require.NoError(t, cfg.Validate())

	bus, err := NewBus(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, bus.Name())

	bus, err = NewBus(Config{Driver: DriverNone}, nil)
	require.NoError(t, err)
	assert.Equal(t, DriverNone, bus.Name())

	mini := miniredis.RunT(t)
	bus, err = NewBus(Config{Driver: DriverRedis, Redis: redis.Config{Addr: mini.Addr()}}, nil)
	require.NoError(t, err)
	assert.Equal(t, DriverRedis, bus.Name())
	require.NoError(t, bus.Close())

	_, err = NewBus(Config{Driver: "nats"}, nil)
	assert.Error(t, err)
}

func TestKafkaBusRetryable(t *testing.T) {
	b := &KafkaBus{}
	assert.True(t, b.Retryable(errors.New("dial tcp: connection refused")))
	assert.False(t, b.Retryable(errors.New("message too large")))

	retryIf := retryIfFor(b)
	assert.False(t, retryIf(ErrBusClosed))
	assert.False(t, retryIf(context.Canceled))
	assert.True(t, retryIf(errors.New("leader not available")))
}
