package relay

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/chatstream/chat"
	apperrors "github.com/kbukum/chatstream/errors"
	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/resilience"
)

// Publisher pushes created messages onto a bus with retries.
type Publisher struct {
	bus   Bus
	retry resilience.RetryConfig
	log   *logger.Logger
}

// NewPublisher creates a publisher. A nil retry.RetryIf defers to the bus:
// ErrBusClosed is never retried, and the kafka driver only retries errors
// the broker reports as transient.
func NewPublisher(bus Bus, retry resilience.RetryConfig, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("relay.publisher")

	if retry.RetryIf == nil {
		retry.RetryIf = retryIfFor(bus)
	}
	if retry.OnRetry == nil {
		retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
			log.Warn("Publish failed, retrying", map[string]interface{}{
				"bus":     bus.Name(),
				"attempt": attempt,
				"error":   err.Error(),
				"backoff": backoff.String(),
			})
		}
	}
	return &Publisher{bus: bus, retry: retry, log: log}
}

func retryIfFor(bus Bus) func(error) bool {
	return func(err error) bool {
		if errors.Is(err, ErrBusClosed) || !resilience.DefaultRetryIf(err) {
			return false
		}
		if r, ok := bus.(interface{ Retryable(error) bool }); ok {
			return r.Retryable(err)
		}
		return true
	}
}

// Publish sends msgs. A failure is logged and returned as a PUBLISH_FAILED
// error; the messages are already stored, so pollers still see them.
func (p *Publisher) Publish(ctx context.Context, msgs ...chat.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.bus.Publish(ctx, msgs)
	})
	if err != nil {
		p.log.WithContext(ctx).Error("Publish failed", map[string]interface{}{
			"bus":   p.bus.Name(),
			"count": len(msgs),
			"error": err.Error(),
		})
		return apperrors.PublishFailed(p.bus.Name(), err)
	}
	return nil
}
