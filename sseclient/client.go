package sseclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kbukum/chatstream/logger"
	"github.com/kbukum/chatstream/resilience"
)

// ErrUnexpectedResponse is returned when an endpoint does not answer with
// an event stream.
var ErrUnexpectedResponse = errors.New("sseclient: unexpected response")

// Client connects to stream endpoints.
type Client struct {
	http  *http.Client
	retry resilience.RetryConfig
	log   *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. Streams are long-lived,
// so the client should not set a Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the reconnect policy used by Tail.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		http:  &http.Client{},
		retry: resilience.DefaultRetryConfig(),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("sseclient")
	return c
}

// Connect opens url and returns a reader over the event stream. The stream
// ends when ctx is done or the reader is closed.
func (c *Client) Connect(ctx context.Context, url string) (*Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sseclient: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sseclient: connect %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: content type %q", ErrUnexpectedResponse, ct)
	}
	return NewReader(resp.Body), nil
}

// Tail streams events from url into handle, reconnecting with backoff
// whenever the stream ends. It returns when ctx is done, when handle
// returns an error, or when reconnecting fails after the retry budget.
func (c *Client) Tail(ctx context.Context, url string, handle func(*Event) error) error {
	for {
		reader, err := resilience.Retry(ctx, c.retry, func() (*Reader, error) {
			return c.Connect(ctx, url)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		c.log.Debug("Stream connected", map[string]interface{}{"url": url})

		err = c.consume(reader, handle)
		reader.Close()
		if ctx.Err() != nil {
			return nil
		}
		var handlerErr *handlerError
		if errors.As(err, &handlerErr) {
			return handlerErr.err
		}
		c.log.Info("Stream ended, reconnecting", map[string]interface{}{
			"url":    url,
			"reason": errString(err),
		})
	}
}

type handlerError struct{ err error }

func (e *handlerError) Error() string { return e.err.Error() }

func (c *Client) consume(reader *Reader, handle func(*Event) error) error {
	for {
		ev, err := reader.Next()
		if err != nil {
			return err
		}
		if err := handle(ev); err != nil {
			return &handlerError{err: err}
		}
	}
}

func errString(err error) string {
	if err == nil || errors.Is(err, io.EOF) {
		return "eof"
	}
	return err.Error()
}
