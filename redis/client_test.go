package redis

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/chatstream/security"
	"github.com/kbukum/chatstream/security/tlstest"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client, err := New(Config{Addr: mini.Addr()}, nil)
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestPing(t *testing.T) {
	client, mini := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	mini.Close()
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail after server shutdown")
	}
}

func TestPublishSubscribe(t *testing.T) {
	client, _ := newTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := client.Subscribe(ctx, "events")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	n, err := client.Publish(ctx, "events", []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 receiver, got %d", n)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != `{"a":1}` {
			t.Fatalf("unexpected payload %q", msg.Payload)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	client, _ := newTestClient(t)
	n, err := client.Publish(context.Background(), "nobody", []byte("x"))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 receivers, got %d", n)
	}
}

func TestCloseIdempotent(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	var nilClient *Client
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil Close failed: %v", err)
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Addr != "localhost:6379" || cfg.PoolSize != 10 || cfg.DialTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	cfg.MinIdleConns = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected min_idle_conns > pool_size to fail")
	}

	cfg = Config{DB: -1}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative db to fail")
	}
}

func TestTLSConnection(t *testing.T) {
	certs := tlstest.New(t)
	mini, err := miniredis.RunTLS(&tls.Config{Certificates: []tls.Certificate{certs.Leaf}})
	if err != nil {
		t.Fatalf("failed to start TLS miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	cfg := Config{Addr: mini.Addr()}
	cfg.TLS = security.TLSConfig{Enabled: true, CAFile: certs.CAFile}
	client, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping over TLS failed: %v", err)
	}

	cfg.TLS.CAFile = tlstest.GarbagePEM(t)
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected invalid CA to fail")
	}
}
