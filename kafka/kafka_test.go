package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := defaults()
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "chatstream.messages", cfg.Topic)
	assert.Equal(t, -1, cfg.RequiredAcks)
	assert.Equal(t, 10*time.Millisecond, cfg.BatchTimeout)
	assert.Empty(t, cfg.SASLMechanism)
	require.NoError(t, cfg.Validate())

	cfg = Config{EnableSASL: true}
	cfg.ApplyDefaults()
	assert.Equal(t, "PLAIN", cfg.SASLMechanism)
}

func TestConfigValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"no topic":           func(c *Config) { c.Topic = "" },
		"no brokers":         func(c *Config) { c.Brokers = nil },
		"bad sasl":           func(c *Config) { c.EnableSASL = true; c.SASLMechanism = "KERBEROS"; c.Username = "u" },
		"sasl without user":  func(c *Config) { c.EnableSASL = true; c.SASLMechanism = "PLAIN" },
		"heartbeat too long": func(c *Config) { c.HeartbeatInterval = time.Minute },
		"half a client cert": func(c *Config) { c.TLS.Enabled = true; c.TLS.CertFile = "cert.pem" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := defaults()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveCompression(t *testing.T) {
	for name, want := range map[string]kafkago.Compression{
		"gzip":   kafkago.Gzip,
		"lz4":    kafkago.Lz4,
		"zstd":   kafkago.Zstd,
		"snappy": kafkago.Snappy,
		"none":   0,
		"":       kafkago.Snappy,
		"brotli": kafkago.Snappy,
	} {
		assert.Equal(t, want, resolveCompression(name), name)
	}
}

func TestAuthMechanisms(t *testing.T) {
	for _, mech := range []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"} {
		cfg := Config{EnableSASL: true, SASLMechanism: mech, Username: "user", Password: "pass"}
		tc, m, err := cfg.auth()
		require.NoError(t, err, mech)
		assert.Nil(t, tc, mech)
		assert.NotNil(t, m, mech)
	}

	_, _, err := (&Config{EnableSASL: true, SASLMechanism: "KERBEROS"}).auth()
	assert.ErrorContains(t, err, "KERBEROS")

	_, m, err := (&Config{}).auth()
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestTransportAndDialer(t *testing.T) {
	cfg := Config{EnableSASL: true, Username: "u", Password: "p"}
	cfg.TLS.Enabled = true
	cfg.ApplyDefaults()

	tr, err := newTransport(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, tr.TLS)
	assert.NotNil(t, tr.SASL)

	d, err := newDialer(&cfg)
	require.NoError(t, err)
	assert.NotNil(t, d.TLS)
	assert.NotNil(t, d.SASLMechanism)
	assert.Equal(t, 10*time.Second, d.Timeout)

	cfg.TLS.CAFile = "/does/not/exist.pem"
	_, err = newTransport(&cfg)
	assert.Error(t, err)
}

func TestRetryableErrors(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp 127.0.0.1:9092: connection refused"), true},
		{errors.New("[7] Request Timed Out"), true},
		{errors.New("message too large"), false},
		{fmt.Errorf("write: %w", &net.OpError{Op: "dial", Err: errors.New("refused")}), true},
		{fmt.Errorf("write: %w", kafkago.LeaderNotAvailable), true},
		{fmt.Errorf("write: %w", kafkago.MessageSizeTooLarge), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableError(tt.err), "%v", tt.err)
	}
}

func TestProducerAndConsumerLifecycle(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"127.0.0.1:1"}}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "second close")

	c, err := NewConsumer(Config{Brokers: []string{"127.0.0.1:1"}}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, c.GroupID())
	require.NoError(t, c.Close())
}
