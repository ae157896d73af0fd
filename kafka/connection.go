package kafka

import (
	"crypto/tls"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// auth resolves the TLS and SASL settings shared by the writer transport
// and the reader dialer. Either may be nil.
func (c *Config) auth() (*tls.Config, sasl.Mechanism, error) {
	tc, err := c.TLS.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("kafka: %w", err)
	}
	if !c.EnableSASL {
		return tc, nil, nil
	}
	var m sasl.Mechanism
	switch c.SASLMechanism {
	case "PLAIN":
		m = plain.Mechanism{Username: c.Username, Password: c.Password}
	case "SCRAM-SHA-256":
		m, err = scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		m, err = scram.Mechanism(scram.SHA512, c.Username, c.Password)
	default:
		err = fmt.Errorf("unsupported SASL mechanism %q", c.SASLMechanism)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("kafka: sasl: %w", err)
	}
	return tc, m, nil
}

func newTransport(cfg *Config) (*kafkago.Transport, error) {
	tc, m, err := cfg.auth()
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{
		DialTimeout: cfg.DialTimeout,
		IdleTimeout: cfg.IdleTimeout,
		TLS:         tc,
		SASL:        m,
	}, nil
}

func newDialer(cfg *Config) (*kafkago.Dialer, error) {
	tc, m, err := cfg.auth()
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       cfg.DialTimeout,
		DualStack:     true,
		TLS:           tc,
		SASLMechanism: m,
	}, nil
}

var codecs = map[string]kafkago.Compression{
	"none": 0,
	"gzip": kafkago.Gzip,
	"lz4":  kafkago.Lz4,
	"zstd": kafkago.Zstd,
}

// resolveCompression maps a config name to a codec. Unknown names get
// snappy, which is also the default.
func resolveCompression(name string) kafkago.Compression {
	if c, ok := codecs[name]; ok {
		return c
	}
	return kafkago.Snappy
}
