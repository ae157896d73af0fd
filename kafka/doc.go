// Package kafka wraps segmentio/kafka-go writers and readers with the
// service logger, TLS/SASL transport setup and consume-loop backoff.
//
//	kafka:
//	  brokers: ["localhost:9092"]
//	  topic: chatstream.messages
package kafka
