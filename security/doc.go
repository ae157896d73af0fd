// Package security holds the TLS settings shared by the outbound clients
// (redis and kafka).
//
//	cfg := security.TLSConfig{Enabled: true, CAFile: "/etc/ssl/broker-ca.pem"}
//	tc, err := cfg.Build() // nil when TLS is disabled
package security
