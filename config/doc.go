// Package config loads service configuration from a YAML file, an optional
// .env file and prefixed environment variables.
//
// Values are layered in that order: the YAML file provides the base, then
// environment variables named <PREFIX>_<SECTION>_<KEY> override it, for
// example CHATSTREAM_STREAM_KEEP_ALIVE=15s. The prefix defaults to the
// upper-cased service name.
//
//	var cfg app.Config
//	err := config.LoadConfig("chatstream", &cfg, config.WithConfigFile("config.yml"))
package config
