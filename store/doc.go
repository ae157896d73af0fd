// Package store persists chat messages with GORM and answers the queries
// the stream poller and the message API issue against them.
//
// The default dialect is SQLite. Timestamps are always written in UTC so
// that SQLite's text comparison orders them correctly.
package store
