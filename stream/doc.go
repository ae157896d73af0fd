// Package stream delivers chat messages to clients over long-lived
// text/event-stream responses.
//
// A Conn owns one response and one QueueSink. What feeds the sink is a
// Source, and there are two:
//
//   - HubSource subscribes the sink to a Hub. Producers call
//     Hub.Broadcast and every live subscriber receives the same frame.
//   - PollSource runs a per-connection loop that asks the message store
//     for records newer than a Watermark and writes what it finds.
//
// The Gateway adapts both to HTTP, tracks live connections and closes them
// all on shutdown.
//
// Wire format, one event per blank-line-terminated block:
//
//	event: message
//	data: [{"id":"...","sender":"1",...}]
//
//	event: ping
//	data: keep-alive
//
//	data: {"type":"connected"}
package stream
