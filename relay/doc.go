// Package relay carries newly created messages from the write path to the
// stream hub.
//
// The API publishes each stored message to a Bus. A Relay component
// consumes the bus and broadcasts every batch to the hub's subscribers.
// With the memory driver both ends live in one process; the redis and kafka
// drivers fan messages out across every instance of the service.
package relay
