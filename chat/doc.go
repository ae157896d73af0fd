// Package chat defines the message values exchanged by the delivery
// subsystem. Messages are owned by the store; everything downstream treats
// them as immutable once read.
package chat
