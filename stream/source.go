package stream

import "context"

// Source feeds frames into a connection's sink.
type Source interface {
	// Attach starts delivery to sink. The returned detach stops it; it is
	// called once, when the connection closes.
	Attach(ctx context.Context, sink Sink) (detach func(), err error)
}

// HubSource subscribes each connection to a Hub.
type HubSource struct {
	hub *Hub
}

var _ Source = (*HubSource)(nil)

// NewHubSource creates a push source backed by hub.
func NewHubSource(hub *Hub) *HubSource {
	return &HubSource{hub: hub}
}

func (s *HubSource) Attach(_ context.Context, sink Sink) (func(), error) {
	return s.hub.Subscribe(sink), nil
}
