// Package push delivers room events from the server to the engine.
//
// Two transports are provided: a websocket client for servers that expose
// a socket endpoint, and a NATS subscriber for deployments where room
// events are published to a broker. Both hand the same Event envelope to a
// single handler. Neither guarantees delivery; the engine's polling
// fallback covers lost or never-connected feeds.
package push

import "context"

// Handler receives decoded event envelopes. Called from the feed's read
// goroutine; implementations must be safe to call concurrently with the
// rest of the client.
type Handler func(Event)

// Feed is a push event source bound to one room.
type Feed interface {
	// Start begins delivering events until ctx is cancelled. It returns
	// once the feed is shut down; reconnects happen internally.
	Start(ctx context.Context) error

	// Close tears the connection down. No events are delivered after
	// Close returns.
	Close() error
}
