package ws

import "github.com/Wyydra/premeet/internal/adapter/protocol"

// Client is one connected member. Send is called from a single goroutine per
// client and may block; Close may be called concurrently with Send.
type Client interface {
	ID() string
	Send(frame protocol.Frame) error
	Close() error
}
