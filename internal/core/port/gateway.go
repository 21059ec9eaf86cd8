package port

import (
	"context"

	"github.com/Wyydra/premeet/internal/core/domain"
)

// Session is one joined ancillary channel, owned by whoever dialed it.
type Session interface {
	// Events is closed after a domain.SessionClosed has been delivered.
	Events() <-chan domain.SessionEvent
	SendText(ctx context.Context, text string) error
	Close() error
}

type SignalingDialer interface {
	Dial(ctx context.Context, room domain.RoomName) (Session, error)
}

// RoomGateway publishes room-scoped events to the members of a signaling room.
type RoomGateway interface {
	PublishMetadata(ctx context.Context, room domain.RoomName, md domain.ConferenceMetadata) error
	PublishProperties(ctx context.Context, room domain.RoomName, props map[string]string) error
	PublishTranscriber(ctx context.Context, room domain.RoomName, jid string, joined, abruptly bool) error
}
