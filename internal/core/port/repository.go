package port

import (
	"context"

	"github.com/Wyydra/premeet/internal/core/domain"
)

// RoomStateStore keeps the last intent message per flag so late joiners can catch up.
type RoomStateStore interface {
	Record(ctx context.Context, room domain.RoomName, rec domain.IntentRecord) error
	Load(ctx context.Context, room domain.RoomName) ([]domain.IntentRecord, error)
	Forget(ctx context.Context, room domain.RoomName) error
}

type PollRepository interface {
	Save(ctx context.Context, room string, id domain.PollID, poll domain.Poll) error
	Get(ctx context.Context, room string, id domain.PollID) (domain.Poll, error)
	// List returns polls in first-insertion order.
	List(ctx context.Context, room string) ([]PollEntry, error)
}

type PollEntry struct {
	ID   domain.PollID `json:"id"`
	Poll domain.Poll   `json:"poll"`
}
