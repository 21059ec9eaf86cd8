package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Wyydra/premeet/internal/core/domain"
)

type roomIntents struct {
	keys    []string
	records map[string]domain.IntentRecord
}

type RoomStateStore struct {
	mu    sync.Mutex
	rooms map[domain.RoomName]*roomIntents
}

func NewRoomStateStore() *RoomStateStore {
	return &RoomStateStore{
		rooms: make(map[domain.RoomName]*roomIntents),
	}
}

// Record keeps the latest record per key; a key keeps its first position.
func (s *RoomStateStore) Record(ctx context.Context, room domain.RoomName, rec domain.IntentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ri, ok := s.rooms[room]
	if !ok {
		ri = &roomIntents{records: make(map[string]domain.IntentRecord)}
		s.rooms[room] = ri
	}
	if _, ok := ri.records[rec.Key]; !ok {
		ri.keys = append(ri.keys, rec.Key)
	}
	ri.records[rec.Key] = rec
	return nil
}

func (s *RoomStateStore) Load(ctx context.Context, room domain.RoomName) ([]domain.IntentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ri, ok := s.rooms[room]
	if !ok {
		return nil, nil
	}
	out := make([]domain.IntentRecord, 0, len(ri.keys))
	for _, k := range slices.Clone(ri.keys) {
		out = append(out, ri.records[k])
	}
	return out, nil
}

func (s *RoomStateStore) Forget(ctx context.Context, room domain.RoomName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
	return nil
}
