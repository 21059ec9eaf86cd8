package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "premeeting:room:"
	// rooms nobody touches for a day are dropped by Redis itself
	roomTTL = 24 * time.Hour
)

// RoomStateStore keeps one hash per room, field = intent key, value = JSON record.
type RoomStateStore struct {
	client *redis.Client
}

func NewRoomStateStore(addr, password string, db int) *RoomStateStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RoomStateStore{client: rdb}
}

func NewRoomStateStoreFromClient(client *redis.Client) *RoomStateStore {
	return &RoomStateStore{client: client}
}

func roomKey(room domain.RoomName) string {
	return keyPrefix + room.String()
}

func (s *RoomStateStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RoomStateStore) Record(ctx context.Context, room domain.RoomName, rec domain.IntentRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode intent record: %w", err)
	}
	key := roomKey(room)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, rec.Key, val)
		pipe.Expire(ctx, key, roomTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record intent: %w", err)
	}
	return nil
}

// Load returns records sorted by key.
func (s *RoomStateStore) Load(ctx context.Context, room domain.RoomName) ([]domain.IntentRecord, error) {
	fields, err := s.client.HGetAll(ctx, roomKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load intents: %w", err)
	}
	out := make([]domain.IntentRecord, 0, len(fields))
	for field, raw := range fields {
		var rec domain.IntentRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode intent record %q: %w", field, err)
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *RoomStateStore) Forget(ctx context.Context, room domain.RoomName) error {
	if err := s.client.Del(ctx, roomKey(room)).Err(); err != nil {
		return fmt.Errorf("redis forget room: %w", err)
	}
	return nil
}

func (s *RoomStateStore) Close() error {
	return s.client.Close()
}
