package redis

import (
	"context"
	"time"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
)

// RoomRegistry decorates the in-memory registry with Redis liveness markers.
// Notes:
//   - Rooms themselves stay in-process; a marker key per live room makes the
//     room set observable from outside the process.
//   - Cross-node room sharing is out of scope; the markers could seed a
//     shared-store implementation behind the same app.RoomRegistry boundary.
type RoomRegistry struct {
	inner  *memory.RoomRegistry
	client *redis.Client
	ttl    time.Duration
}

func NewRoomRegistry(client *redis.Client, ttl time.Duration) *RoomRegistry {
	return &RoomRegistry{
		inner:  memory.NewRoomRegistry(),
		client: client,
		ttl:    ttl,
	}
}

func (r *RoomRegistry) Create(build func(code string) *app.Room) (*app.Room, error) {
	room, err := r.inner.Create(build)
	if err != nil {
		return nil, err
	}
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(room.Code()), "1", r.ttl).Err()
	return room, nil
}

func (r *RoomRegistry) Get(code string) (*app.Room, bool) {
	return r.inner.Get(code)
}

func (r *RoomRegistry) Remove(code string) {
	r.inner.Remove(code)
	_ = r.client.Del(context.Background(), r.key(code)).Err()
}

func (r *RoomRegistry) Snapshot() []*app.Room {
	return r.inner.Snapshot()
}

func (r *RoomRegistry) key(code string) string {
	return "room:live:" + code
}
