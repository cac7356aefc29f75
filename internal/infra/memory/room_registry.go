package memory

import (
	"math/rand"
	"sync"
	"time"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// Room codes avoid I, O, 0 and 1 so they survive being read aloud.
const (
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeLength   = 6
	maxCodeAttempts  = 32
)

// RoomRegistry is the in-memory implementation of app.RoomRegistry. A single
// coarse lock guards the map; room counts stay small relative to traffic.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*app.Room
	rnd   *rand.Rand
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]*app.Room),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RoomRegistry) Create(build func(code string) *app.Room) (*app.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := r.generateCodeLocked()
		if _, taken := r.rooms[code]; taken {
			continue
		}
		room := build(code)
		r.rooms[code] = room
		return room, nil
	}
	return nil, domain.ErrNoFreeRoomCode
}

func (r *RoomRegistry) Get(code string) (*app.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

func (r *RoomRegistry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
}

func (r *RoomRegistry) Snapshot() []*app.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rooms := make([]*app.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *RoomRegistry) generateCodeLocked() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[r.rnd.Intn(len(roomCodeAlphabet))]
	}
	return string(code)
}
