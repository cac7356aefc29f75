package redis

import (
	"testing"
	"time"

	"trivia-room-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRoomRegistrySetsAndClearsLivenessMarkers(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	registry := NewRoomRegistry(newClient(mr), time.Minute)

	room, err := registry.Create(func(code string) *app.Room {
		return app.NewRoom(code, app.CreateRoomParams{UserID: "A", Name: "Alice"}, nil)
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("room:live:" + room.Code()) {
		t.Fatalf("expected liveness marker for %s", room.Code())
	}

	if _, ok := registry.Get(room.Code()); !ok {
		t.Fatalf("expected room retrievable")
	}

	registry.Remove(room.Code())
	if mr.Exists("room:live:" + room.Code()) {
		t.Fatalf("expected liveness marker removed")
	}
	if _, ok := registry.Get(room.Code()); ok {
		t.Fatalf("expected room removed")
	}
}
