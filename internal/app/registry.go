package app

import (
	"context"

	"trivia-room-service/internal/domain"
)

// RoomRegistry is the process-wide table of live rooms keyed by room code.
// Implementations must be safe for concurrent use; the registry owns the set
// of live rooms exclusively.
type RoomRegistry interface {
	// Create allocates a fresh unique code, invokes build with it and inserts
	// the result atomically. It fails with domain.ErrNoFreeRoomCode once the
	// collision retry budget is spent.
	Create(build func(code string) *Room) (*Room, error)
	Get(code string) (*Room, bool)
	// Remove deletes a room by code. Removing an absent code is a no-op.
	Remove(code string)
	// Snapshot returns the current live rooms, used to resolve disconnects
	// by transport identity.
	Snapshot() []*Room
}

// QuestionBank provides the question set drawn once at room creation. A draw
// returns a shuffled selection for the filter; an empty result is an error,
// never an empty room.
type QuestionBank interface {
	DrawQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}
