package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not match any live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomNotJoinable is returned when joining a room that already started or finished.
	ErrRoomNotJoinable = errors.New("game already started")
	// ErrRoomFull is returned when a room has reached its player capacity.
	ErrRoomFull = errors.New("room is full")
	// ErrNotOwner is returned when a non-owner attempts an owner-only action.
	ErrNotOwner = errors.New("only the room owner can start the game")
	// ErrNotEnoughPlayers is returned when starting with fewer than two players.
	ErrNotEnoughPlayers = errors.New("at least 2 players are required")
	// ErrNotAllReady is returned when starting before every player is ready.
	ErrNotAllReady = errors.New("not all players are ready")
	// ErrPlayerNotFound is returned when a user acts in a room they never joined.
	ErrPlayerNotFound = errors.New("player not in room")
	// ErrNoQuestions indicates the question bank returned nothing for the filter.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNoFreeRoomCode indicates code generation exhausted its retry budget.
	ErrNoFreeRoomCode = errors.New("could not allocate a unique room code")
)
