package app

import (
	"context"
	"log"
	"time"

	"trivia-room-service/internal/domain"
)

// defaultCleanupGrace is how long a finished room stays visible so clients
// can read the final standings.
const defaultCleanupGrace = 30 * time.Second

// GameService orchestrates room lifecycle transitions. Each method resolves
// the room by code and applies the transition under that room's lock, so
// concurrent events on one room are serialized while distinct rooms proceed
// independently.
type GameService struct {
	rooms        RoomRegistry
	questions    QuestionBank
	cleanupGrace time.Duration
}

func NewGameService(rooms RoomRegistry, questions QuestionBank) *GameService {
	return NewGameServiceWithGrace(rooms, questions, defaultCleanupGrace)
}

// NewGameServiceWithGrace overrides the post-finish cleanup grace period.
func NewGameServiceWithGrace(rooms RoomRegistry, questions QuestionBank, grace time.Duration) *GameService {
	return &GameService{rooms: rooms, questions: questions, cleanupGrace: grace}
}

// CreateRoomParams carries the createRoom event fields.
type CreateRoomParams struct {
	UserID     string
	Name       string
	Avatar     string
	ConnID     string
	CategoryID string
	Difficulty string
	MaxPlayers int
}

// CreateRoom draws the question set and registers a new waiting room with
// the creator as owner. A failed draw leaves no room behind.
func (s *GameService) CreateRoom(ctx context.Context, p CreateRoomParams) (domain.RoomCreated, error) {
	questions, err := s.questions.DrawQuestions(ctx, domain.QuestionFilter{
		CategoryID: p.CategoryID,
		Difficulty: p.Difficulty,
	})
	if err != nil {
		return domain.RoomCreated{}, err
	}
	if len(questions) == 0 {
		return domain.RoomCreated{}, domain.ErrNoQuestions
	}

	room, err := s.rooms.Create(func(code string) *Room {
		return NewRoom(code, p, questions)
	})
	if err != nil {
		return domain.RoomCreated{}, err
	}

	log.Printf("room %s created by %s (%d questions)", room.Code(), p.UserID, len(questions))
	return domain.RoomCreated{RoomCode: room.Code(), Room: room.View()}, nil
}

// JoinRoom appends a player to a waiting room. The response goes to the
// joiner; the room hears playerJoined through its subscription.
func (s *GameService) JoinRoom(code, userID, name, avatar, connID string) (domain.RoomJoined, error) {
	room, ok := s.rooms.Get(NormalizeRoomCode(code))
	if !ok {
		return domain.RoomJoined{}, domain.ErrRoomNotFound
	}
	return room.join(userID, name, avatar, connID)
}

// SetReady flags a player as ready and broadcasts the updated roster.
func (s *GameService) SetReady(code, userID string) error {
	room, ok := s.rooms.Get(NormalizeRoomCode(code))
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.setReady(userID)
	return nil
}

// StartGame begins play. Only the owner may start, and only with a full
// complement of ready players.
func (s *GameService) StartGame(code, userID string) error {
	normalized := NormalizeRoomCode(code)
	room, ok := s.rooms.Get(normalized)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := room.start(userID); err != nil {
		return err
	}
	log.Printf("game started in room %s", normalized)
	return nil
}

// SubmitAnswer records a player's first submission for the current question.
// Duplicates and wrong-state submissions are ignored without an error.
func (s *GameService) SubmitAnswer(code, userID, answer string, timeSpent int) error {
	room, ok := s.rooms.Get(NormalizeRoomCode(code))
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.submitAnswer(userID, answer, timeSpent)
	return nil
}

// NextQuestion advances the cursor. Past the last question the room
// finishes, standings are broadcast and deferred cleanup is armed.
func (s *GameService) NextQuestion(code string) error {
	normalized := NormalizeRoomCode(code)
	room, ok := s.rooms.Get(normalized)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if room.advance() {
		room.scheduleCleanup(s.cleanupGrace, func() {
			s.rooms.Remove(normalized)
			log.Printf("room %s cleaned up after finish", normalized)
		})
	}
	return nil
}

// LeaveRoom removes a player. The last player leaving deletes the room; an
// owner leaving hands the room to the earliest remaining joiner.
func (s *GameService) LeaveRoom(code, userID string) {
	normalized := NormalizeRoomCode(code)
	room, ok := s.rooms.Get(normalized)
	if !ok {
		return
	}
	rm, ok := room.removeByID(userID)
	if !ok {
		return
	}
	if rm.empty {
		room.cancelCleanup()
		s.rooms.Remove(normalized)
		log.Printf("room %s deleted, roster empty", normalized)
		return
	}
	room.broadcastRemoval(Event{Type: "playerLeft", Payload: domain.PlayerLeft{
		PlayerID: userID,
		Players:  rm.players,
		NewOwner: rm.newOwner,
	}})
}

// Disconnect handles a dropped connection. The gateway only knows the
// transport identity, so every live room is checked for it.
func (s *GameService) Disconnect(connID string) {
	for _, room := range s.rooms.Snapshot() {
		rm, ok := room.removeByConn(connID)
		if !ok {
			continue
		}
		if rm.empty {
			room.cancelCleanup()
			s.rooms.Remove(room.Code())
			log.Printf("room %s deleted after disconnect", room.Code())
			continue
		}
		room.broadcastRemoval(Event{Type: "playerDisconnected", Payload: domain.PlayerDisconnected{
			PlayerID:   rm.player.ID,
			PlayerName: rm.player.Name,
			Players:    rm.players,
		}})
	}
}

// Subscribe returns a channel of the room's outbound events. The caller must
// invoke cancel to release the subscription.
func (s *GameService) Subscribe(code string) (<-chan Event, func(), error) {
	room, ok := s.rooms.Get(NormalizeRoomCode(code))
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.subscribe()
	return ch, cancel, nil
}
