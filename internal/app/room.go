package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"trivia-room-service/internal/domain"
)

// Event is an outbound message fanned out to a room's subscribers. The
// gateway forwards it to clients as a {type, payload} envelope.
type Event struct {
	Type    string
	Payload any
}

// Room is the shared coordination state of one match. All mutation goes
// through methods holding the room mutex, so transitions on a single room are
// totally ordered; different rooms never contend.
type Room struct {
	code       string
	ownerID    string
	maxPlayers int
	category   string
	difficulty string

	mu          sync.Mutex
	state       domain.RoomState
	questions   []domain.Question
	current     int
	players     []*domain.Player
	answered    map[string]bool
	subscribers map[chan Event]struct{}
	cleanup     *time.Timer
}

// NewRoom builds a waiting room with the creator as its sole, ready player.
// The question sequence is fixed here and never re-drawn.
func NewRoom(code string, p CreateRoomParams, questions []domain.Question) *Room {
	maxPlayers := p.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = defaultMaxPlayers
	}
	return &Room{
		code:       code,
		ownerID:    p.UserID,
		maxPlayers: maxPlayers,
		category:   p.CategoryID,
		difficulty: p.Difficulty,
		state:      domain.StateWaiting,
		questions:  questions,
		answered:   make(map[string]bool),
		players: []*domain.Player{{
			ID:     p.UserID,
			ConnID: p.ConnID,
			Name:   p.Name,
			Avatar: p.Avatar,
			Ready:  true,
		}},
		subscribers: make(map[chan Event]struct{}),
	}
}

// Code returns the canonical upper-case room code.
func (r *Room) Code() string {
	return r.code
}

// IsEmpty reports whether the roster has no players.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// View returns the room summary without its question set.
func (r *Room) View() domain.RoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.RoomView{
		RoomCode:   r.code,
		OwnerID:    r.ownerID,
		MaxPlayers: r.maxPlayers,
		State:      r.state,
		Players:    r.rosterLocked(),
	}
}

func (r *Room) join(userID, name, avatar, connID string) (domain.RoomJoined, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.findLocked(userID); existing != nil {
		// Reconnect: refresh the transport identity instead of duplicating
		// the roster entry.
		existing.ConnID = connID
		existing.Name = name
		return domain.RoomJoined{
			RoomCode: r.code,
			Players:  r.rosterLocked(),
			IsOwner:  r.ownerID == userID,
		}, nil
	}

	if r.state != domain.StateWaiting {
		return domain.RoomJoined{}, domain.ErrRoomNotJoinable
	}
	if len(r.players) >= r.maxPlayers {
		return domain.RoomJoined{}, domain.ErrRoomFull
	}

	r.players = append(r.players, &domain.Player{
		ID:     userID,
		ConnID: connID,
		Name:   name,
		Avatar: avatar,
	})

	r.broadcastLocked(Event{Type: "playerJoined", Payload: domain.PlayerJoined{
		Players:   r.rosterLocked(),
		NewPlayer: name,
	}})

	return domain.RoomJoined{
		RoomCode: r.code,
		Players:  r.rosterLocked(),
		IsOwner:  false,
	}, nil
}

func (r *Room) setReady(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player := r.findLocked(userID)
	if player == nil {
		return
	}
	player.Ready = true

	r.broadcastLocked(Event{Type: "playerReady", Payload: domain.PlayerReady{
		PlayerID: userID,
		Players:  r.rosterLocked(),
	}})
}

func (r *Room) start(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Authorization is checked before any precondition.
	if r.ownerID != userID {
		return domain.ErrNotOwner
	}
	if r.state != domain.StateWaiting {
		return domain.ErrRoomNotJoinable
	}
	if len(r.players) < minPlayersToStart {
		return domain.ErrNotEnoughPlayers
	}
	for _, p := range r.players {
		if !p.Ready {
			return domain.ErrNotAllReady
		}
	}

	r.state = domain.StatePlaying
	r.current = 0
	r.answered = make(map[string]bool)

	r.broadcastLocked(Event{Type: "gameStarted", Payload: domain.GameStarted{
		Question:       r.questions[0].View(),
		QuestionNumber: 1,
		TotalQuestions: len(r.questions),
		TimeLimit:      questionTimeLimit,
	}})
	return nil
}

// submitAnswer applies the scoring rule for a player's first submission on
// the current question. Wrong-state, unknown-player and duplicate
// submissions are silent no-ops.
func (r *Room) submitAnswer(userID, answer string, timeSpent int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.StatePlaying {
		return
	}
	player := r.findLocked(userID)
	if player == nil || r.answered[userID] {
		return
	}
	r.answered[userID] = true

	question := r.questions[r.current]
	correct := answer == question.CorrectOption
	player.Score += scoreAnswer(answer, question.CorrectOption, timeSpent)

	r.broadcastLocked(Event{Type: "answerResult", Payload: domain.AnswerResult{
		PlayerID:      userID,
		IsCorrect:     correct,
		CorrectAnswer: question.CorrectOption,
		Explanation:   question.Explanation,
		Scores:        r.scoresLocked(),
	}})
}

// advance moves the cursor forward. It reports whether the room just
// finished so the service can arm the cleanup timer. Calls outside the
// playing state are no-ops, so a room finishes exactly once.
func (r *Room) advance() (finished bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.StatePlaying {
		return false
	}
	r.current++

	if r.current < len(r.questions) {
		r.answered = make(map[string]bool)
		r.broadcastLocked(Event{Type: "newQuestion", Payload: domain.NewQuestion{
			Question:       r.questions[r.current].View(),
			QuestionNumber: r.current + 1,
			TotalQuestions: len(r.questions),
			TimeLimit:      questionTimeLimit,
		}})
		return false
	}

	r.state = domain.StateFinished
	rankings := r.rankingsLocked()
	payload := domain.GameEnded{Rankings: rankings}
	if len(rankings) > 0 {
		payload.Winner = rankings[0]
	}
	r.broadcastLocked(Event{Type: "gameEnded", Payload: payload})
	return true
}

type removal struct {
	player   *domain.Player
	newOwner string
	empty    bool
	players  []domain.PlayerView
}

func (r *Room) removeByID(userID string) (removal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p.ID == userID {
			return r.removeLocked(i), true
		}
	}
	return removal{}, false
}

func (r *Room) removeByConn(connID string) (removal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p.ConnID == connID {
			return r.removeLocked(i), true
		}
	}
	return removal{}, false
}

func (r *Room) removeLocked(i int) removal {
	player := r.players[i]
	r.players = append(r.players[:i], r.players[i+1:]...)

	if len(r.players) == 0 {
		return removal{player: player, empty: true}
	}
	// Owner handoff goes to the earliest remaining joiner.
	if r.ownerID == player.ID {
		r.ownerID = r.players[0].ID
	}
	return removal{player: player, newOwner: r.ownerID, players: r.rosterLocked()}
}

func (r *Room) broadcastRemoval(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(event)
}

// scheduleCleanup arms a one-shot deletion after the grace period. Safe to
// cancel; the deletion itself is idempotent either way.
func (r *Room) scheduleCleanup(grace time.Duration, remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleanup != nil {
		return
	}
	r.cleanup = time.AfterFunc(grace, remove)
}

func (r *Room) cancelCleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cleanup != nil {
		r.cleanup.Stop()
		r.cleanup = nil
	}
}

func (r *Room) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Room) broadcastLocked(event Event) {
	for ch := range r.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest update so a slow client cannot stall the room.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (r *Room) findLocked(userID string) *domain.Player {
	for _, p := range r.players {
		if p.ID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) rosterLocked() []domain.PlayerView {
	views := make([]domain.PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, domain.PlayerView{
			ID:      p.ID,
			Name:    p.Name,
			IsReady: p.Ready,
			Score:   p.Score,
		})
	}
	return views
}

func (r *Room) scoresLocked() []domain.ScoreView {
	scores := make([]domain.ScoreView, 0, len(r.players))
	for _, p := range r.players {
		scores = append(scores, domain.ScoreView{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	return scores
}

// rankingsLocked sorts descending by score. The sort is stable over the
// roster's join order, which is the tie-break.
func (r *Room) rankingsLocked() []domain.RankingEntry {
	ordered := make([]*domain.Player, len(r.players))
	copy(ordered, r.players)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})
	rankings := make([]domain.RankingEntry, 0, len(ordered))
	for i, p := range ordered {
		rankings = append(rankings, domain.RankingEntry{
			Rank:  i + 1,
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
		})
	}
	return rankings
}

// NormalizeRoomCode maps client input to the canonical upper-case form.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
