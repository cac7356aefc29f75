package domain

// Outbound event payloads. The gateway wraps each in a {type, payload}
// envelope before writing it to a websocket.

// RoomCreated is sent to the creator only.
type RoomCreated struct {
	RoomCode string   `json:"roomCode"`
	Room     RoomView `json:"room"`
}

// RoomJoined is sent to the joining player only.
type RoomJoined struct {
	RoomCode string       `json:"roomCode"`
	Players  []PlayerView `json:"players"`
	IsOwner  bool         `json:"isOwner"`
}

// PlayerJoined is broadcast to the whole room after a join.
type PlayerJoined struct {
	Players   []PlayerView `json:"players"`
	NewPlayer string       `json:"newPlayer"`
}

// PlayerReady is broadcast when a player flips their ready flag.
type PlayerReady struct {
	PlayerID string       `json:"playerId"`
	Players  []PlayerView `json:"players"`
}

// GameStarted carries the first question to every player.
type GameStarted struct {
	Question       QuestionView `json:"question"`
	QuestionNumber int          `json:"questionNumber"`
	TotalQuestions int          `json:"totalQuestions"`
	TimeLimit      int          `json:"timeLimit"`
}

// AnswerResult is broadcast after a player's first submission for a question.
type AnswerResult struct {
	PlayerID      string      `json:"playerId"`
	IsCorrect     bool        `json:"isCorrect"`
	CorrectAnswer string      `json:"correctAnswer"`
	Explanation   string      `json:"explanation,omitempty"`
	Scores        []ScoreView `json:"scores"`
}

// NewQuestion carries the next question after an advance.
type NewQuestion struct {
	Question       QuestionView `json:"question"`
	QuestionNumber int          `json:"questionNumber"`
	TotalQuestions int          `json:"totalQuestions"`
	TimeLimit      int          `json:"timeLimit"`
}

// GameEnded carries the final standings.
type GameEnded struct {
	Winner   RankingEntry   `json:"winner"`
	Rankings []RankingEntry `json:"rankings"`
}

// PlayerLeft is broadcast after an explicit leave.
type PlayerLeft struct {
	PlayerID string       `json:"playerId"`
	Players  []PlayerView `json:"players"`
	NewOwner string       `json:"newOwner"`
}

// PlayerDisconnected is broadcast when a connection drops without leaving.
type PlayerDisconnected struct {
	PlayerID   string       `json:"playerId"`
	PlayerName string       `json:"playerName"`
	Players    []PlayerView `json:"players"`
}
