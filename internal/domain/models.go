package domain

// RoomState tracks the lifecycle of a trivia room.
type RoomState string

const (
	StateWaiting  RoomState = "waiting"
	StatePlaying  RoomState = "playing"
	StateFinished RoomState = "finished"
)

// Player represents a room participant. ConnID is the transport-level identity
// and may go stale on reconnect; ID is stable for the whole match.
type Player struct {
	ID     string
	ConnID string
	Name   string
	Avatar string
	Score  int
	Ready  bool
}

// PlayerView is the roster snapshot shape sent to clients.
type PlayerView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsReady bool   `json:"isReady"`
	Score   int    `json:"score"`
}

// ScoreView is the compact score shape used in answer results.
type ScoreView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RankingEntry is one row of the final standings.
type RankingEntry struct {
	Rank  int    `json:"rank"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Question models an MCQ question with four labeled options. CorrectOption is
// one of "A".."D" and is compared case-sensitively against submissions.
type Question struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectOption string `json:"correctOption"`
	Explanation   string `json:"explanation,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
}

// QuestionView is the client-facing question shape. It never carries the
// correct option while the question is active.
type QuestionView struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	OptionA    string `json:"optionA"`
	OptionB    string `json:"optionB"`
	OptionC    string `json:"optionC"`
	OptionD    string `json:"optionD"`
	Difficulty string `json:"difficulty,omitempty"`
}

// View strips the answer key from a question.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		OptionA:    q.OptionA,
		OptionB:    q.OptionB,
		OptionC:    q.OptionC,
		OptionD:    q.OptionD,
		Difficulty: q.Difficulty,
	}
}

// QuestionFilter narrows which questions a bank draws from.
type QuestionFilter struct {
	CategoryID string
	Difficulty string
}

// RoomView is the room summary sent on creation, without the question set.
type RoomView struct {
	RoomCode   string       `json:"roomCode"`
	OwnerID    string       `json:"ownerId"`
	MaxPlayers int          `json:"maxPlayers"`
	State      RoomState    `json:"state"`
	Players    []PlayerView `json:"players"`
}
