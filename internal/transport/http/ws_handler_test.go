package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketMatchFlow(t *testing.T) {
	registry := memory.NewRoomRegistry()
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader(samplePool(3)), time.Minute)
	service := app.NewGameService(registry, bank)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):] + "/ws"

	alice := dial(t, wsURL)
	defer alice.Close()
	bob := dial(t, wsURL)
	defer bob.Close()

	// Alice creates a room.
	writeMsg(t, alice, "createRoom", map[string]any{"userId": "A", "name": "Alice"})
	created := readUntil(t, alice, "roomCreated")
	code, _ := created["roomCode"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6-char room code, got %q", code)
	}

	// Bob joins; Alice hears about it.
	writeMsg(t, bob, "joinRoom", map[string]any{"roomCode": code, "userId": "B", "name": "Bob"})
	joined := readUntil(t, bob, "roomJoined")
	if isOwner, _ := joined["isOwner"].(bool); isOwner {
		t.Fatalf("joiner must not be owner")
	}
	readUntil(t, alice, "playerJoined")

	// Bob readies up, Alice starts.
	writeMsg(t, bob, "setReady", map[string]any{"roomCode": code, "userId": "B"})
	readUntil(t, alice, "playerReady")
	writeMsg(t, alice, "startGame", map[string]any{"roomCode": code, "userId": "A"})

	started := readUntil(t, bob, "gameStarted")
	question, _ := started["question"].(map[string]any)
	if question == nil {
		t.Fatalf("gameStarted missing question: %v", started)
	}
	if _, leaked := question["correctOption"]; leaked {
		t.Fatalf("active question payload leaked the correct option: %v", question)
	}
	readUntil(t, alice, "gameStarted")

	// Alice answers correctly.
	writeMsg(t, alice, "submitAnswer", map[string]any{"roomCode": code, "userId": "A", "answer": "A", "timeSpent": 5})
	result := readUntil(t, bob, "answerResult")
	if correct, _ := result["isCorrect"].(bool); !correct {
		t.Fatalf("expected correct answer result, got %v", result)
	}

	// Drive the match to the end.
	for i := 0; i < 3; i++ {
		writeMsg(t, alice, "nextQuestion", map[string]any{"roomCode": code})
	}
	ended := readUntil(t, bob, "gameEnded")
	winner, _ := ended["winner"].(map[string]any)
	if winner == nil || winner["id"] != "A" {
		t.Fatalf("expected Alice to win, got %v", ended)
	}
}

func TestWebSocketErrorGoesOnlyToSender(t *testing.T) {
	registry := memory.NewRoomRegistry()
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader(samplePool(3)), time.Minute)
	service := app.NewGameService(registry, bank)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dial(t, "ws"+server.URL[len("http"):]+"/ws")
	defer conn.Close()

	writeMsg(t, conn, "joinRoom", map[string]any{"roomCode": "ZZZZZZ", "userId": "A", "name": "Alice"})
	errMsg := readUntil(t, conn, "error")
	if message, _ := errMsg["message"].(string); message == "" {
		t.Fatalf("expected an error message, got %v", errMsg)
	}
}

// An abrupt client close must shut its session down cleanly even while room
// broadcasts are still in flight for it.
func TestWebSocketAbruptCloseDuringBroadcasts(t *testing.T) {
	registry := memory.NewRoomRegistry()
	bank := memory.NewQuestionBank(memory.NewStaticQuestionLoader(samplePool(3)), time.Minute)
	service := app.NewGameService(registry, bank)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()
	wsURL := "ws" + server.URL[len("http"):] + "/ws"

	alice := dial(t, wsURL)
	defer alice.Close()
	writeMsg(t, alice, "createRoom", map[string]any{"userId": "A", "name": "Alice"})
	created := readUntil(t, alice, "roomCreated")
	code, _ := created["roomCode"].(string)

	// Keep alice's connection drained while she floods the room with
	// ready broadcasts.
	go func() {
		for {
			if _, _, err := alice.ReadMessage(); err != nil {
				return
			}
		}
	}()
	flood := make(chan struct{})
	go func() {
		defer close(flood)
		for i := 0; i < 2000; i++ {
			if err := alice.WriteJSON(map[string]any{
				"type":    "setReady",
				"payload": map[string]any{"roomCode": code, "userId": "A"},
			}); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		bob := dial(t, wsURL)
		writeMsg(t, bob, "joinRoom", map[string]any{"roomCode": code, "userId": "B", "name": "Bob"})
		readUntil(t, bob, "roomJoined")
		// Close without reading; the session must tear down while its
		// forwarder still holds buffered broadcasts.
		bob.Close()
	}
	<-flood

	if _, ok := registry.Get(code); !ok {
		t.Fatalf("room disappeared during broadcast churn")
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil consumes frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg.Payload
		}
	}
}

func samplePool(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Text:          fmt.Sprintf("Question %d", i+1),
			OptionA:       "right",
			OptionB:       "wrong",
			OptionC:       "wrong",
			OptionD:       "wrong",
			CorrectOption: "A",
			Difficulty:    "easy",
		})
	}
	return questions
}
