package http

import (
	"encoding/json"
	"log"
	"net/http"

	"trivia-room-service/internal/app"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades connections and routes inbound events to the game
// service. Each connection gets a transport identity so the room can resolve
// a disconnect back to a player.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

type joinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

type roomUserPayload struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
}

type submitAnswerPayload struct {
	RoomCode  string `json:"roomCode"`
	UserID    string `json:"userId"`
	Answer    string `json:"answer"`
	TimeSpent int    `json:"timeSpent"`
}

type nextQuestionPayload struct {
	RoomCode string `json:"roomCode"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS runs one client's session: a writer goroutine serializes outbound
// frames, a forwarder relays the subscribed room's broadcasts, and the read
// loop dispatches inbound events until the connection drops.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var cancelSub func()
	var forwarderDones []chan struct{}
	subscribeRoom := func(code string) error {
		updates, cancel, err := h.service.Subscribe(code)
		if err != nil {
			return err
		}
		if cancelSub != nil {
			cancelSub()
		}
		cancelSub = cancel
		done := make(chan struct{})
		forwarderDones = append(forwarderDones, done)
		go func() {
			defer close(done)
			for {
				select {
				case event, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: event.Type, Payload: event.Payload}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return nil
	}

	sendError := func(message string) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		switch inbound.Type {
		case "createRoom":
			var payload createRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.UserID == "" || payload.Name == "" {
				sendError("invalid createRoom payload")
				continue
			}
			created, err := h.service.CreateRoom(r.Context(), app.CreateRoomParams{
				UserID:     payload.UserID,
				Name:       payload.Name,
				Avatar:     payload.Avatar,
				ConnID:     connID,
				CategoryID: payload.CategoryID,
				Difficulty: payload.Difficulty,
				MaxPlayers: payload.MaxPlayers,
			})
			if err != nil {
				sendError(err.Error())
				continue
			}
			if err := subscribeRoom(created.RoomCode); err != nil {
				sendError(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "roomCreated", Payload: created}

		case "joinRoom":
			var payload joinRoomPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.UserID == "" || payload.Name == "" {
				sendError("invalid joinRoom payload")
				continue
			}
			joined, err := h.service.JoinRoom(payload.RoomCode, payload.UserID, payload.Name, payload.Avatar, connID)
			if err != nil {
				sendError(err.Error())
				continue
			}
			if err := subscribeRoom(joined.RoomCode); err != nil {
				sendError(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "roomJoined", Payload: joined}

		case "setReady":
			var payload roomUserPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid setReady payload")
				continue
			}
			if err := h.service.SetReady(payload.RoomCode, payload.UserID); err != nil {
				sendError(err.Error())
			}

		case "startGame":
			var payload roomUserPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid startGame payload")
				continue
			}
			if err := h.service.StartGame(payload.RoomCode, payload.UserID); err != nil {
				sendError(err.Error())
			}

		case "submitAnswer":
			var payload submitAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid submitAnswer payload")
				continue
			}
			if err := h.service.SubmitAnswer(payload.RoomCode, payload.UserID, payload.Answer, payload.TimeSpent); err != nil {
				sendError(err.Error())
			}

		case "nextQuestion":
			var payload nextQuestionPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid nextQuestion payload")
				continue
			}
			if err := h.service.NextQuestion(payload.RoomCode); err != nil {
				sendError(err.Error())
			}

		case "leaveRoom":
			var payload roomUserPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError("invalid leaveRoom payload")
				continue
			}
			h.service.LeaveRoom(payload.RoomCode, payload.UserID)
			if cancelSub != nil {
				cancelSub()
				cancelSub = nil
			}

		default:
			sendError("unsupported message type")
		}
	}

	close(closeSignals)
	if cancelSub != nil {
		cancelSub()
	}
	// Every forwarder must be done before send is closed; a forwarder still
	// draining buffered events would otherwise write to a closed channel.
	for _, done := range forwarderDones {
		<-done
	}
	h.service.Disconnect(connID)
	close(send)
	<-writerDone
}
