package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-proctor-service/internal/app"
)

// WSHandler runs the proctor channel: the quiz page keeps one socket open and
// streams violation events and countdown requests over it instead of firing a
// burst of HTTP calls every time the participant switches tabs.
type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
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

type violationPayload struct {
	Type   string `json:"type"`
	Device string `json:"device"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type wsErrorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and relays proctor traffic for one participant.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participantId")
	if participantID == "" {
		http.Error(w, "missing participantId", http.StatusBadRequest)
		return
	}
	if _, err := h.service.RemainingTime(r.Context(), participantID); err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Single writer goroutine keeps concurrent writes off the connection.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "violation":
			var payload violationPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: wsErrorPayload{Message: "invalid violation payload"}}
				continue
			}
			status, err := h.service.RecordViolation(r.Context(), participantID, payload.Type, payload.Device)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: wsErrorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "violationStatus", Payload: status}
		case "time":
			remaining, err := h.service.RemainingTime(r.Context(), participantID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: wsErrorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "remainingTime", Payload: remainingTimePayload{RemainingSeconds: remaining}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: wsErrorPayload{Message: "unsupported message type"}}
		}
	}

	close(send)
	<-writerDone
}
