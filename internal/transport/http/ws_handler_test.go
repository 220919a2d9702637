package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-proctor-service/internal/domain"
)

func TestWebSocketProctorFlow(t *testing.T) {
	server := newTestServer(t, activeSettings())

	resp := postJSON(t, server.URL+"/api/attempt", domain.Identity{
		Name: "Alice", RegisterNo: "R-001", Email: "alice@example.com",
	})
	ticket := decodeBody[domain.AttemptTicket](t, resp)

	u := "ws" + server.URL[len("http"):] + "/ws?participantId=" + ticket.ParticipantID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Report a violation over the socket.
	if err := conn.WriteJSON(map[string]any{
		"type":    "violation",
		"payload": map[string]any{"type": "tab_switch", "device": "agent"},
	}); err != nil {
		t.Fatalf("write violation: %v", err)
	}
	msgType, payload := readNext(conn, t, "violationStatus")
	if msgType != "violationStatus" {
		t.Fatalf("expected violationStatus, got %s", msgType)
	}
	if count, ok := payload["count"].(float64); !ok || count != 1 {
		t.Fatalf("expected count 1, got %v", payload["count"])
	}

	// Ask for the countdown.
	if err := conn.WriteJSON(map[string]any{"type": "time"}); err != nil {
		t.Fatalf("write time request: %v", err)
	}
	_, payload = readNext(conn, t, "remainingTime")
	if remaining, ok := payload["remainingSeconds"].(float64); !ok || remaining <= 0 {
		t.Fatalf("expected positive remainingSeconds, got %v", payload["remainingSeconds"])
	}

	// Unknown message types come back as errors without killing the socket.
	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write bogus: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketRejectsUnknownParticipant(t *testing.T) {
	server := newTestServer(t, activeSettings())

	u := "ws" + server.URL[len("http"):] + "/ws?participantId=nobody"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		conn.Close()
		t.Fatalf("expected dial to fail for unknown participant")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
