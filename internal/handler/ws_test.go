package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	if res != nil {
		res.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// awaitEvent reads frames until one with the wanted event name arrives,
// skipping unrelated broadcasts.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) wsFrame {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	if err := conn.SetReadDeadline(deadline); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}

		var frame wsFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("invalid frame %s: %v", raw, err)
		}
		if frame.Event == event {
			return frame
		}
	}
}

func TestWebSocket_ReceivesGlobalBroadcasts(t *testing.T) {
	ts := newTestServer(t)
	conn := dialWS(t, ts)

	// A registration over HTTP reaches the connected listener.
	alice := registerUser(t, ts, "alice")
	frame := awaitEvent(t, conn, "status_update")
	var announced struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(frame.Data, &announced); err != nil {
		t.Fatalf("decode status_update: %v", err)
	}
	if announced.ID != alice.ID {
		t.Errorf("status_update for %q, want %q", announced.ID, alice.ID)
	}

	// So does a global chat message.
	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/chat/", map[string]string{
		"from": "alice",
		"text": "hello everyone",
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("post: status=%d code=%d", status, env.Code)
	}
	frame = awaitEvent(t, conn, "new_global_message")
	var msg struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Text != "hello everyone" {
		t.Errorf("unexpected text %q", msg.Text)
	}
}

func TestWebSocket_SendMessageInbound(t *testing.T) {
	ts := newTestServer(t)
	sender := dialWS(t, ts)
	receiver := dialWS(t, ts)

	err := sender.WriteJSON(map[string]any{
		"event": "send_message",
		"data":  map[string]any{"from": "alice", "text": "ping from the wire"},
	})
	if err != nil {
		t.Fatalf("write inbound frame: %v", err)
	}

	for _, conn := range []*websocket.Conn{sender, receiver} {
		frame := awaitEvent(t, conn, "new_global_message")
		var msg struct {
			From string `json:"from"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.From != "alice" || msg.Text != "ping from the wire" {
			t.Errorf("unexpected message: %+v", msg)
		}
	}
}

func TestWebSocket_JoinLobbyScopesDelivery(t *testing.T) {
	ts := newTestServer(t)

	alice := registerUser(t, ts, "alice")
	bob := registerUser(t, ts, "bob")

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/lobbies/", map[string]string{
		"name":     "Duel Room",
		"userId":   alice.ID,
		"userName": alice.Name,
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("create: status=%d code=%d", status, env.Code)
	}
	var lobbyID string
	if err := json.Unmarshal(dataField(t, env, "lobbyId"), &lobbyID); err != nil {
		t.Fatalf("decode lobbyId: %v", err)
	}

	member := dialWS(t, ts)
	outsider := dialWS(t, ts)

	err := member.WriteJSON(map[string]any{
		"event": "join_lobby",
		"data":  map[string]any{"lobbyId": lobbyID, "userId": bob.ID},
	})
	if err != nil {
		t.Fatalf("write join_lobby: %v", err)
	}

	// The joining listener sees its own membership announcement.
	frame := awaitEvent(t, member, "lobby_update")
	var updated struct {
		Members []string `json:"members"`
	}
	if err := json.Unmarshal(frame.Data, &updated); err != nil {
		t.Fatalf("decode lobby_update: %v", err)
	}
	if len(updated.Members) != 2 {
		t.Errorf("expected 2 members, got %v", updated.Members)
	}

	// A lobby message reaches the member but not the outsider; a follow-up
	// global message proves the outsider's connection stayed live throughout.
	status, env = doJSON(t, http.MethodPost, ts.URL+"/api/chat/", map[string]any{
		"from":    alice.Name,
		"text":    "lobby only",
		"lobbyId": lobbyID,
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("post lobby message: status=%d code=%d", status, env.Code)
	}
	status, env = doJSON(t, http.MethodPost, ts.URL+"/api/chat/", map[string]string{
		"from": alice.Name,
		"text": "everyone",
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("post global message: status=%d code=%d", status, env.Code)
	}

	awaitEvent(t, member, "new_message")

	frame = awaitEvent(t, outsider, "new_global_message")
	var msg struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Text != "everyone" {
		t.Errorf("outsider received %q before the global message", msg.Text)
	}
}
