package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lklobby/internal/app/hub"
	"lklobby/internal/app/lobby"
	"lklobby/internal/app/presence"
	"lklobby/internal/configs"
	"lklobby/internal/handler"
	"lklobby/internal/pkg/errs"
	"lklobby/internal/testfixtures"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	broadcastHub := hub.New()
	registry := presence.NewRegistry(testfixtures.NewMemoryUserStore(), broadcastHub, hub.GlobalTopic, presence.Options{
		Now:         testfixtures.NewClock(time.Time{}).NowFunc(),
		NewID:       testfixtures.NewIDGenerator("user").NextFunc(),
		NewInviteID: testfixtures.NewIDGenerator("invite").NextFunc(),
		PickColor:   func() int { return 0x6C63FF },
	})
	lobbies := lobby.NewStore(broadcastHub, lobby.Options{
		NewLobbyID:   testfixtures.NewIDGenerator("lobby").NextFunc(),
		NewMessageID: testfixtures.NewIDGenerator("msg").NextFunc(),
	})

	deps := &handler.AppDeps{
		Registry: registry,
		Lobbies:  lobbies,
		Hub:      broadcastHub,
		Config:   &configs.AppConfig{Environment: "development", Port: 8080},
	}

	ts := httptest.NewServer(handler.Router(deps))
	t.Cleanup(ts.Close)
	t.Cleanup(broadcastHub.Shutdown)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res.StatusCode, env
}

func dataField(t *testing.T, env envelope, field string) json.RawMessage {
	t.Helper()

	var data map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	raw, ok := data[field]
	if !ok {
		t.Fatalf("data has no field %q: %s", field, env.Data)
	}
	return raw
}

func registerUser(t *testing.T, ts *httptest.Server, name string) presence.User {
	t.Helper()

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/users/register", map[string]string{"name": name})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("register %q: status=%d code=%d message=%q", name, status, env.Code, env.Message)
	}

	var u presence.User
	if err := json.Unmarshal(dataField(t, env, "user"), &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return u
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	registerUser(t, ts, "alice")

	status, env := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("status=%d code=%d", status, env.Code)
	}

	var health struct {
		Status       string `json:"status"`
		UsersOnline  int    `json:"usersOnline"`
		UsersPlaying int    `json:"usersPlaying"`
	}
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.UsersOnline != 1 || health.UsersPlaying != 0 {
		t.Errorf("unexpected health payload: %+v", health)
	}
}

func TestHandleVerifyID(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/auth/verify", map[string]string{})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("status=%d code=%d", status, env.Code)
	}

	var id string
	if err := json.Unmarshal(dataField(t, env, "userId"), &id); err != nil {
		t.Fatalf("decode userId: %v", err)
	}
	if id == "" {
		t.Error("expected a non-empty user id")
	}
}

func TestHandleRegister(t *testing.T) {
	ts := newTestServer(t)

	u := registerUser(t, ts, "alice")
	if u.Name != "alice" || !u.IsOnline {
		t.Errorf("unexpected user: %+v", u)
	}

	// Same name again acts as login and returns the same identity.
	again := registerUser(t, ts, "alice")
	if again.ID != u.ID {
		t.Errorf("auto-login returned a different id: %q vs %q", again.ID, u.ID)
	}
}

func TestHandleRegister_EmptyName(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/users/register", map[string]string{"name": "  "})
	if status != http.StatusBadRequest || env.Code != errs.ErrNameRequired {
		t.Fatalf("status=%d code=%d, want 400 and %d", status, env.Code, errs.ErrNameRequired)
	}
}

func TestHandleRegister_RejectsUnknownFields(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/users/register", map[string]any{
		"name":       "alice",
		"unexpected": true,
	})
	if status == http.StatusOK || env.Code == 0 {
		t.Fatalf("payload with unknown fields accepted: status=%d code=%d", status, env.Code)
	}
}

func TestHandleSetStatus(t *testing.T) {
	ts := newTestServer(t)

	u := registerUser(t, ts, "alice")

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/users/status", map[string]any{
		"userId":    u.ID,
		"isPlaying": true,
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("status=%d code=%d", status, env.Code)
	}

	var updated presence.User
	if err := json.Unmarshal(dataField(t, env, "user"), &updated); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if !updated.IsPlaying || !updated.IsOnline {
		t.Errorf("expected playing and online, got %+v", updated)
	}
}

func TestHandleSetStatus_UnknownUser(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/users/status", map[string]any{
		"userId":   "no-such-id",
		"isOnline": true,
	})
	if status != http.StatusNotFound || env.Code != errs.ErrUserNotFound {
		t.Fatalf("status=%d code=%d, want 404 and %d", status, env.Code, errs.ErrUserNotFound)
	}
}

func TestHandleListUsers(t *testing.T) {
	ts := newTestServer(t)

	registerUser(t, ts, "alice")
	registerUser(t, ts, "bob")

	status, env := doJSON(t, http.MethodGet, ts.URL+"/api/users/", nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("status=%d code=%d", status, env.Code)
	}

	var users []presence.User
	if err := json.Unmarshal(dataField(t, env, "users"), &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 2 || users[0].Name != "alice" || users[1].Name != "bob" {
		t.Errorf("unexpected listing: %+v", users)
	}
}

func TestLobbyLifecycle(t *testing.T) {
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

	status, env = doJSON(t, http.MethodPost, ts.URL+"/api/lobbies/"+lobbyID+"/join", map[string]string{
		"userId": bob.ID,
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("join: status=%d code=%d", status, env.Code)
	}
	var joined lobby.Lobby
	if err := json.Unmarshal(dataField(t, env, "lobby"), &joined); err != nil {
		t.Fatalf("decode lobby: %v", err)
	}
	if len(joined.Members) != 2 {
		t.Errorf("expected 2 members, got %v", joined.Members)
	}

	status, env = doJSON(t, http.MethodPost, ts.URL+"/api/chat/", map[string]any{
		"from":    alice.Name,
		"text":    "ready when you are",
		"lobbyId": lobbyID,
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("post lobby message: status=%d code=%d", status, env.Code)
	}

	// The lobby message must not appear in the global stream.
	status, env = doJSON(t, http.MethodGet, ts.URL+"/api/chat/", nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("history: status=%d code=%d", status, env.Code)
	}
	var history []lobby.Message
	if err := json.Unmarshal(dataField(t, env, "messages"), &history); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("lobby message leaked into global history: %+v", history)
	}

	status, env = doJSON(t, http.MethodGet, ts.URL+"/api/lobbies/", nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("list: status=%d code=%d", status, env.Code)
	}
	var lobbies []lobby.Lobby
	if err := json.Unmarshal(dataField(t, env, "lobbies"), &lobbies); err != nil {
		t.Fatalf("decode lobbies: %v", err)
	}
	if len(lobbies) != 1 || len(lobbies[0].Messages) != 1 {
		t.Errorf("unexpected lobby listing: %+v", lobbies)
	}
}

func TestHandleCreateLobby_Validation(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/lobbies/", map[string]string{
		"name": "No Creator",
	})
	if status != http.StatusBadRequest || env.Code != errs.ErrInvalidParams {
		t.Errorf("missing userId: status=%d code=%d", status, env.Code)
	}

	status, env = doJSON(t, http.MethodPost, ts.URL+"/api/lobbies/", map[string]string{
		"name":   "",
		"userId": "u-1",
	})
	if status != http.StatusBadRequest || env.Code != errs.ErrLobbyNameRequired {
		t.Errorf("missing name: status=%d code=%d", status, env.Code)
	}
}

func TestHandleJoinLobby_NotFound(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/lobbies/no-such-lobby/join", map[string]string{
		"userId": "u-1",
	})
	if status != http.StatusNotFound || env.Code != errs.ErrLobbyNotFound {
		t.Fatalf("status=%d code=%d, want 404 and %d", status, env.Code, errs.ErrLobbyNotFound)
	}
}

func TestInviteFlow(t *testing.T) {
	ts := newTestServer(t)

	alice := registerUser(t, ts, "alice")
	bob := registerUser(t, ts, "bob")

	status, env := doJSON(t, http.MethodPost, ts.URL+"/api/invites/", map[string]string{
		"toUserId": bob.ID,
		"fromName": alice.Name,
	})
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("send: status=%d code=%d", status, env.Code)
	}

	status, env = doJSON(t, http.MethodGet, ts.URL+"/api/invites/"+bob.ID, nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Fatalf("list: status=%d code=%d", status, env.Code)
	}
	var invites []presence.Invite
	if err := json.Unmarshal(dataField(t, env, "invites"), &invites); err != nil {
		t.Fatalf("decode invites: %v", err)
	}
	if len(invites) != 1 || invites[0].FromName != "alice" {
		t.Errorf("unexpected inbox: %+v", invites)
	}

	status, env = doJSON(t, http.MethodPost, ts.URL+"/api/invites/", map[string]string{
		"toUserId": "no-such-id",
		"fromName": alice.Name,
	})
	if status != http.StatusNotFound || env.Code != errs.ErrUserNotFound {
		t.Errorf("unknown recipient: status=%d code=%d", status, env.Code)
	}
}
