/*
Package handler provides the HTTP handlers and routing setup for the lobby server.

This file defines the websocket listener client. Each connection owns a hub
Listener: the write pump drains the listener's delivery channel onto the wire
with heartbeat pings, and the read pump accepts the two inbound client events
(send_message, join_lobby) and translates them into store operations. A closed
connection unsubscribes the listener from every topic it joined.
*/
package handler

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"lklobby/internal/app/hub"
	"lklobby/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192
)

// wsClient bridges one websocket connection and its hub listener.
type wsClient struct {
	conn     *websocket.Conn
	listener *hub.Listener
	deps     *AppDeps
	logger   zerolog.Logger
}

func newWSClient(conn *websocket.Conn, listener *hub.Listener, deps *AppDeps) *wsClient {
	clientLogger := logx.Logger().With().
		Str("listener_id", listener.ID()).
		Logger()

	return &wsClient{
		conn:     conn,
		listener: listener,
		deps:     deps,
		logger:   clientLogger,
	}
}

// readPump reads inbound events from the connection until it closes, then
// detaches the listener from every topic.
func (c *wsClient) readPump() {
	defer func() {
		c.deps.Hub.UnsubscribeAll(c.listener)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in readPump")
		}
		c.logger.Info().Msg("Listener disconnected.")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			return
		}

		c.processInbound(frame)
	}
}

// processInbound dispatches one raw inbound frame.
func (c *wsClient) processInbound(frame []byte) {
	var inbound struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data,omitempty"`
	}

	if err := json.Unmarshal(frame, &inbound); err != nil {
		c.logger.Warn().Err(err).Bytes("frame", frame).Msg("Listener sent invalid JSON")
		return
	}

	switch inbound.Event {
	case "send_message":
		c.handleSendMessage(inbound.Data)

	case "join_lobby":
		c.handleJoinLobby(inbound.Data)

	default:
		c.logger.Warn().Str("event", inbound.Event).Msg("Listener sent unsupported event")
	}
}

// handleSendMessage posts an inbound chat message. A message carrying a known
// lobby id goes to that lobby's stream; anything else goes to the global stream.
func (c *wsClient) handleSendMessage(data json.RawMessage) {
	var payload struct {
		From    string `json:"from"`
		Text    string `json:"text"`
		Color   int    `json:"color,omitempty"`
		LobbyID string `json:"lobbyId,omitempty"`
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Listener sent invalid send_message payload")
		return
	}

	if payload.LobbyID != "" {
		if _, ok := c.deps.Lobbies.Get(payload.LobbyID); ok {
			if _, customErr := c.deps.Lobbies.PostLobby(payload.LobbyID, payload.From, payload.Text, payload.Color); customErr != nil {
				c.logger.Warn().Err(customErr).Str("lobby_id", payload.LobbyID).Msg("Rejected lobby message")
			}
			return
		}
	}

	if _, customErr := c.deps.Lobbies.PostGlobal(payload.From, payload.Text, payload.Color); customErr != nil {
		c.logger.Warn().Err(customErr).Msg("Rejected global message")
	}
}

// handleJoinLobby subscribes the listener to a lobby topic and records the
// membership, announcing the updated lobby to its topic.
func (c *wsClient) handleJoinLobby(data json.RawMessage) {
	var payload struct {
		LobbyID string `json:"lobbyId"`
		UserID  string `json:"userId"`
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Listener sent invalid join_lobby payload")
		return
	}

	if payload.LobbyID == "" || payload.UserID == "" {
		c.logger.Warn().Msg("join_lobby missing lobbyId or userId")
		return
	}

	// Subscribe before the membership write so the subscriber sees its own
	// lobby_update announcement.
	c.deps.Hub.Subscribe(c.listener, payload.LobbyID)

	if _, customErr := c.deps.Lobbies.JoinLobby(payload.LobbyID, payload.UserID); customErr != nil {
		c.deps.Hub.Unsubscribe(c.listener, payload.LobbyID)
		c.logger.Warn().Err(customErr).Str("lobby_id", payload.LobbyID).Msg("join_lobby rejected")
	}
}

// writePump writes delivered events from the listener channel to the
// connection and keeps the heartbeat alive.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in writePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.listener.C():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("Error writing message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}
