/*
Package handler provides the HTTP handlers and routing setup for the lobby server.

This file contains the websocket upgrade handler: rate limiting, connection
upgrade, listener creation and global-topic subscription, and starting the
client read/write pumps.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"lklobby/internal/app/hub"
	"lklobby/internal/pkg/errs"
	"lklobby/internal/pkg/limiter"
	"lklobby/internal/pkg/logx"
	"lklobby/internal/pkg/randx"
	"lklobby/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the connection and
// attaches it to the broadcast hub as a global-topic listener. Lobby topics
// are joined later via inbound join_lobby events.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		listener := hub.NewListener(randx.UserID(), hub.DefaultListenerBuffer)
		deps.Hub.Subscribe(listener, hub.GlobalTopic)

		client := newWSClient(conn, listener, deps)

		go client.writePump()

		logx.Info("WebSocket listener connected", "listener_id", listener.ID())

		client.readPump()
	}
}
