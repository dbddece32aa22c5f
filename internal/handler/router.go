/*
Package handler provides the HTTP handlers and routing setup for the lobby server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"lklobby/internal/pkg/limiter"
	"lklobby/internal/pkg/logx"
)

const (
	// RegisterRate limits registrations per IP: one every 2 seconds with a small burst.
	RegisterRate  = 0.5
	RegisterBurst = 3

	// ConnectRate limits websocket connections per IP.
	ConnectRate  = 0.2
	ConnectBurst = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	registerLimiter := limiter.NewIPRateLimiter(rate.Limit(RegisterRate), RegisterBurst)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/verify", HandleVerifyID(deps))
		})

		api.Route("/users", func(users chi.Router) {
			users.Get("/", HandleListUsers(deps))
			users.With(registerLimiter.Middleware).Post("/register", HandleRegister(deps))
			users.Post("/status", HandleSetStatus(deps))
		})

		api.Route("/lobbies", func(lobbies chi.Router) {
			lobbies.Get("/", HandleListLobbies(deps))
			lobbies.Post("/", HandleCreateLobby(deps))
			lobbies.Post("/{id}/join", HandleJoinLobby(deps))
		})

		api.Route("/chat", func(chat chi.Router) {
			chat.Get("/", HandleGlobalHistory(deps))
			chat.Post("/", HandlePostMessage(deps))
		})

		api.Route("/invites", func(invites chi.Router) {
			invites.Post("/", HandleSendInvite(deps))
			invites.Get("/{userId}", HandleListInvites(deps))
		})
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, connectLimiter, deps))

	return r
}
