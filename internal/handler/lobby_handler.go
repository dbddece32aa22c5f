/*
Package handler provides the HTTP handlers and routing setup for the lobby server.

This file contains the lobby and chat handlers: lobby listing and creation,
membership joins, and message posting to the global or a lobby-scoped stream.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lklobby/internal/pkg/errs"
	"lklobby/internal/pkg/req"
	"lklobby/internal/pkg/resp"
)

// HandleListLobbies returns a snapshot of every lobby.
func HandleListLobbies(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"lobbies": deps.Lobbies.Lobbies(),
		})
	}
}

type CreateLobbyInput struct {
	Name     string `json:"name"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// HandleCreateLobby allocates a new lobby with the creator as its only member.
func HandleCreateLobby(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CreateLobbyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		lb, customErr := deps.Lobbies.CreateLobby(input.Name, input.UserName, input.UserID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"lobbyId": lb.ID})
	}
}

type JoinLobbyInput struct {
	UserID string `json:"userId"`
}

// HandleJoinLobby adds a user to a lobby's member list and returns the updated
// lobby snapshot. Joining an already-joined lobby is a no-op.
func HandleJoinLobby(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID := chi.URLParam(r, "id")

		var input JoinLobbyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		lb, customErr := deps.Lobbies.JoinLobby(lobbyID, input.UserID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"lobby": lb})
	}
}

type PostMessageInput struct {
	From    string `json:"from"`
	Text    string `json:"text"`
	Color   int    `json:"color,omitempty"`
	LobbyID string `json:"lobbyId,omitempty"`
}

// HandlePostMessage appends a chat message to the global stream, or to one
// lobby's stream when a lobby id is supplied, and returns the stored message.
func HandlePostMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PostMessageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.LobbyID != "" {
			msg, customErr := deps.Lobbies.PostLobby(input.LobbyID, input.From, input.Text, input.Color)
			if customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			resp.RespondSuccess(w, r, map[string]any{"message": msg})
			return
		}

		msg, customErr := deps.Lobbies.PostGlobal(input.From, input.Text, input.Color)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		resp.RespondSuccess(w, r, map[string]any{"message": msg})
	}
}

// HandleGlobalHistory returns the global chat ring snapshot, oldest first.
func HandleGlobalHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"messages": deps.Lobbies.GlobalMessages(),
		})
	}
}
