/*
Package handler provides the HTTP handlers and routing setup for the lobby server.

This file contains the identity and presence handlers: stateless id
verification, registration with auto-login, partial status updates, user
listings, and the health check.
*/
package handler

import (
	"net/http"

	"lklobby/internal/app/presence"
	"lklobby/internal/pkg/randx"
	"lklobby/internal/pkg/req"
	"lklobby/internal/pkg/resp"
)

// HandleVerifyID returns a fresh opaque user id. It is stateless and does not
// touch the registry; clients use it to obtain an identity before registering.
func HandleVerifyID(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"userId": randx.UserID(),
		})
	}
}

type RegisterInput struct {
	Name   string `json:"name"`
	UserID string `json:"userId,omitempty"`
}

// HandleRegister binds a display name to an identity and brings it online.
// Registering an already-known name acts as login and returns the existing user.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, customErr := deps.Registry.Register(r.Context(), input.Name, input.UserID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

type SetStatusInput struct {
	UserID    string `json:"userId"`
	IsOnline  *bool  `json:"isOnline,omitempty"`
	IsPlaying *bool  `json:"isPlaying,omitempty"`
}

// HandleSetStatus applies a partial status update to an existing user.
func HandleSetStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SetStatusInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, customErr := deps.Registry.SetStatus(r.Context(), input.UserID, input.IsOnline, input.IsPlaying)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

// HandleListUsers returns a snapshot of users. An optional "group" query
// parameter restricts the listing to one access group; by default the
// implicit default group's members are returned.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := r.URL.Query().Get("group")
		if group == "" {
			group = presence.DefaultAccessGroup
		}

		resp.RespondSuccess(w, r, map[string]any{
			"users": deps.Registry.GroupMembers(group),
		})
	}
}

// HandleHealth reports liveness plus the online/playing counters.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":       "ok",
			"usersOnline":  deps.Registry.CountOnline(),
			"usersPlaying": deps.Registry.CountPlaying(),
		})
	}
}
