/*
Package handler provides the HTTP handlers and routing setup for the lobby server.

This file contains the invite handlers: sending a nudge to another user and
reading a recipient's bounded inbox.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lklobby/internal/pkg/errs"
	"lklobby/internal/pkg/req"
	"lklobby/internal/pkg/resp"
)

type SendInviteInput struct {
	ToUserID string `json:"toUserId"`
	FromName string `json:"fromName"`
}

// HandleSendInvite records an invite for the recipient and announces it on the
// global topic.
func HandleSendInvite(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SendInviteInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.ToUserID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		inv, customErr := deps.Registry.SendInvite(r.Context(), input.ToUserID, input.FromName)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"invite": inv})
	}
}

// HandleListInvites returns the recipient's current invite inbox, oldest first.
func HandleListInvites(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"invites": deps.Registry.Invites(userID),
		})
	}
}
