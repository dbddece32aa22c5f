/*
Package presence contains the in-memory source of truth for user identity,
online/playing state, group membership, and invite inboxes.

This file implements the invite inbox. Invites are ephemeral nudges: each
recipient's inbox is bounded (oldest dropped past the limit) and entries expire
after the configured TTL, both in memory and in the durable store.
*/
package presence

import (
	"context"
	"strings"

	"lklobby/internal/app/hub"
	"lklobby/internal/pkg/errs"
)

// SendInvite records an invite to the given recipient and announces it on the
// global topic. The recipient must be a known user.
func (r *Registry) SendInvite(ctx context.Context, toUserID, fromName string) (Invite, *errs.CustomError) {
	fromName = strings.TrimSpace(fromName)
	if fromName == "" {
		return Invite{}, errs.NewError(errs.ErrNameRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[toUserID]; !ok {
		return Invite{}, errs.NewError(errs.ErrUserNotFound)
	}

	inv := Invite{
		ID:       r.newInviteID(),
		ToUserID: toUserID,
		FromName: fromName,
		Time:     r.nowMillis(),
	}

	inbox := append(r.pruneInboxLocked(toUserID), inv)
	if len(inbox) > r.inboxLimit {
		inbox = inbox[len(inbox)-r.inboxLimit:]
	}
	r.invites[toUserID] = inbox

	if err := r.store.InsertInvite(ctx, inv); err != nil {
		r.logger.Error().Err(err).Str("to_user_id", toUserID).Msg("Invite durable write failed; memory retains the invite.")
		return Invite{}, errs.NewError(errs.ErrStoreUnavailable)
	}

	cutoff := inv.Time - r.inviteTTL.Milliseconds()
	if err := r.store.PruneInvites(ctx, toUserID, r.inboxLimit, cutoff); err != nil {
		// The insert committed; a failed prune only delays durable eviction.
		r.logger.Warn().Err(err).Str("to_user_id", toUserID).Msg("Durable invite prune failed.")
	}

	r.publisher.Publish(r.globalTopic, hub.EventNewInvite, inv)
	return inv, nil
}

// Invites returns a snapshot of the recipient's inbox, oldest first, with
// expired entries filtered out.
func (r *Registry) Invites(toUserID string) []Invite {
	r.mu.Lock()
	defer r.mu.Unlock()

	inbox := r.pruneInboxLocked(toUserID)
	out := make([]Invite, len(inbox))
	copy(out, inbox)
	return out
}

// pruneInboxLocked drops expired entries from the recipient's in-memory inbox
// and returns the surviving slice. Caller must hold the write lock.
func (r *Registry) pruneInboxLocked(toUserID string) []Invite {
	cutoff := r.nowMillis() - r.inviteTTL.Milliseconds()

	inbox := r.invites[toUserID]
	kept := inbox[:0]
	for _, inv := range inbox {
		if inv.Time >= cutoff {
			kept = append(kept, inv)
		}
	}

	if len(kept) == 0 {
		delete(r.invites, toUserID)
		return nil
	}
	r.invites[toUserID] = kept
	return kept
}
