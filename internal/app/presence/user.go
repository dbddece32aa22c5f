/*
Package presence contains the in-memory source of truth for user identity,
online/playing state, group membership, and invite inboxes.

This file defines the core entity types shared with the durable store adapter
and the broadcast payloads. Fields use JSON tags matching the wire format the
lobby clients consume.
*/
package presence

import "context"

// DefaultAccessGroup is the visibility group assigned to users at creation.
const DefaultAccessGroup = "default_group"

// User represents a lobby participant's identity and live status.
type User struct {
	// ID is the opaque unique token for the user, generated once and immutable.
	ID string `json:"id"`

	// Name is the display name, unique across the system; the de facto login key.
	Name string `json:"name"`

	// AccessID partitions users into visibility groups.
	AccessID string `json:"accessId"`

	// IsPlaying reports whether the user is currently in a game.
	// IsPlaying true implies IsOnline true after every registry mutation.
	IsPlaying bool `json:"isPlaying"`

	// IsOnline reports whether the user is currently connected.
	IsOnline bool `json:"isOnline"`

	// LastSeen is the timestamp of the user's last status-affecting action,
	// in milliseconds since epoch. It never decreases.
	LastSeen int64 `json:"lastSeen"`

	// AvatarColor is an RGB value from the fixed palette, chosen at creation.
	AvatarColor int `json:"avatarColor"`
}

// Invite is a nudge sent to a user, keyed by recipient. Inboxes are bounded
// and expire; invites are ephemeral by design.
type Invite struct {
	ID       string `json:"id"`
	ToUserID string `json:"toUserId"`
	FromName string `json:"fromName"`
	Time     int64  `json:"time"`
}

// StatusUpdate carries a partial user status write: only non-nil fields are
// applied to the durable row.
type StatusUpdate struct {
	IsOnline  *bool
	IsPlaying *bool
	LastSeen  *int64
}

// UserStore is the durable backing for the registry. Every write commits
// durably before returning; failures surface to the caller and are never
// silently dropped.
type UserStore interface {
	LoadAllUsers(ctx context.Context) ([]User, error)
	LoadAllInvites(ctx context.Context) (map[string][]Invite, error)
	UpsertUser(ctx context.Context, u User) error
	UpdateUserStatus(ctx context.Context, id string, upd StatusUpdate) error

	// FindIDByName reports the id bound to name in the durable store, if any.
	// The registry uses it as a defense-in-depth conflict check against rows
	// not yet reflected in memory.
	FindIDByName(ctx context.Context, name string) (string, bool, error)

	InsertInvite(ctx context.Context, inv Invite) error

	// PruneInvites drops the recipient's invites beyond the keep newest and any
	// older than the before timestamp (milliseconds since epoch).
	PruneInvites(ctx context.Context, toUserID string, keep int, before int64) error

	// PruneExpiredInvites drops every invite older than the before timestamp.
	PruneExpiredInvites(ctx context.Context, before int64) error
}

// Publisher is the broadcast seam the registry publishes presence events
// through. Delivery is fire-and-forget.
type Publisher interface {
	Publish(topic, event string, payload any)
}
