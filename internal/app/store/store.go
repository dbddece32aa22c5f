/*
Package store translates user and invite entity reads/writes to the durable
store's schema (two tables: users, invites). It owns no in-memory state.

Every operation acquires one pooled handle, commits durably before returning,
and releases the handle on all paths. Failures, including pool exhaustion,
surface as ErrUnavailable-wrapped errors.
*/
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"lklobby/internal/app/db"
	"lklobby/internal/app/presence"
)

// ErrUnavailable indicates that the durable store could not be reached within
// the pool's acquire timeout, or that an underlying read/write failed.
var ErrUnavailable = errors.New("store: durable store unavailable")

// Store is the durable store adapter backed by the fixed handle pool.
type Store struct {
	pool *db.HandlePool
}

// New constructs a Store on top of an initialized handle pool.
func New(pool *db.HandlePool) *Store {
	return &Store{pool: pool}
}

// withHandle runs fn with a pooled handle, guaranteeing exactly one release.
func (s *Store) withHandle(ctx context.Context, op string, fn func(conn *sql.Conn) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("store: %s: %w: %w", op, ErrUnavailable, err)
	}
	defer s.pool.Release(conn)

	if err := fn(conn); err != nil {
		return fmt.Errorf("store: %s: %w: %w", op, ErrUnavailable, err)
	}
	return nil
}

// LoadAllUsers reads every user row from the store.
func (s *Store) LoadAllUsers(ctx context.Context) ([]presence.User, error) {
	var users []presence.User

	err := s.withHandle(ctx, "load users", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, name, access_id, is_playing, is_online, last_seen, avatar_color FROM users`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u presence.User
			if err := rows.Scan(&u.ID, &u.Name, &u.AccessID, &u.IsPlaying, &u.IsOnline, &u.LastSeen, &u.AvatarColor); err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// LoadAllInvites reads every invite row, grouped by recipient and ordered
// oldest first within each inbox.
func (s *Store) LoadAllInvites(ctx context.Context) (map[string][]presence.Invite, error) {
	invites := make(map[string][]presence.Invite)

	err := s.withHandle(ctx, "load invites", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx,
			`SELECT id, to_user_id, from_name, time FROM invites ORDER BY time ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var inv presence.Invite
			if err := rows.Scan(&inv.ID, &inv.ToUserID, &inv.FromName, &inv.Time); err != nil {
				return err
			}
			invites[inv.ToUserID] = append(invites[inv.ToUserID], inv)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return invites, nil
}

// UpsertUser writes the full user row, replacing any existing row with the same id.
func (s *Store) UpsertUser(ctx context.Context, u presence.User) error {
	return s.withHandle(ctx, "upsert user", func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO users (id, name, access_id, is_playing, is_online, last_seen, avatar_color)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				access_id = excluded.access_id,
				is_playing = excluded.is_playing,
				is_online = excluded.is_online,
				last_seen = excluded.last_seen,
				avatar_color = excluded.avatar_color`,
			u.ID, u.Name, u.AccessID, u.IsPlaying, u.IsOnline, u.LastSeen, u.AvatarColor)
		return err
	})
}

// UpdateUserStatus applies a partial update of only the supplied fields to the
// user row. A fully empty update is a no-op.
func (s *Store) UpdateUserStatus(ctx context.Context, id string, upd presence.StatusUpdate) error {
	assignments := make([]string, 0, 3)
	values := make([]any, 0, 4)

	if upd.IsOnline != nil {
		assignments = append(assignments, "is_online = ?")
		values = append(values, *upd.IsOnline)
	}
	if upd.IsPlaying != nil {
		assignments = append(assignments, "is_playing = ?")
		values = append(values, *upd.IsPlaying)
	}
	if upd.LastSeen != nil {
		assignments = append(assignments, "last_seen = ?")
		values = append(values, *upd.LastSeen)
	}

	if len(assignments) == 0 {
		return nil
	}
	values = append(values, id)

	return s.withHandle(ctx, "update user status", func(conn *sql.Conn) error {
		query := "UPDATE users SET " + strings.Join(assignments, ", ") + " WHERE id = ?"
		_, err := conn.ExecContext(ctx, query, values...)
		return err
	})
}

// FindIDByName reports the id bound to name in the durable store, if any.
func (s *Store) FindIDByName(ctx context.Context, name string) (string, bool, error) {
	var id string
	found := false

	err := s.withHandle(ctx, "find id by name", func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `SELECT id FROM users WHERE name = ?`, name)
		switch err := row.Scan(&id); {
		case errors.Is(err, sql.ErrNoRows):
			return nil
		case err != nil:
			return err
		default:
			found = true
			return nil
		}
	})
	if err != nil {
		return "", false, err
	}
	return id, found, nil
}

// InsertInvite appends an invite row.
func (s *Store) InsertInvite(ctx context.Context, inv presence.Invite) error {
	return s.withHandle(ctx, "insert invite", func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO invites (id, to_user_id, from_name, time) VALUES (?, ?, ?, ?)`,
			inv.ID, inv.ToUserID, inv.FromName, inv.Time)
		return err
	})
}

// PruneInvites drops the recipient's invites beyond the keep newest and any
// older than the before timestamp.
func (s *Store) PruneInvites(ctx context.Context, toUserID string, keep int, before int64) error {
	return s.withHandle(ctx, "prune invites", func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			DELETE FROM invites
			WHERE to_user_id = ?
			  AND (time < ? OR id NOT IN (
				SELECT id FROM invites WHERE to_user_id = ? ORDER BY time DESC, id DESC LIMIT ?
			  ))`,
			toUserID, before, toUserID, keep)
		return err
	})
}

// PruneExpiredInvites drops every invite older than the before timestamp.
func (s *Store) PruneExpiredInvites(ctx context.Context, before int64) error {
	return s.withHandle(ctx, "prune expired invites", func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM invites WHERE time < ?`, before)
		return err
	})
}
