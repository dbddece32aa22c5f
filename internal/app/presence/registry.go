/*
Package presence contains the in-memory source of truth for user identity,
online/playing state, group membership, and invite inboxes.

This file defines the Registry, the only component allowed to decide whether a
user is online. It is loaded from the durable store at startup, mutated by
request handlers and the reaper through the same public API, and writes through
to the store on every mutation. In-memory state is updated optimistically: a
failed durable write propagates to the caller but is never rolled back, and
self-heals on the next successful write touching that user.
*/
package presence

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lklobby/internal/app/hub"
	"lklobby/internal/pkg/errs"
	"lklobby/internal/pkg/logx"
	"lklobby/internal/pkg/randx"
)

// Options tunes registry behavior. Zero-value fields fall back to production
// defaults; tests inject deterministic clock, id, and color sources.
type Options struct {
	Now              func() time.Time
	NewID            func() string
	NewInviteID      func() string
	PickColor        func() int
	InviteTTL        time.Duration
	InviteInboxLimit int
}

// Registry owns every User, AccessGroup, and Invite entity in memory.
// Reads return copies, never live references.
type Registry struct {
	mu sync.RWMutex

	// users is keyed by user id.
	users map[string]*User

	// nameToID maps each display name to exactly one id for the process lifetime.
	nameToID map[string]string

	// accessGroups is a derived index: access group key to member id set,
	// rebuilt from users at load and updated incrementally on creation.
	accessGroups map[string]map[string]struct{}

	// invites holds per-recipient inboxes, oldest first, bounded by inboxLimit.
	invites map[string][]Invite

	store     UserStore
	publisher Publisher
	logger    zerolog.Logger

	now         func() time.Time
	newID       func() string
	newInviteID func() string
	pickColor   func() int

	inviteTTL  time.Duration
	inboxLimit int

	globalTopic string
}

// NewRegistry constructs a Registry writing through to store and publishing
// presence events on the given global topic of publisher.
func NewRegistry(store UserStore, publisher Publisher, globalTopic string, opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = randx.UserID
	}
	if opts.NewInviteID == nil {
		opts.NewInviteID = randx.InviteID
	}
	if opts.PickColor == nil {
		opts.PickColor = randx.AvatarColor
	}
	if opts.InviteTTL <= 0 {
		opts.InviteTTL = 24 * time.Hour
	}
	if opts.InviteInboxLimit <= 0 {
		opts.InviteInboxLimit = 20
	}

	return &Registry{
		users:        make(map[string]*User),
		nameToID:     make(map[string]string),
		accessGroups: make(map[string]map[string]struct{}),
		invites:      make(map[string][]Invite),
		store:        store,
		publisher:    publisher,
		logger:       logx.Logger().With().Str("component", "Registry").Logger(),
		now:          opts.Now,
		newID:        opts.NewID,
		newInviteID:  opts.NewInviteID,
		pickColor:    opts.PickColor,
		inviteTTL:    opts.InviteTTL,
		inboxLimit:   opts.InviteInboxLimit,
		globalTopic:  globalTopic,
	}
}

// Load populates the registry from the durable store. Expired invites are
// pruned durably before loading; the access-group index is rebuilt from users.
func (r *Registry) Load(ctx context.Context) error {
	cutoff := r.nowMillis() - r.inviteTTL.Milliseconds()
	if err := r.store.PruneExpiredInvites(ctx, cutoff); err != nil {
		return err
	}

	users, err := r.store.LoadAllUsers(ctx)
	if err != nil {
		return err
	}

	invites, err := r.store.LoadAllInvites(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
		r.nameToID[u.Name] = u.ID
		r.indexGroupMember(u.AccessID, u.ID)
	}

	for to, inbox := range invites {
		if len(inbox) > r.inboxLimit {
			inbox = inbox[len(inbox)-r.inboxLimit:]
		}
		r.invites[to] = inbox
	}

	r.logger.Info().
		Int("users", len(r.users)).
		Int("inboxes", len(r.invites)).
		Msg("Registry loaded from durable store.")

	return nil
}

// Register binds a display name to an identity and brings it online.
// A known name transitions the existing user to online and returns the existing
// identity (idempotent auto-login); a new name allocates one, using suggestedID
// when provided. The durable store is consulted as a defense-in-depth conflict
// check for rows not yet reflected in memory.
func (r *Registry) Register(ctx context.Context, name, suggestedID string) (User, *errs.CustomError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, errs.NewError(errs.ErrNameRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, known := r.nameToID[name]; known {
		u := r.users[id]
		u.IsOnline = true
		r.touchLocked(u)

		if err := r.persistStatusLocked(ctx, u); err != nil {
			r.logger.Error().Err(err).Str("user_id", u.ID).Msg("Auto-login durable write failed; memory retains the change.")
			return User{}, errs.NewError(errs.ErrStoreUnavailable)
		}

		r.publisher.Publish(r.globalTopic, hub.EventStatusUpdate, *u)
		return *u, nil
	}

	// Name unknown in memory; the store may still hold a conflicting row from
	// the window between a write and a restart.
	if _, taken, err := r.store.FindIDByName(ctx, name); err != nil {
		return User{}, errs.NewError(errs.ErrStoreUnavailable)
	} else if taken {
		return User{}, errs.NewError(errs.ErrNameTaken)
	}

	id := suggestedID
	if id == "" {
		id = r.newID()
	}

	u := &User{
		ID:          id,
		Name:        name,
		AccessID:    DefaultAccessGroup,
		IsOnline:    true,
		IsPlaying:   false,
		LastSeen:    r.nowMillis(),
		AvatarColor: r.pickColor(),
	}

	r.users[u.ID] = u
	r.nameToID[u.Name] = u.ID
	r.indexGroupMember(u.AccessID, u.ID)

	if err := r.store.UpsertUser(ctx, *u); err != nil {
		r.logger.Error().Err(err).Str("user_id", u.ID).Msg("Registration durable write failed; memory retains the user.")
		return User{}, errs.NewError(errs.ErrStoreUnavailable)
	}

	r.publisher.Publish(r.globalTopic, hub.EventStatusUpdate, *u)
	r.logger.Info().Str("user_id", u.ID).Str("name", u.Name).Msg("User registered.")
	return *u, nil
}

// SetStatus applies a partial update of only the supplied fields and refreshes
// the user's last-seen timestamp. After the mutation, playing always implies
// online: an explicit offline clears the playing flag, while playing without a
// supplied online flag promotes the user to online.
func (r *Registry) SetStatus(ctx context.Context, id string, isOnline, isPlaying *bool) (User, *errs.CustomError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, errs.NewError(errs.ErrUserNotFound)
	}

	if isOnline != nil {
		u.IsOnline = *isOnline
	}
	if isPlaying != nil {
		u.IsPlaying = *isPlaying
	}

	if isOnline != nil && !*isOnline {
		u.IsPlaying = false
	} else if u.IsPlaying {
		u.IsOnline = true
	}

	r.touchLocked(u)

	if err := r.persistStatusLocked(ctx, u); err != nil {
		r.logger.Error().Err(err).Str("user_id", u.ID).Msg("Status durable write failed; memory retains the change.")
		return User{}, errs.NewError(errs.ErrStoreUnavailable)
	}

	r.publisher.Publish(r.globalTopic, hub.EventStatusUpdate, *u)
	return *u, nil
}

// Reap demotes every online user whose inactivity exceeds threshold to offline
// and not playing, persisting and publishing each demotion. A single user's
// write failure never aborts the sweep. It returns the demoted names and is
// idempotent: a second pass with no intervening activity changes nothing.
func (r *Registry) Reap(ctx context.Context, now time.Time, threshold time.Duration) []string {
	nowMs := now.UnixMilli()
	thresholdMs := threshold.Milliseconds()

	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []string
	for _, u := range r.users {
		if !u.IsOnline || nowMs-u.LastSeen <= thresholdMs {
			continue
		}

		u.IsOnline = false
		u.IsPlaying = false

		offline := false
		notPlaying := false
		err := r.store.UpdateUserStatus(ctx, u.ID, StatusUpdate{IsOnline: &offline, IsPlaying: &notPlaying})
		if err != nil {
			r.logger.Error().Err(err).Str("user_id", u.ID).Msg("Reap durable write failed; continuing sweep.")
		}

		r.publisher.Publish(r.globalTopic, hub.EventStatusUpdate, *u)
		reaped = append(reaped, u.Name)
	}

	sort.Strings(reaped)
	return reaped
}

// Users returns a snapshot of every user, sorted by name for stable listings.
func (r *Registry) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}

// Get returns a copy of the user with the given id.
func (r *Registry) Get(id string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// GroupMembers returns a snapshot of the users in one access group, sorted by name.
func (r *Registry) GroupMembers(accessID string) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]User, 0, len(r.accessGroups[accessID]))
	for id := range r.accessGroups[accessID] {
		if u, ok := r.users[id]; ok {
			members = append(members, *u)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
	return members
}

// CountOnline reports how many users are currently online.
func (r *Registry) CountOnline() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, u := range r.users {
		if u.IsOnline {
			count++
		}
	}
	return count
}

// CountPlaying reports how many users are currently playing.
func (r *Registry) CountPlaying() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, u := range r.users {
		if u.IsPlaying {
			count++
		}
	}
	return count
}

// touchLocked refreshes the user's last-seen timestamp without ever moving it
// backwards. Caller must hold the write lock.
func (r *Registry) touchLocked(u *User) {
	if now := r.nowMillis(); now > u.LastSeen {
		u.LastSeen = now
	}
}

// persistStatusLocked writes the user's effective status fields through to the
// store. Caller must hold the write lock.
func (r *Registry) persistStatusLocked(ctx context.Context, u *User) error {
	online := u.IsOnline
	playing := u.IsPlaying
	lastSeen := u.LastSeen
	return r.store.UpdateUserStatus(ctx, u.ID, StatusUpdate{
		IsOnline:  &online,
		IsPlaying: &playing,
		LastSeen:  &lastSeen,
	})
}

// indexGroupMember adds a user id to the access-group index.
// Caller must hold the write lock.
func (r *Registry) indexGroupMember(accessID, userID string) {
	group, ok := r.accessGroups[accessID]
	if !ok {
		group = make(map[string]struct{})
		r.accessGroups[accessID] = group
	}
	group[userID] = struct{}{}
}

func (r *Registry) nowMillis() int64 {
	return r.now().UnixMilli()
}
