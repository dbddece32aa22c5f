package testfixtures

import (
	"context"
	"sort"
	"sync"

	"lklobby/internal/app/presence"
)

// MemoryUserStore is an in-memory presence.UserStore used by registry tests.
// Setting FailWith makes every subsequent call return that error, simulating
// an unreachable durable store.
type MemoryUserStore struct {
	mu sync.Mutex

	users   map[string]presence.User
	invites map[string][]presence.Invite

	failWith     error
	statusWrites int
	upserts      int
}

// NewMemoryUserStore constructs an empty store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:   make(map[string]presence.User),
		invites: make(map[string][]presence.Invite),
	}
}

// FailWith makes every subsequent store call return err; pass nil to recover.
func (m *MemoryUserStore) FailWith(err error) {
	m.mu.Lock()
	m.failWith = err
	m.mu.Unlock()
}

// StatusWrites reports how many UpdateUserStatus calls have been accepted.
func (m *MemoryUserStore) StatusWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusWrites
}

// Upserts reports how many UpsertUser calls have been accepted.
func (m *MemoryUserStore) Upserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// Seed inserts a user directly, bypassing failure injection.
func (m *MemoryUserStore) Seed(u presence.User) {
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
}

// User returns the stored row for id.
func (m *MemoryUserStore) User(id string) (presence.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

func (m *MemoryUserStore) LoadAllUsers(ctx context.Context) ([]presence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	users := make([]presence.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (m *MemoryUserStore) LoadAllInvites(ctx context.Context) (map[string][]presence.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	out := make(map[string][]presence.Invite, len(m.invites))
	for to, inbox := range m.invites {
		copied := make([]presence.Invite, len(inbox))
		copy(copied, inbox)
		out[to] = copied
	}
	return out, nil
}

func (m *MemoryUserStore) UpsertUser(ctx context.Context, u presence.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	m.users[u.ID] = u
	m.upserts++
	return nil
}

func (m *MemoryUserStore) UpdateUserStatus(ctx context.Context, id string, upd presence.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	u, ok := m.users[id]
	if !ok {
		return nil
	}

	if upd.IsOnline != nil {
		u.IsOnline = *upd.IsOnline
	}
	if upd.IsPlaying != nil {
		u.IsPlaying = *upd.IsPlaying
	}
	if upd.LastSeen != nil {
		u.LastSeen = *upd.LastSeen
	}

	m.users[id] = u
	m.statusWrites++
	return nil
}

func (m *MemoryUserStore) FindIDByName(ctx context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return "", false, m.failWith
	}

	for id, u := range m.users {
		if u.Name == name {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (m *MemoryUserStore) InsertInvite(ctx context.Context, inv presence.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	m.invites[inv.ToUserID] = append(m.invites[inv.ToUserID], inv)
	return nil
}

func (m *MemoryUserStore) PruneInvites(ctx context.Context, toUserID string, keep int, before int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	inbox := m.invites[toUserID]
	var kept []presence.Invite
	for _, inv := range inbox {
		if inv.Time >= before {
			kept = append(kept, inv)
		}
	}
	if len(kept) > keep {
		kept = kept[len(kept)-keep:]
	}
	m.invites[toUserID] = kept
	return nil
}

func (m *MemoryUserStore) PruneExpiredInvites(ctx context.Context, before int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	for to, inbox := range m.invites {
		var kept []presence.Invite
		for _, inv := range inbox {
			if inv.Time >= before {
				kept = append(kept, inv)
			}
		}
		m.invites[to] = kept
	}
	return nil
}
