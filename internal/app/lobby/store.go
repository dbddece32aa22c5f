/*
Package lobby implements the in-memory, ephemeral chat state: the global
message stream and per-lobby membership and message streams.

This file defines the Store, the exclusive owner of Lobby and Message entities.
Nothing here is persisted; lobbies and history exist only until process
restart. Every mutation publishes to the broadcast hub on the appropriate
topic, scoped either globally or to one lobby id.
*/
package lobby

import (
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

const (
	// GlobalHistoryLimit caps the global chat ring buffer.
	GlobalHistoryLimit = 200

	// LobbyHistoryLimit caps each lobby's chat ring buffer.
	LobbyHistoryLimit = 100

	// MaxMessageBytes caps a single message's text.
	MaxMessageBytes = 5000

	// DefaultMessageColor is used when a sender supplies no color.
	DefaultMessageColor = 0x6C63FF
)

// Message is a single chat entry, belonging either to the global stream or to
// exactly one lobby's stream.
type Message struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	Text  string `json:"text"`
	Time  int64  `json:"time"`
	Color int    `json:"color"`
}

// Lobby is a read-only snapshot of one lobby's state. Members preserve join
// order with set semantics.
type Lobby struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Creator  string    `json:"creator"`
	Members  []string  `json:"members"`
	Messages []Message `json:"messages"`
}

// lobbyState is the mutable representation behind Lobby snapshots.
type lobbyState struct {
	id        string
	name      string
	creator   string
	members   []string
	memberSet map[string]struct{}
	messages  *Ring
}

func (ls *lobbyState) snapshot() Lobby {
	members := make([]string, len(ls.members))
	copy(members, ls.members)

	return Lobby{
		ID:       ls.id,
		Name:     ls.name,
		Creator:  ls.creator,
		Members:  members,
		Messages: ls.messages.Snapshot(),
	}
}

// Publisher is the broadcast seam the store publishes chat events through.
type Publisher interface {
	Publish(topic, event string, payload any)
}

// Options tunes store behavior; zero-value fields fall back to production defaults.
type Options struct {
	Now          func() time.Time
	NewLobbyID   func() string
	NewMessageID func() string
}

// Store owns all lobby and message state in memory.
type Store struct {
	mu sync.RWMutex

	lobbies map[string]*lobbyState
	global  *Ring

	publisher Publisher
	logger    zerolog.Logger

	now          func() time.Time
	newLobbyID   func() string
	newMessageID func() string
}

// NewStore constructs an empty Store publishing through publisher.
func NewStore(publisher Publisher, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewLobbyID == nil {
		opts.NewLobbyID = randx.LobbyID
	}
	if opts.NewMessageID == nil {
		opts.NewMessageID = randx.MessageID
	}

	return &Store{
		lobbies:      make(map[string]*lobbyState),
		global:       NewRing(GlobalHistoryLimit),
		publisher:    publisher,
		logger:       logx.Logger().With().Str("component", "LobbyStore").Logger(),
		now:          opts.Now,
		newLobbyID:   opts.NewLobbyID,
		newMessageID: opts.NewMessageID,
	}
}

// CreateLobby allocates a fresh lobby containing only the creator and returns
// its snapshot. Lobbies are never deleted; they live until process restart.
func (s *Store) CreateLobby(name, creator, creatorID string) (Lobby, *errs.CustomError) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Lobby{}, errs.NewError(errs.ErrLobbyNameRequired)
	}

	ls := &lobbyState{
		id:        s.newLobbyID(),
		name:      name,
		creator:   creator,
		members:   []string{creatorID},
		memberSet: map[string]struct{}{creatorID: {}},
		messages:  NewRing(LobbyHistoryLimit),
	}

	s.mu.Lock()
	s.lobbies[ls.id] = ls
	snap := ls.snapshot()
	s.mu.Unlock()

	s.logger.Info().Str("lobby_id", ls.id).Str("name", name).Msg("Lobby created.")
	return snap, nil
}

// JoinLobby adds the user to the lobby's member list (idempotent) and
// announces the updated membership on the lobby's topic.
func (s *Store) JoinLobby(lobbyID, userID string) (Lobby, *errs.CustomError) {
	s.mu.Lock()

	ls, ok := s.lobbies[lobbyID]
	if !ok {
		s.mu.Unlock()
		return Lobby{}, errs.NewError(errs.ErrLobbyNotFound)
	}

	if _, member := ls.memberSet[userID]; !member {
		ls.memberSet[userID] = struct{}{}
		ls.members = append(ls.members, userID)
	}

	snap := ls.snapshot()
	s.mu.Unlock()

	s.publisher.Publish(lobbyID, hub.EventLobbyUpdate, snap)
	return snap, nil
}

// PostGlobal appends a message to the global stream, evicting the oldest past
// capacity, and announces it on the global topic.
func (s *Store) PostGlobal(from, text string, color int) (Message, *errs.CustomError) {
	msg, customErr := s.buildMessage(from, text, color)
	if customErr != nil {
		return Message{}, customErr
	}

	s.mu.Lock()
	s.global.Append(msg)
	s.mu.Unlock()

	s.publisher.Publish(hub.GlobalTopic, hub.EventNewGlobalMessage, msg)
	return msg, nil
}

// PostLobby appends a message to one lobby's stream and announces it on that
// lobby's topic.
func (s *Store) PostLobby(lobbyID, from, text string, color int) (Message, *errs.CustomError) {
	msg, customErr := s.buildMessage(from, text, color)
	if customErr != nil {
		return Message{}, customErr
	}

	s.mu.Lock()

	ls, ok := s.lobbies[lobbyID]
	if !ok {
		s.mu.Unlock()
		return Message{}, errs.NewError(errs.ErrLobbyNotFound)
	}

	ls.messages.Append(msg)
	s.mu.Unlock()

	s.publisher.Publish(lobbyID, hub.EventNewMessage, msg)
	return msg, nil
}

// Get returns a snapshot of one lobby.
func (s *Store) Get(lobbyID string) (Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ls, ok := s.lobbies[lobbyID]
	if !ok {
		return Lobby{}, false
	}
	return ls.snapshot(), true
}

// Lobbies returns a snapshot of every lobby, sorted by name.
func (s *Store) Lobbies() []Lobby {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lobbies := make([]Lobby, 0, len(s.lobbies))
	for _, ls := range s.lobbies {
		lobbies = append(lobbies, ls.snapshot())
	}
	sort.Slice(lobbies, func(i, j int) bool { return lobbies[i].Name < lobbies[j].Name })
	return lobbies
}

// GlobalMessages returns the global stream snapshot, oldest first.
func (s *Store) GlobalMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global.Snapshot()
}

// buildMessage validates text and stamps identity and time onto a new message.
func (s *Store) buildMessage(from, text string, color int) (Message, *errs.CustomError) {
	if strings.TrimSpace(text) == "" {
		return Message{}, errs.NewError(errs.ErrMessageContentEmpty)
	}
	if len(text) > MaxMessageBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	if color == 0 {
		color = DefaultMessageColor
	}

	return Message{
		ID:    s.newMessageID(),
		From:  from,
		Text:  text,
		Time:  s.now().UnixMilli(),
		Color: color,
	}, nil
}
