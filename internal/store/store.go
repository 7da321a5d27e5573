// Package store holds conversation state: per-channel message lists, the
// user directory and the server tree. Every mutation is atomic on its own;
// unknown channel or message IDs are no-ops, never errors.
package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

// Seed is the initial world loaded at process start.
type Seed struct {
	HumanID  string
	Users    []domain.User
	Servers  []domain.Server
	Messages map[string][]domain.Message // channel ID -> messages, oldest first
}

// Tuning holds the poll bootstrap engagement constants.
type Tuning struct {
	BootstrapChance  float64 `yaml:"bootstrap_chance"`  // per-persona chance to cast a simulated vote
	BootstrapCeiling int     `yaml:"bootstrap_ceiling"` // bootstrap only while total votes are below this
}

// DefaultTuning returns the product-tuned poll constants.
func DefaultTuning() Tuning {
	return Tuning{BootstrapChance: 0.3, BootstrapCeiling: 3}
}

// Store is the single owner of messages, reactions, polls and presence.
type Store struct {
	mu        sync.RWMutex
	humanID   string
	users     map[string]*domain.User
	userOrder []string
	servers   []domain.Server
	messages  map[string][]*domain.Message

	tuning Tuning
	rng    dice.Source
	now    func() time.Time
	logger *zap.Logger

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithTuning overrides the poll bootstrap constants.
func WithTuning(t Tuning) Option {
	return func(s *Store) { s.tuning = t }
}

// WithRand sets the random source used for simulated votes.
func WithRand(src dice.Source) Option {
	return func(s *Store) { s.rng = src }
}

// WithClock sets the clock used to stamp appended messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New builds a store from seed data.
func New(seed Seed, opts ...Option) *Store {
	s := &Store{
		humanID:  seed.HumanID,
		users:    make(map[string]*domain.User, len(seed.Users)),
		messages: make(map[string][]*domain.Message),
		tuning:   DefaultTuning(),
		now:      time.Now,
		logger:   zap.NewNop(),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = dice.New(0)
	}

	for _, u := range seed.Users {
		u := u
		if _, dup := s.users[u.ID]; !dup {
			s.userOrder = append(s.userOrder, u.ID)
		}
		s.users[u.ID] = &u
	}
	for _, srv := range seed.Servers {
		s.servers = append(s.servers, cloneServer(srv))
	}
	for channelID, msgs := range seed.Messages {
		list := make([]*domain.Message, 0, len(msgs))
		for _, m := range msgs {
			c := m.Clone()
			list = append(list, &c)
		}
		s.messages[channelID] = list
	}
	return s
}

// HumanID returns the ID of the human participant.
func (s *Store) HumanID() string {
	return s.humanID
}

// isPersona reports whether id is a simulated user (not the human, not system).
func (s *Store) isPersona(id string) bool {
	return id != s.humanID && id != domain.SystemUserID
}

// find returns the live message pointer and its index. Caller holds mu.
func (s *Store) find(channelID, id string) (*domain.Message, int) {
	for i, m := range s.messages[channelID] {
		if m.ID == id {
			return m, i
		}
	}
	return nil, -1
}

// AppendMessage adds msg to the tail of the channel and returns the stored
// copy. Missing ID and Timestamp are filled in.
func (s *Store) AppendMessage(channelID string, msg domain.Message) domain.Message {
	m := s.prepare(msg)

	s.mu.Lock()
	out := s.appendLocked(channelID, m)
	s.mu.Unlock()

	s.publish(Event{Kind: MessageAppended, ChannelID: channelID, MessageID: m.ID, UserID: m.UserID})
	return out
}

// AppendIfOnline appends msg only if its author is a known user who is not
// offline. The presence check and the append happen under one lock, so a
// concurrent SetStatus(offline) either lands first and blocks the post or
// lands after it.
func (s *Store) AppendIfOnline(channelID string, msg domain.Message) (domain.Message, bool) {
	m := s.prepare(msg)

	s.mu.Lock()
	u, ok := s.users[m.UserID]
	if !ok || !u.Online() {
		s.mu.Unlock()
		return domain.Message{}, false
	}
	out := s.appendLocked(channelID, m)
	s.mu.Unlock()

	s.publish(Event{Kind: MessageAppended, ChannelID: channelID, MessageID: m.ID, UserID: m.UserID})
	return out, true
}

func (s *Store) prepare(msg domain.Message) *domain.Message {
	m := msg.Clone()
	if m.ID == "" {
		m.ID = domain.NewID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	return &m
}

// appendLocked stores m at the channel tail. Caller holds mu.
func (s *Store) appendLocked(channelID string, m *domain.Message) domain.Message {
	s.messages[channelID] = append(s.messages[channelID], m)
	return m.Clone()
}

// EditMessage replaces a message's content and marks it edited.
func (s *Store) EditMessage(channelID, id, content string) bool {
	s.mu.Lock()
	m, _ := s.find(channelID, id)
	if m == nil {
		s.mu.Unlock()
		s.logger.Debug("edit of unknown message", zap.String("channel", channelID), zap.String("id", id))
		return false
	}
	m.Content = content
	m.Edited = true
	s.mu.Unlock()

	s.publish(Event{Kind: MessageEdited, ChannelID: channelID, MessageID: id})
	return true
}

// DeleteMessage removes a message without reordering the rest.
func (s *Store) DeleteMessage(channelID, id string) bool {
	s.mu.Lock()
	_, i := s.find(channelID, id)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug("delete of unknown message", zap.String("channel", channelID), zap.String("id", id))
		return false
	}
	list := s.messages[channelID]
	s.messages[channelID] = append(list[:i:i], list[i+1:]...)
	s.mu.Unlock()

	s.publish(Event{Kind: MessageDeleted, ChannelID: channelID, MessageID: id})
	return true
}

// ToggleReaction flips the human's own reaction, or adds a persona's.
// A human toggle on an emoji they already reacted with decrements it and
// removes the entry at zero; otherwise it increments or creates it.
// Non-human actors always add one.
func (s *Store) ToggleReaction(channelID, id, emoji string, actorIsHuman bool) bool {
	if emoji == "" {
		return false
	}
	s.mu.Lock()
	m, _ := s.find(channelID, id)
	if m == nil {
		s.mu.Unlock()
		return false
	}

	idx := -1
	for i, r := range m.Reactions {
		if r.Emoji == emoji {
			idx = i
			break
		}
	}
	switch {
	case idx < 0:
		m.Reactions = append(m.Reactions, domain.Reaction{Emoji: emoji, Count: 1, Me: actorIsHuman})
	case actorIsHuman && m.Reactions[idx].Me:
		m.Reactions[idx].Count--
		m.Reactions[idx].Me = false
		if m.Reactions[idx].Count <= 0 {
			m.Reactions = append(m.Reactions[:idx:idx], m.Reactions[idx+1:]...)
		}
	default:
		m.Reactions[idx].Count++
		if actorIsHuman {
			m.Reactions[idx].Me = true
		}
	}
	s.mu.Unlock()

	s.publish(Event{Kind: ReactionChanged, ChannelID: channelID, MessageID: id})
	return true
}

// TogglePin flips a message's pinned flag.
func (s *Store) TogglePin(channelID, id string) bool {
	s.mu.Lock()
	m, _ := s.find(channelID, id)
	if m == nil {
		s.mu.Unlock()
		return false
	}
	m.Pinned = !m.Pinned
	s.mu.Unlock()

	s.publish(Event{Kind: PinChanged, ChannelID: channelID, MessageID: id})
	return true
}

// SetStatus changes a user's presence.
func (s *Store) SetStatus(userID string, status domain.Status) bool {
	if !domain.ValidStatus(status) {
		return false
	}
	s.mu.Lock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	u.Status = status
	s.mu.Unlock()

	s.publish(Event{Kind: PresenceChanged, UserID: userID})
	return true
}

// Messages returns a deep copy of the channel's messages, oldest first.
func (s *Store) Messages(channelID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.messages[channelID]
	out := make([]domain.Message, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}

// Message returns a copy of one message.
func (s *Store) Message(channelID, id string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, _ := s.find(channelID, id)
	if m == nil {
		return domain.Message{}, false
	}
	return m.Clone(), true
}

// ResolveReply returns the message msg replies to. Dangling or empty
// references resolve to false: no reply context.
func (s *Store) ResolveReply(channelID string, msg domain.Message) (domain.Message, bool) {
	if msg.ReplyToID == "" {
		return domain.Message{}, false
	}
	return s.Message(channelID, msg.ReplyToID)
}

// Pinned returns the channel's pinned messages, oldest first.
func (s *Store) Pinned(channelID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Message
	for _, m := range s.messages[channelID] {
		if m.Pinned {
			out = append(out, m.Clone())
		}
	}
	return out
}

// User looks up a user by ID.
func (s *Store) User(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, false
	}
	return cloneUser(*u), true
}

// Users returns all users in seed order.
func (s *Store) Users() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, cloneUser(*s.users[id]))
	}
	return out
}

// Personas returns every simulated user in seed order, any status.
func (s *Store) Personas() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.User
	for _, id := range s.userOrder {
		if s.isPersona(id) {
			out = append(out, cloneUser(*s.users[id]))
		}
	}
	return out
}

// OnlinePersonas returns simulated users whose status is not offline.
func (s *Store) OnlinePersonas() []domain.User {
	all := s.Personas()
	out := all[:0]
	for _, u := range all {
		if u.Online() {
			out = append(out, u)
		}
	}
	return out
}

// Servers returns a copy of the server tree.
func (s *Store) Servers() []domain.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Server, len(s.servers))
	for i, srv := range s.servers {
		out[i] = cloneServer(srv)
	}
	return out
}

// Server looks up a server by ID.
func (s *Store) Server(id string) (domain.Server, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, srv := range s.servers {
		if srv.ID == id {
			return cloneServer(srv), true
		}
	}
	return domain.Server{}, false
}

// Channel looks up a channel across all servers and returns its server ID.
func (s *Store) Channel(id string) (domain.Channel, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, srv := range s.servers {
		if c, ok := srv.Channel(id); ok {
			return c, srv.ID, true
		}
	}
	return domain.Channel{}, "", false
}

func cloneUser(u domain.User) domain.User {
	u.Roles = append([]string(nil), u.Roles...)
	return u
}

func cloneServer(srv domain.Server) domain.Server {
	out := srv
	out.Channels = make([]domain.Channel, len(srv.Channels))
	for i, c := range srv.Channels {
		c.ActiveUsers = append([]string(nil), c.ActiveUsers...)
		out.Channels[i] = c
	}
	out.Categories = make([]domain.Category, len(srv.Categories))
	for i, c := range srv.Categories {
		c.ChannelIDs = append([]string(nil), c.ChannelIDs...)
		out.Categories[i] = c
	}
	out.Members = append([]string(nil), srv.Members...)
	return out
}
