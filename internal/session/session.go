// Package session is the human side of the chat: sending, editing and
// reacting in the active channel, plus navigation between servers and
// channels. Every send is resolved to persona targets and handed to the
// scheduler, scoped to the channel it was sent in.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/internal/metrics"
	"github.com/naveenspark/glitchcity/internal/orchestrator"
	"github.com/naveenspark/glitchcity/internal/scheduler"
	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/targeting"
	"github.com/naveenspark/glitchcity/internal/typing"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

var (
	ErrEmptyMessage   = errors.New("session: message is empty")
	ErrNotTextChannel = errors.New("session: channel does not accept text")
	ErrUnknownChannel = errors.New("session: unknown channel")
	ErrUnknownServer  = errors.New("session: unknown server")
)

// Deps are the collaborators a session drives.
type Deps struct {
	Store        *store.Store
	Typing       *typing.Tracker
	Resolver     *targeting.Resolver
	Scheduler    *scheduler.Scheduler
	Orchestrator *orchestrator.Orchestrator
	Rand         dice.Source
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Session tracks the human's view and routes their actions.
type Session struct {
	d   Deps
	ctx context.Context // lifetime of scheduled response tasks

	mu            sync.RWMutex
	activeServer  string
	activeChannel string
	voiceChannel  string
}

// SendResult describes an accepted message.
type SendResult struct {
	Message domain.Message
	Targets []targeting.Target
	Delays  []time.Duration
}

// New opens a session viewing channelID in serverID. Response tasks run
// under ctx, so they outlive view changes but stop with the process.
func New(ctx context.Context, d Deps, serverID, channelID string) (*Session, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Rand == nil {
		d.Rand = dice.New(0)
	}
	s := &Session{d: d, ctx: ctx}

	srv, ok := d.Store.Server(serverID)
	if !ok {
		return nil, ErrUnknownServer
	}
	s.activeServer = srv.ID
	if channelID == "" {
		if c, ok := srv.FirstTextChannel(); ok {
			channelID = c.ID
		}
	}
	if c, ok := srv.Channel(channelID); !ok || !c.AcceptsText() {
		return nil, ErrUnknownChannel
	}
	s.activeChannel = channelID
	return s, nil
}

// Send posts content to the active channel and schedules persona replies.
func (s *Session) Send(ctx context.Context, content, replyToID string) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return SendResult{}, ErrEmptyMessage
	}

	channelID := s.ActiveChannelID()
	ch, _, ok := s.d.Store.Channel(channelID)
	if !ok {
		return SendResult{}, ErrUnknownChannel
	}
	if !ch.AcceptsText() {
		return SendResult{}, ErrNotTextChannel
	}

	history := s.d.Store.Messages(channelID)
	text, poll := ExpandCommand(content, s.d.Rand)
	msg := s.d.Store.AppendMessage(channelID, domain.Message{
		UserID:    s.d.Store.HumanID(),
		Content:   text,
		ReplyToID: replyToID,
		Poll:      poll,
	})

	targets := s.d.Resolver.Resolve(targeting.Input{
		Content:   msg.Content,
		ReplyToID: replyToID,
		History:   history,
		Personas:  s.d.Store.Personas(),
		HumanID:   s.d.Store.HumanID(),
		Now:       s.d.Now(),
	})
	for _, t := range targets {
		s.d.Metrics.Target(string(t.Reason))
	}

	trigger := msg.Content
	delays := s.d.Scheduler.Schedule(s.ctx, channelID, targets, func(ctx context.Context, chID string, t targeting.Target) {
		s.d.Orchestrator.Respond(ctx, orchestrator.Job{ChannelID: chID, PersonaID: t.PersonaID, Trigger: trigger})
	})

	s.d.Logger.Info("message sent",
		zap.String("channel", channelID),
		zap.String("id", msg.ID),
		zap.Strings("targets", targeting.IDs(targets)),
	)
	return SendResult{Message: msg, Targets: targets, Delays: delays}, nil
}

// Edit replaces the content of a message in the active channel.
func (s *Session) Edit(id, content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	return s.d.Store.EditMessage(s.ActiveChannelID(), id, content)
}

// Delete removes a message from the active channel.
func (s *Session) Delete(id string) bool {
	return s.d.Store.DeleteMessage(s.ActiveChannelID(), id)
}

// React toggles the human's emoji on a message.
func (s *Session) React(id, emoji string) bool {
	return s.d.Store.ToggleReaction(s.ActiveChannelID(), id, emoji, true)
}

// TogglePin pins or unpins a message.
func (s *Session) TogglePin(id string) bool {
	return s.d.Store.TogglePin(s.ActiveChannelID(), id)
}

// Vote toggles the human's vote on a poll option.
func (s *Session) Vote(id string, option int) bool {
	return s.d.Store.VotePoll(s.ActiveChannelID(), id, option, s.d.Store.HumanID())
}

// SetStatus changes the human's presence.
func (s *Session) SetStatus(status domain.Status) bool {
	return s.d.Store.SetStatus(s.d.Store.HumanID(), status)
}

// SwitchServer makes serverID active and opens its first text channel.
// A server without text channels keeps the current channel.
func (s *Session) SwitchServer(serverID string) error {
	srv, ok := s.d.Store.Server(serverID)
	if !ok {
		return ErrUnknownServer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeServer = srv.ID
	if c, ok := srv.FirstTextChannel(); ok {
		s.activeChannel = c.ID
	}
	return nil
}

// SwitchChannel opens a text channel, or joins a voice channel.
func (s *Session) SwitchChannel(channelID string) error {
	c, serverID, ok := s.d.Store.Channel(channelID)
	if !ok {
		return ErrUnknownChannel
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Type == domain.ChannelVoice {
		s.voiceChannel = c.ID
		return nil
	}
	s.activeServer = serverID
	s.activeChannel = c.ID
	return nil
}

// DisconnectVoice leaves the connected voice channel.
func (s *Session) DisconnectVoice() {
	s.mu.Lock()
	s.voiceChannel = ""
	s.mu.Unlock()
}

// ChannelMatch is a quick-switch result.
type ChannelMatch struct {
	ServerID   string
	ServerName string
	Channel    domain.Channel
}

// QuickSwitch finds text channels whose name contains query, ignoring case
// and a leading '#'. Results are ordered by server, then channel name.
func (s *Session) QuickSwitch(query string) []ChannelMatch {
	q := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(query), "#"))
	var out []ChannelMatch
	for _, srv := range s.d.Store.Servers() {
		var hits []ChannelMatch
		for _, c := range srv.Channels {
			if !c.AcceptsText() || !strings.Contains(strings.ToLower(c.Name), q) {
				continue
			}
			hits = append(hits, ChannelMatch{ServerID: srv.ID, ServerName: srv.Name, Channel: c})
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Channel.Name < hits[j].Channel.Name })
		out = append(out, hits...)
	}
	return out
}

// ActiveChannelID returns the channel the human is viewing.
func (s *Session) ActiveChannelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeChannel
}

// ActiveServer returns the server being viewed.
func (s *Session) ActiveServer() domain.Server {
	s.mu.RLock()
	id := s.activeServer
	s.mu.RUnlock()
	srv, _ := s.d.Store.Server(id)
	return srv
}

// ActiveChannel returns the channel being viewed.
func (s *Session) ActiveChannel() domain.Channel {
	c, _, _ := s.d.Store.Channel(s.ActiveChannelID())
	return c
}

// VoiceChannel returns the connected voice channel, if any.
func (s *Session) VoiceChannel() (domain.Channel, bool) {
	s.mu.RLock()
	id := s.voiceChannel
	s.mu.RUnlock()
	if id == "" {
		return domain.Channel{}, false
	}
	c, _, ok := s.d.Store.Channel(id)
	return c, ok
}

// Messages returns the active channel's messages.
func (s *Session) Messages() []domain.Message {
	return s.d.Store.Messages(s.ActiveChannelID())
}

// Typing returns the users currently composing, sorted by ID.
func (s *Session) Typing() []domain.User {
	ids := s.d.Typing.Snapshot()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.d.Store.User(id); ok {
			out = append(out, u)
		}
	}
	return out
}

// Store returns the conversation store behind the session.
func (s *Session) Store() *store.Store {
	return s.d.Store
}

// Tracker returns the typing tracker.
func (s *Session) Tracker() *typing.Tracker {
	return s.d.Typing
}

// Wait blocks until every scheduled reply has finished.
func (s *Session) Wait() {
	s.d.Scheduler.Wait()
}

// Close drops replies that haven't started and waits for the rest.
func (s *Session) Close() {
	s.d.Scheduler.Close()
}
