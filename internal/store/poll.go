package store

import (
	"go.uber.org/zap"

	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

// VotePoll toggles voterID's vote on option idx. Polls are multi-select:
// picking another option adds to it without clearing earlier picks.
//
// On the voter's first vote, while fewer than BootstrapCeiling votes are
// cast, every other persona that has not voted joins with probability
// BootstrapChance on a random option. The voter's toggle is applied after.
func (s *Store) VotePoll(channelID, id string, idx int, voterID string) bool {
	s.mu.Lock()
	m, _ := s.find(channelID, id)
	if m == nil || m.Poll == nil || idx < 0 || idx >= len(m.Poll.Options) || voterID == "" {
		s.mu.Unlock()
		return false
	}
	p := m.Poll

	if !p.HasVoted(voterID) && p.TotalVotes() < s.tuning.BootstrapCeiling {
		n := s.bootstrap(p, voterID)
		if n > 0 {
			s.logger.Debug("poll bootstrap", zap.String("message", id), zap.Int("votes", n))
		}
	}
	toggleVoter(&p.Options[idx], voterID)
	for i := range p.Options {
		p.Options[i].Votes = len(p.Options[i].Voters)
	}
	s.mu.Unlock()

	s.publish(Event{Kind: PollChanged, ChannelID: channelID, MessageID: id, UserID: voterID})
	return true
}

// bootstrap casts simulated persona votes. Caller holds mu.
func (s *Store) bootstrap(p *domain.Poll, voterID string) int {
	cast := 0
	for _, uid := range s.userOrder {
		if uid == voterID || !s.isPersona(uid) || p.HasVoted(uid) {
			continue
		}
		if !dice.Chance(s.rng, s.tuning.BootstrapChance) {
			continue
		}
		o := &p.Options[s.rng.IntN(len(p.Options))]
		o.Voters = append(o.Voters, uid)
		cast++
	}
	return cast
}

func toggleVoter(o *domain.PollOption, voterID string) {
	for i, v := range o.Voters {
		if v == voterID {
			o.Voters = append(o.Voters[:i:i], o.Voters[i+1:]...)
			return
		}
	}
	o.Voters = append(o.Voters, voterID)
}
