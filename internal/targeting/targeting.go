// Package targeting decides which personas answer a human message.
//
// Rules run as a waterfall: an explicit reply and any mentions always
// contribute; conversational continuity and random ambience only apply
// when nothing earlier selected a target. Offline personas are never
// selected.
package targeting

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

// Reason records which rule selected a target.
type Reason string

const (
	ReasonReply      Reason = "reply"
	ReasonMention    Reason = "mention"
	ReasonContinuity Reason = "continuity"
	ReasonAmbience   Reason = "ambience"
)

// Tuning holds the product-tuned odds.
type Tuning struct {
	ContinuityWindow time.Duration `yaml:"continuity_window"`
	ContinuityChance float64       `yaml:"continuity_chance"`
	GreetingChance   float64       `yaml:"greeting_chance"` // questions and greetings
	AmbientChance    float64       `yaml:"ambient_chance"`
}

// DefaultTuning returns the stock odds.
func DefaultTuning() Tuning {
	return Tuning{
		ContinuityWindow: 2 * time.Minute,
		ContinuityChance: 0.8,
		GreetingChance:   0.6,
		AmbientChance:    0.2,
	}
}

// Input is everything the resolver looks at.
type Input struct {
	Content   string
	ReplyToID string
	History   []domain.Message // channel history before the new message, oldest first
	Personas  []domain.User    // candidates; offline entries are filtered out
	HumanID   string
	Now       time.Time
}

// Target is one persona chosen to respond.
type Target struct {
	PersonaID string
	Reason    Reason
}

var greeting = regexp.MustCompile(`(?i)^(hi|hello|hey|yo|sup|morning|evening)\b`)

// Resolver applies the targeting waterfall.
type Resolver struct {
	tuning Tuning
	rng    dice.Source

	mu       sync.Mutex
	patterns map[string]mentionPattern
}

type mentionPattern struct {
	strict, soft *regexp.Regexp
}

// NewResolver returns a resolver using src for its random draws.
func NewResolver(t Tuning, src dice.Source) *Resolver {
	return &Resolver{tuning: t, rng: src, patterns: make(map[string]mentionPattern)}
}

// Resolve returns the personas to trigger, in insertion order, without duplicates.
func (r *Resolver) Resolve(in Input) []Target {
	online := make([]domain.User, 0, len(in.Personas))
	onlineIDs := make(map[string]bool, len(in.Personas))
	for _, p := range in.Personas {
		if p.ID == in.HumanID || p.ID == domain.SystemUserID || !p.Online() {
			continue
		}
		online = append(online, p)
		onlineIDs[p.ID] = true
	}
	if len(online) == 0 {
		return nil
	}

	var out []Target
	seen := make(map[string]bool)
	add := func(id string, why Reason) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, Target{PersonaID: id, Reason: why})
	}

	if in.ReplyToID != "" {
		for _, m := range in.History {
			if m.ID == in.ReplyToID {
				if onlineIDs[m.UserID] {
					add(m.UserID, ReasonReply)
				}
				break
			}
		}
	}

	for _, p := range online {
		if r.mentions(in.Content, p.Username) {
			add(p.ID, ReasonMention)
		}
	}

	if len(out) == 0 && len(in.History) > 0 {
		last := in.History[len(in.History)-1]
		if onlineIDs[last.UserID] && in.Now.Sub(last.Timestamp) < r.tuning.ContinuityWindow {
			if dice.Chance(r.rng, r.tuning.ContinuityChance) {
				add(last.UserID, ReasonContinuity)
			}
		}
	}

	if len(out) == 0 {
		chance := r.tuning.AmbientChance
		if IsQuestion(in.Content) || IsGreeting(in.Content) {
			chance = r.tuning.GreetingChance
		}
		if dice.Chance(r.rng, chance) {
			add(online[r.rng.IntN(len(online))].ID, ReasonAmbience)
		}
	}
	return out
}

func (r *Resolver) mentions(content, username string) bool {
	if username == "" {
		return false
	}
	r.mu.Lock()
	p, ok := r.patterns[username]
	if !ok {
		q := regexp.QuoteMeta(username)
		p = mentionPattern{
			strict: regexp.MustCompile(`(?i)@` + q + `\b`),
			soft:   regexp.MustCompile(`(?i)\b` + q + `\b`),
		}
		r.patterns[username] = p
	}
	r.mu.Unlock()
	return p.strict.MatchString(content) || p.soft.MatchString(content)
}

// IsQuestion reports whether content ends with a question mark.
func IsQuestion(content string) bool {
	return strings.HasSuffix(strings.TrimSpace(content), "?")
}

// IsGreeting reports whether content opens with a greeting word.
func IsGreeting(content string) bool {
	return greeting.MatchString(content)
}

// IDs flattens targets to persona IDs.
func IDs(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.PersonaID
	}
	return out
}
