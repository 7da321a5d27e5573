package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single chat message in a channel.
type Message struct {
	ID         string      `json:"id" yaml:"id"`
	UserID     string      `json:"user_id" yaml:"user_id"`
	Content    string      `json:"content" yaml:"content"`
	Timestamp  time.Time   `json:"timestamp" yaml:"-"`
	Reactions  []Reaction  `json:"reactions,omitempty" yaml:"reactions,omitempty"`
	ReplyToID  string      `json:"reply_to_id,omitempty" yaml:"reply_to_id,omitempty"` // weak reference, may dangle
	Poll       *Poll       `json:"poll,omitempty" yaml:"poll,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	Edited     bool        `json:"edited,omitempty" yaml:"edited,omitempty"`
	Pinned     bool        `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// Reaction is an emoji + count on a message. Me marks the human's own toggle.
type Reaction struct {
	Emoji string `json:"emoji" yaml:"emoji"`
	Count int    `json:"count" yaml:"count"`
	Me    bool   `json:"me" yaml:"me"`
}

// Attachment is an inline media reference.
type Attachment struct {
	Type string `json:"type" yaml:"type"` // "image"
	URL  string `json:"url" yaml:"url"`
}

// Poll is a question with ordered options. A voter may hold votes in several options.
type Poll struct {
	Question string       `json:"question" yaml:"question"`
	Options  []PollOption `json:"options" yaml:"options"`
}

// PollOption is one poll choice. Votes always equals len(Voters).
type PollOption struct {
	Text   string   `json:"text" yaml:"text"`
	Votes  int      `json:"votes" yaml:"votes"`
	Voters []string `json:"voters,omitempty" yaml:"voters,omitempty"`
}

// NewID returns a fresh message ID.
func NewID() string {
	return uuid.NewString()
}

// TotalVotes sums voter-set sizes across all options.
func (p *Poll) TotalVotes() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, o := range p.Options {
		n += len(o.Voters)
	}
	return n
}

// HasVoted reports whether voterID holds a vote in any option.
func (p *Poll) HasVoted(voterID string) bool {
	if p == nil {
		return false
	}
	for _, o := range p.Options {
		if o.HasVoter(voterID) {
			return true
		}
	}
	return false
}

// HasVoter reports whether voterID voted for this option.
func (o PollOption) HasVoter(voterID string) bool {
	for _, v := range o.Voters {
		if v == voterID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't mutate shared state.
func (m Message) Clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = append([]Reaction(nil), m.Reactions...)
	}
	if m.Poll != nil {
		p := &Poll{Question: m.Poll.Question, Options: make([]PollOption, len(m.Poll.Options))}
		for i, o := range m.Poll.Options {
			p.Options[i] = PollOption{Text: o.Text, Votes: o.Votes, Voters: append([]string(nil), o.Voters...)}
		}
		out.Poll = p
	}
	if m.Attachment != nil {
		a := *m.Attachment
		out.Attachment = &a
	}
	return out
}
