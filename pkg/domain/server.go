package domain

// ChannelType governs whether a channel takes part in text chat.
type ChannelType string

const (
	ChannelText         ChannelType = "text"
	ChannelVoice        ChannelType = "voice"
	ChannelAnnouncement ChannelType = "announcement"
)

// ValidChannelType returns true if t is a known channel type.
func ValidChannelType(t ChannelType) bool {
	switch t {
	case ChannelText, ChannelVoice, ChannelAnnouncement:
		return true
	}
	return false
}

// Channel belongs to exactly one Server.
type Channel struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Type        ChannelType `json:"type" yaml:"type"`
	CategoryID  string      `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	ActiveUsers []string    `json:"active_users,omitempty" yaml:"active_users,omitempty"` // voice occupants
}

// AcceptsText reports whether messages can be posted to the channel.
// Voice channels never receive text.
func (c Channel) AcceptsText() bool {
	return c.Type != ChannelVoice
}

// Category groups channels in the sidebar.
type Category struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	ChannelIDs []string `json:"channel_ids" yaml:"channel_ids"`
}

// Server is a community with channels and members.
type Server struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Channels   []Channel  `json:"channels" yaml:"channels"`
	Categories []Category `json:"categories,omitempty" yaml:"categories,omitempty"`
	Members    []string   `json:"members" yaml:"members"`
}

// Channel looks up a channel by ID.
func (s Server) Channel(id string) (Channel, bool) {
	for _, c := range s.Channels {
		if c.ID == id {
			return c, true
		}
	}
	return Channel{}, false
}

// FirstTextChannel returns the first channel that accepts text.
func (s Server) FirstTextChannel() (Channel, bool) {
	for _, c := range s.Channels {
		if c.Type == ChannelText {
			return c, true
		}
	}
	return Channel{}, false
}
