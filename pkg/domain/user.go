package domain

// Status is a user's presence.
type Status string

const (
	StatusOnline  Status = "online"
	StatusIdle    Status = "idle"
	StatusDND     Status = "dnd"
	StatusOffline Status = "offline"
)

// SystemUserID is the reserved pseudo-user that authors error notices.
const SystemUserID = "system"

// ValidStatus returns true if s is a known presence status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOnline, StatusIdle, StatusDND, StatusOffline:
		return true
	}
	return false
}

// User is a chat participant. Personas carry a Personality; the human does not.
type User struct {
	ID            string   `json:"id" yaml:"id"`
	Username      string   `json:"username" yaml:"username"`
	Discriminator string   `json:"discriminator" yaml:"discriminator"`
	Status        Status   `json:"status" yaml:"status"`
	Bot           bool     `json:"bot,omitempty" yaml:"bot,omitempty"`
	Activity      string   `json:"activity,omitempty" yaml:"activity,omitempty"`
	Color         string   `json:"color,omitempty" yaml:"color,omitempty"`
	AboutMe       string   `json:"about_me,omitempty" yaml:"about_me,omitempty"`
	Roles         []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Personality   string   `json:"personality,omitempty" yaml:"personality,omitempty"` // generation instruction
}

// Online reports whether the user can speak (anything but offline).
func (u User) Online() bool {
	return u.Status != StatusOffline
}

// Tag renders "username#discriminator".
func (u User) Tag() string {
	if u.Discriminator == "" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}
