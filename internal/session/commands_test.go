package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

func TestExpandCommand(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		ints     []int
		want     string
		wantPoll *domain.Poll
	}{
		{"plain text", "hello there", nil, "hello there", nil},
		{"flip heads", "/flip", []int{0}, "_flips a coin_ ... **Heads!**", nil},
		{"flip tails uppercase", "/FLIP", []int{1}, "_flips a coin_ ... **Tails!**", nil},
		{"roll default", "/roll", []int{99}, "_rolls a dice_ ... **100** (1-100)", nil},
		{"roll custom", "/roll 6", []int{2}, "_rolls a dice_ ... **3** (1-6)", nil},
		{"roll ignores junk", "/roll lots", []int{0}, "_rolls a dice_ ... **1** (1-100)", nil},
		{"roll ignores zero", "/roll 0", []int{4}, "_rolls a dice_ ... **5** (1-100)", nil},
		{
			"poll",
			`/poll "Best console?" "SNES" "Genesis" "Neo Geo"`, nil,
			PollBanner,
			&domain.Poll{Question: "Best console?", Options: []domain.PollOption{{Text: "SNES"}, {Text: "Genesis"}, {Text: "Neo Geo"}}},
		},
		{"poll with one option", `/poll "Yes?" "yes"`, nil, `/poll "Yes?" "yes"`, nil},
		{"poll unquoted", "/poll what now", nil, "/poll what now", nil},
		{"command mid-sentence", "try /flip", nil, "try /flip", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, poll := ExpandCommand(tt.content, dice.NewScripted(nil, tt.ints))
			if got != tt.want {
				t.Errorf("ExpandCommand(%q) = %q, want %q", tt.content, got, tt.want)
			}
			if diff := cmp.Diff(tt.wantPoll, poll); diff != "" {
				t.Errorf("poll mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
