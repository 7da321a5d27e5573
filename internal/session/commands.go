package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/naveenspark/glitchcity/internal/dice"
	"github.com/naveenspark/glitchcity/pkg/domain"
)

// PollBanner replaces the raw /poll command text.
const PollBanner = "📊 **Poll Started!**"

const defaultRollMax = 100

var quoted = regexp.MustCompile(`"([^"]+)"`)

// ExpandCommand rewrites slash commands. Anything that isn't a recognised
// command, including a /poll with fewer than two options, is returned as is.
//
//	/flip              coin flip
//	/roll [N]          1..N, N defaults to 100
//	/poll "Q" "A" "B"  poll with two or more options
func ExpandCommand(content string, rng dice.Source) (string, *domain.Poll) {
	lower := strings.ToLower(content)
	switch {
	case strings.HasPrefix(lower, "/flip"):
		result := "Heads"
		if rng.IntN(2) == 1 {
			result = "Tails"
		}
		return fmt.Sprintf("_flips a coin_ ... **%s!**", result), nil

	case strings.HasPrefix(lower, "/roll"):
		max := defaultRollMax
		if fields := strings.Fields(lower); len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				max = n
			}
		}
		return fmt.Sprintf("_rolls a dice_ ... **%d** (1-%d)", rng.IntN(max)+1, max), nil

	case strings.HasPrefix(lower, "/poll"):
		matches := quoted.FindAllStringSubmatch(content, -1)
		if len(matches) < 3 {
			return content, nil
		}
		p := &domain.Poll{Question: matches[0][1]}
		for _, m := range matches[1:] {
			p.Options = append(p.Options, domain.PollOption{Text: m[1]})
		}
		return PollBanner, p
	}
	return content, nil
}
