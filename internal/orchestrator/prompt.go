package orchestrator

import (
	"fmt"
	"strings"

	"github.com/naveenspark/glitchcity/pkg/domain"
	"github.com/naveenspark/glitchcity/pkg/generation"
)

// NoHistory stands in for an empty context window.
const NoHistory = "(No previous messages)"

// ErrorPrefix marks system notices for failed generations.
const ErrorPrefix = "⚠️ **AI Error**: "

// Fallback is posted when the model returns nothing.
const Fallback = "..."

// SystemInstruction builds the persona's system-level directive.
func SystemInstruction(u domain.User) string {
	return fmt.Sprintf(`You are simulating a user in a Discord chat room.
Your profile name is %s.
Your Personality: %s.

Rules:
1. Keep your response casual, short, and relevant (1-3 sentences).
2. Respond directly to the "Current Message" or the context of the chat history.
3. Do not prefix your response with your username.
4. If the user says "hi" or "hello", greet them back in character.
5. Stay in character and be realistic.
6. ALWAYS generate a response, do not stay silent unless the message is pure gibberish.
`, u.Username, u.Personality)
}

// RenderHistory formats the last window messages as "name: content" lines.
// Empty messages are skipped; unknown authors render as "User".
func RenderHistory(msgs []domain.Message, window int, name func(userID string) string) string {
	if window > 0 && len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		lines = append(lines, name(m.UserID)+": "+m.Content)
	}
	if len(lines) == 0 {
		return NoHistory
	}
	return strings.Join(lines, "\n")
}

// ErrorNotice is the chat text for a failed generation.
func ErrorNotice(err error) string {
	return ErrorPrefix + generation.Summary(err)
}
