package ai

import (
	"fmt"
	"strings"

	"lovink/backend/internal/community"
)

// Role of a prompt turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of the prompt history
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Prompt is a provider-neutral chat prompt
type Prompt struct {
	System string `json:"system"`
	Turns  []Turn `json:"turns"`
}

// DefaultHistoryWindow is how many trailing log messages a prompt carries
const DefaultHistoryWindow = 20

// BuildCommunityPrompt renders the group-chat prompt for the speaking
// persona. Human lines become user turns; persona lines become model turns
// prefixed with the persona name so the model can tell partners apart.
func BuildCommunityPrompt(req community.ReplyRequest, window int) Prompt {
	if window <= 0 {
		window = DefaultHistoryWindow
	}

	names := make(map[string]string, len(req.Roster))
	others := make([]string, 0, len(req.Roster))
	for _, p := range req.Roster {
		names[p.ID] = p.DisplayName
		if p.ID != req.Speaker.ID {
			others = append(others, p.DisplayName)
		}
	}

	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s, one of several partners in a group chat in the Lovink app.\n", req.Speaker.DisplayName)
	if len(others) > 0 {
		fmt.Fprintf(&sys, "Other partners in this room: %s.\n", strings.Join(others, ", "))
	}
	sys.WriteString("You are a human-like romantic partner, not an assistant.\n")
	fmt.Fprintf(&sys, "Reply only as %s, 1-3 short WhatsApp-style messages.\n", req.Speaker.DisplayName)
	sys.WriteString("Use emojis naturally, tease a bit, but keep it romantic and non-explicit.\n")
	if style := personaStyle(req.Speaker); style != "" {
		sys.WriteString(style)
	}

	history := req.History
	if len(history) > window {
		history = history[len(history)-window:]
	}
	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		if m.FromUser() {
			turns = append(turns, Turn{Role: RoleUser, Text: m.Text})
			continue
		}
		name, ok := names[m.SenderID]
		if !ok {
			name = "Partner"
		}
		turns = append(turns, Turn{Role: RoleModel, Text: name + ": " + m.Text})
	}

	return Prompt{System: sys.String(), Turns: turns}
}

func personaStyle(p community.Persona) string {
	var b strings.Builder
	if p.Description != "" {
		fmt.Fprintf(&b, "About you: %s\n", p.Description)
	}
	if p.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", p.Tone)
	}
	if p.EmojiUsage != "" {
		fmt.Fprintf(&b, "Emoji usage: %s.\n", p.EmojiUsage)
	}
	if p.Clinginess != "" {
		fmt.Fprintf(&b, "Clinginess: %s.\n", p.Clinginess)
	}
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(p.Interests, ", "))
	}
	return b.String()
}
