package ai

import (
	"context"
	"fmt"
	"strings"

	"lovink/backend/internal/community"
)

const (
	// DirectHistoryWindow is how many trailing messages a one-to-one prompt
	// carries
	DirectHistoryWindow = 12
	// DirectFallbackReply stands in for a blank one-to-one answer
	DirectFallbackReply = "I'm here 💗"
	// directOpener is the user turn that starts an empty chat
	directOpener = "I'm here."
)

// UserInfo is what a partner knows about the user
type UserInfo struct {
	Name  string `json:"username"`
	Age   int    `json:"age,omitempty"`
	About string `json:"aboutMe,omitempty"`
}

// DirectRequest asks a partner for the next line of a one-to-one chat.
// History is oldest first and normally ends with the user's message.
type DirectRequest struct {
	User    UserInfo
	Partner community.Persona
	History []community.Message
}

// DirectGenerator produces a partner's reply in a one-to-one chat
type DirectGenerator interface {
	GenerateDirect(ctx context.Context, req DirectRequest) (string, error)
}

// BuildDirectPrompt renders the private chat prompt. An empty history
// becomes a single opener turn so the partner starts the conversation.
func BuildDirectPrompt(req DirectRequest, window int) Prompt {
	if window <= 0 {
		window = DirectHistoryWindow
	}

	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s, the user's romantic partner in an app called Lovink.\n", req.Partner.DisplayName)
	sys.WriteString("You are a real human partner, not an assistant.\n")
	sys.WriteString("Text like WhatsApp: short, casual, emotional, sometimes lowercase, use emojis naturally but don't spam.\n")
	sys.WriteString("Never say \"as an AI\" or talk about policies. Flirty, teasing, warm, but keep it romantic and non-explicit.\n")
	if req.User.Name != "" {
		fmt.Fprintf(&sys, "Call the user by their name %q or a cute nickname.\n", req.User.Name)
	}
	sys.WriteString("Personality:\n")
	if req.User.Name != "" {
		fmt.Fprintf(&sys, "Role: romantic partner of %s.\n", req.User.Name)
	}
	if req.User.Age > 0 || req.User.About != "" {
		about := req.User.About
		if about == "" {
			about = "Unknown"
		}
		fmt.Fprintf(&sys, "User: %d years old. Bio: %s.\n", req.User.Age, about)
	}
	sys.WriteString(personaStyle(req.Partner))

	history := req.History
	if len(history) > window {
		history = history[len(history)-window:]
	}
	turns := make([]Turn, 0, len(history)+1)
	for _, m := range history {
		role := RoleModel
		if m.FromUser() {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Text: m.Text})
	}
	if len(turns) == 0 {
		turns = append(turns, Turn{Role: RoleUser, Text: directOpener})
	}
	return Prompt{System: sys.String(), Turns: turns}
}
