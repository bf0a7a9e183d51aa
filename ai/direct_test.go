package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovink/backend/internal/community"
	"lovink/backend/pkg/resilience"
)

func sampleDirect(n int) DirectRequest {
	history := make([]community.Message, n)
	for i := range history {
		kind, sender := community.SenderUser, community.UserSenderID
		if i%2 == 1 {
			kind, sender = community.SenderPersona, "f2"
		}
		history[i] = community.Message{ID: string(rune('a' + i)), SenderKind: kind, SenderID: sender, Text: "line " + string(rune('a'+i))}
	}
	return DirectRequest{
		User:    UserInfo{Name: "sam", Age: 24, About: "night owl"},
		Partner: community.Persona{ID: "f2", DisplayName: "Aisha", Tone: "shy", Clinginess: "high"},
		History: history,
	}
}

func TestBuildDirectPrompt(t *testing.T) {
	p := BuildDirectPrompt(sampleDirect(15), 0)

	assert.Contains(t, p.System, "You are Aisha")
	assert.Contains(t, p.System, `"sam"`)
	assert.Contains(t, p.System, "User: 24 years old. Bio: night owl.")
	assert.Contains(t, p.System, "Tone: shy.")
	assert.Contains(t, p.System, "Clinginess: high.")

	require.Len(t, p.Turns, DirectHistoryWindow)
	// 15 messages, the window starts at index 3 which the partner wrote
	assert.Equal(t, RoleModel, p.Turns[0].Role)
	assert.Equal(t, "line d", p.Turns[0].Text)
	assert.Equal(t, RoleUser, p.Turns[len(p.Turns)-1].Role)
	assert.False(t, strings.HasPrefix(p.Turns[0].Text, "Aisha:"), "one-to-one turns carry no speaker prefix")
}

func TestBuildDirectPromptOpensEmptyChat(t *testing.T) {
	req := sampleDirect(0)
	req.User = UserInfo{Name: "sam"}
	p := BuildDirectPrompt(req, 0)

	require.Len(t, p.Turns, 1)
	assert.Equal(t, Turn{Role: RoleUser, Text: "I'm here."}, p.Turns[0])
	assert.NotContains(t, p.System, "years old")
}

func TestHTTPGeneratorDirectContract(t *testing.T) {
	var got directRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "missed you 🥺"})
	}))
	defer srv.Close()

	reply, err := NewHTTPGenerator(srv.URL).GenerateDirect(context.Background(), sampleDirect(15))
	require.NoError(t, err)
	assert.Equal(t, "missed you 🥺", reply)

	assert.Equal(t, "direct", got.Mode)
	assert.Equal(t, "sam", got.UserProfile.Name)
	assert.Equal(t, "Aisha", got.PartnerProfile.DisplayName)
	// the last message (index 14, from the user) travels as userMessage
	assert.Equal(t, "line o", got.UserMessage)
	require.Len(t, got.ChatHistory, DirectHistoryWindow)
	assert.Equal(t, directTurn{Sender: "user", Text: "line c"}, got.ChatHistory[0])
	assert.Equal(t, "partner", got.ChatHistory[len(got.ChatHistory)-1].Sender)
}

func TestHTTPGeneratorDirectOpener(t *testing.T) {
	var got directRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "hey you"})
	}))
	defer srv.Close()

	_, err := NewHTTPGenerator(srv.URL).GenerateDirect(context.Background(), sampleDirect(0))
	require.NoError(t, err)
	assert.Equal(t, "I'm here.", got.UserMessage)
	assert.Empty(t, got.ChatHistory)
}

type directFunc func(ctx context.Context, req DirectRequest) (string, error)

func (f directFunc) GenerateReply(context.Context, community.ReplyRequest) (string, error) {
	return "", nil
}

func (f directFunc) GenerateDirect(ctx context.Context, req DirectRequest) (string, error) {
	return f(ctx, req)
}

func TestGuardedGeneratorDirect(t *testing.T) {
	var seen DirectRequest
	next := directFunc(func(_ context.Context, req DirectRequest) (string, error) {
		seen = req
		return "ok babe", nil
	})
	g := NewGuardedGenerator(next, GuardOptions{Name: "test", Breaker: resilience.DefaultConfig("direct")}, quietLogger())

	reply, err := g.GenerateDirect(context.Background(), sampleDirect(2))
	require.NoError(t, err)
	assert.Equal(t, "ok babe", reply)
	assert.Equal(t, "f2", seen.Partner.ID)

	roomOnly := NewGuardedGenerator(community.GeneratorFunc(func(context.Context, community.ReplyRequest) (string, error) {
		return "hi", nil
	}), GuardOptions{Name: "room", Breaker: resilience.DefaultConfig("room")}, quietLogger())
	_, err = roomOnly.GenerateDirect(context.Background(), sampleDirect(2))
	assert.ErrorIs(t, err, ErrDirectUnsupported)
}
