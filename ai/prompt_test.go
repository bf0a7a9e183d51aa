package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovink/backend/internal/community"
)

func sampleRequest(n int) community.ReplyRequest {
	roster := []community.Persona{
		{ID: "f5", DisplayName: "Mia", Tone: "chaotic", Interests: []string{"Parties"}},
		{ID: "f2", DisplayName: "Aisha"},
		{ID: "m1", DisplayName: "Liam"},
	}
	history := make([]community.Message, 0, n)
	for i := 0; i < n; i++ {
		m := community.Message{ID: fmt.Sprint(i), SenderKind: community.SenderUser, SenderID: community.UserSenderID, Text: fmt.Sprintf("u%d", i)}
		if i%2 == 1 {
			m.SenderKind, m.SenderID, m.Text = community.SenderPersona, "f2", fmt.Sprintf("p%d", i)
		}
		history = append(history, m)
	}
	return community.ReplyRequest{RoomID: "r", Speaker: roster[0], Roster: roster, History: history}
}

func TestBuildCommunityPrompt(t *testing.T) {
	p := BuildCommunityPrompt(sampleRequest(2), 20)

	assert.Contains(t, p.System, "You are Mia")
	assert.Contains(t, p.System, "Other partners in this room: Aisha, Liam.")
	assert.Contains(t, p.System, "Tone: chaotic.")
	assert.NotContains(t, p.System, "Mia, Aisha")

	require.Len(t, p.Turns, 2)
	assert.Equal(t, Turn{Role: RoleUser, Text: "u0"}, p.Turns[0])
	assert.Equal(t, Turn{Role: RoleModel, Text: "Aisha: p1"}, p.Turns[1])
}

func TestBuildCommunityPromptWindow(t *testing.T) {
	p := BuildCommunityPrompt(sampleRequest(30), 20)
	require.Len(t, p.Turns, 20)
	assert.Equal(t, "u10", p.Turns[0].Text)

	p = BuildCommunityPrompt(sampleRequest(30), 0)
	assert.Len(t, p.Turns, DefaultHistoryWindow)
}

func TestBuildCommunityPromptUnknownSender(t *testing.T) {
	req := sampleRequest(0)
	req.History = []community.Message{{SenderKind: community.SenderPersona, SenderID: "gone", Text: "hey"}}
	p := BuildCommunityPrompt(req, 20)
	assert.Equal(t, "Partner: hey", p.Turns[0].Text)
}

func TestStripSpeakerPrefix(t *testing.T) {
	assert.Equal(t, "hii", stripSpeakerPrefix("Mia: hii", "Mia"))
	assert.Equal(t, "hii", stripSpeakerPrefix("mia:hii", "Mia"))
	assert.Equal(t, "Aisha: hii", stripSpeakerPrefix("Aisha: hii", "Mia"))
}

func TestDecodeImage(t *testing.T) {
	data, mime, err := decodeImage("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, []byte("hello"), data)

	data, mime, err = decodeImage("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, []byte("hello"), data)

	_, _, err = decodeImage("data:image/png;base64")
	assert.Error(t, err)
	_, _, err = decodeImage("!!!")
	assert.Error(t, err)
}
