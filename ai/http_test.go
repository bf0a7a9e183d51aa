package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGeneratorContract(t *testing.T) {
	var got communityRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"reply": "omg hi 💕"})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, WithAPIKey("k"), WithHistoryWindow(5))
	reply, err := g.GenerateReply(context.Background(), sampleRequest(8))
	require.NoError(t, err)

	assert.Equal(t, "omg hi 💕", reply)
	assert.Equal(t, "community", got.Mode)
	assert.Equal(t, "f5", got.SpeakingPartner.ID)
	assert.Len(t, got.Partners, 3)
	require.Len(t, got.Messages, 5)
	assert.Equal(t, "3", got.Messages[0].ID)
}

func TestHTTPGeneratorErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/500":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/bad":
			_, _ = w.Write([]byte("not json"))
		default:
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "quota"})
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	_, err := NewHTTPGenerator(srv.URL+"/500").GenerateReply(ctx, sampleRequest(1))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)

	_, err = NewHTTPGenerator(srv.URL+"/bad").GenerateReply(ctx, sampleRequest(1))
	assert.Error(t, err)

	_, err = NewHTTPGenerator(srv.URL+"/quota").GenerateReply(ctx, sampleRequest(1))
	assert.ErrorContains(t, err, "quota")
}

func TestTruncateKeepsRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 200))
	assert.Equal(t, "ab", truncate("abc", 2))

	// "é" is two bytes; cutting at 2 would split it
	got := truncate("aéb", 2)
	assert.Equal(t, "a", got)
	assert.True(t, utf8.ValidString(got))

	got = truncate("😍😍", 5)
	assert.Equal(t, "😍", got)
}
