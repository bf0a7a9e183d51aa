package community

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewportGate(t *testing.T) {
	tests := []struct {
		name  string
		width int
		want  bool
	}{
		{"desktop", 1440, true},
		{"exactly the minimum", 768, true},
		{"phone", 375, false},
		{"unknown width", 0, false},
		{"negative width", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ViewportGate(tt.width, 768).AutonomousEnabled())
		})
	}
}

func TestGatedRoomNeverActsAlone(t *testing.T) {
	gen := &recordingGenerator{}
	room := newTestRoom(t, Config{
		Roster:    roster("Mia"),
		Generator: gen,
		Gate:      ViewportGate(0, 768),
		Rand:      &scriptedRand{t: t},
	})

	assert.False(t, room.Autonomous())
	assert.False(t, room.Greet(t.Context()))
	assert.Equal(t, OutcomeGated, room.Tick(t.Context()))
	assert.Empty(t, gen.Calls())
}
