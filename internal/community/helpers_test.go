package community

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lovink/backend/pkg/logger"
)

// scriptedRand replays fixed draws so tests pick exact branches
type scriptedRand struct {
	t      *testing.T
	floats []float64
	ints   []int
}

func (s *scriptedRand) Float64() float64 {
	if len(s.floats) == 0 {
		s.t.Fatalf("scriptedRand: unexpected Float64 draw")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedRand) IntN(n int) int {
	if len(s.ints) == 0 {
		s.t.Fatalf("scriptedRand: unexpected IntN(%d) draw", n)
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v >= n {
		s.t.Fatalf("scriptedRand: scripted %d out of range for IntN(%d)", v, n)
	}
	return v
}

// recordingGenerator answers as the speaker and tracks call overlap
type recordingGenerator struct {
	mu       sync.Mutex
	calls    []ReplyRequest
	reply    func(req ReplyRequest) (string, error)
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (g *recordingGenerator) GenerateReply(ctx context.Context, req ReplyRequest) (string, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		m := g.maxSeen.Load()
		if n <= m || g.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.reply != nil {
		return g.reply(req)
	}
	return fmt.Sprintf("hi from %s", req.Speaker.DisplayName), nil
}

func (g *recordingGenerator) Calls() []ReplyRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ReplyRequest, len(g.calls))
	copy(out, g.calls)
	return out
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func roster(names ...string) []Persona {
	out := make([]Persona, len(names))
	for i, n := range names {
		out[i] = Persona{ID: fmt.Sprintf("%d", i+1), DisplayName: n}
	}
	return out
}

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func newTestRoom(t *testing.T, cfg Config) *Room {
	t.Helper()
	if cfg.RoomID == "" {
		cfg.RoomID = "room-test"
	}
	if cfg.Log == nil {
		cfg.Log = NewMemoryLog()
	}
	if cfg.Policy.TickInterval == 0 {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = testLogger()
	}
	r, err := NewRoom(cfg)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}
	return r
}
