package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovink/backend/internal/community"
	"lovink/backend/internal/store"
)

type staticRosters []community.Persona

func (s staticRosters) Roster(context.Context, string) ([]community.Persona, error) {
	return s, nil
}

type typingRecorder struct {
	mu     sync.Mutex
	events []bool
}

func (r *typingRecorder) record(_ string, active bool) {
	r.mu.Lock()
	r.events = append(r.events, active)
	r.mu.Unlock()
}

func newRoomService(t *testing.T, typing func(string, bool)) *RoomService {
	t.Helper()
	gen := community.GeneratorFunc(func(_ context.Context, req community.ReplyRequest) (string, error) {
		return "hey it's " + req.Speaker.DisplayName, nil
	})
	return newRoomServiceWith(t, gen, typing)
}

func newRoomServiceWith(t *testing.T, gen community.ReplyGenerator, typing func(string, bool)) *RoomService {
	t.Helper()
	logs := store.LogFactory(func(string) community.Log { return community.NewMemoryLog() })
	svc := NewRoomService(
		staticRosters{{ID: "f5", DisplayName: "Mia"}},
		logs,
		gen,
		RoomOptions{Policy: community.DefaultPolicy(), MinViewportWidth: 768, IdleTTL: time.Minute, Typing: typing},
		quietLogger(),
	)
	t.Cleanup(svc.Shutdown)
	return svc
}

func TestRoomOwnership(t *testing.T) {
	svc := newRoomService(t, nil)
	_, err := svc.Room(context.Background(), "u1", "community:u2", 1024)
	assert.ErrorIs(t, err, ErrNotRoomOwner)
}

func TestRoomIsReused(t *testing.T) {
	svc := newRoomService(t, nil)
	ctx := context.Background()

	a, err := svc.Room(ctx, "u1", "community:u1", 375)
	require.NoError(t, err)
	b, err := svc.Room(ctx, "u1", "community:u1", 1440)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.False(t, b.Autonomous(), "gate is fixed when the room is created")
}

func TestOpenRunsLoopWhileSubscribed(t *testing.T) {
	svc := newRoomService(t, nil)
	ctx := context.Background()

	_, release1, err := svc.Open(ctx, "u1", "community:u1", 1024)
	require.NoError(t, err)
	_, release2, err := svc.Open(ctx, "u1", "community:u1", 1024)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Active())

	release1()
	release1()
	assert.Equal(t, 1, svc.Active())
	release2()
	assert.Equal(t, 0, svc.Active())
}

func TestSweepDropsIdleRooms(t *testing.T) {
	svc := newRoomService(t, nil)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	first, err := svc.Room(ctx, "u1", "community:u1", 1024)
	require.NoError(t, err)
	_, release, err := svc.Open(ctx, "u2", "community:u2", 1024)
	require.NoError(t, err)
	defer release()

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, svc.Sweep(), "subscribed rooms stay")

	again, err := svc.Room(ctx, "u1", "community:u1", 1024)
	require.NoError(t, err)
	assert.NotSame(t, first, again)
}

func TestShutdownRejectsNewRooms(t *testing.T) {
	svc := newRoomService(t, nil)
	ctx := context.Background()
	_, _, err := svc.Open(ctx, "u1", "community:u1", 1024)
	require.NoError(t, err)

	svc.Shutdown()
	assert.Equal(t, 0, svc.Active())
	assert.ErrorIs(t, svc.Healthy(ctx), ErrShuttingDown)
	_, err = svc.Room(ctx, "u1", "community:u1", 1024)
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestTypingWrapsRounds(t *testing.T) {
	rec := &typingRecorder{}
	svc := newRoomService(t, rec.record)
	room, err := svc.Room(context.Background(), "u1", "community:u1", 375)
	require.NoError(t, err)

	res, err := room.Send(context.Background(), "hi Mia")
	require.NoError(t, err)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, "hey it's Mia", res.Replies[0].Text)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []bool{true, false}, rec.events)
}

// slowGenerator blocks each call until unblock is closed and counts calls
// running at the same time
type slowGenerator struct {
	started  chan struct{}
	unblock  chan struct{}
	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func newSlowGenerator() *slowGenerator {
	return &slowGenerator{started: make(chan struct{}, 8), unblock: make(chan struct{})}
}

func (g *slowGenerator) GenerateReply(_ context.Context, req community.ReplyRequest) (string, error) {
	g.mu.Lock()
	g.inFlight++
	g.maxSeen = max(g.maxSeen, g.inFlight)
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()
	g.started <- struct{}{}
	<-g.unblock
	return "sorry, was typing " + req.Speaker.DisplayName, nil
}

func TestSweepKeepsRoomWithRoundInFlight(t *testing.T) {
	gen := newSlowGenerator()
	svc := newRoomServiceWith(t, gen, nil)
	ctx := context.Background()
	now := time.Now()
	var nowMu sync.Mutex
	svc.now = func() time.Time {
		nowMu.Lock()
		defer nowMu.Unlock()
		return now
	}

	first, err := svc.Room(ctx, "u1", "community:u1", 375)
	require.NoError(t, err)

	sent := make(chan error, 1)
	go func() {
		_, err := first.Send(ctx, "hi Mia")
		sent <- err
	}()
	<-gen.started
	require.True(t, first.Generating())

	nowMu.Lock()
	now = now.Add(2 * time.Minute)
	nowMu.Unlock()
	assert.Equal(t, 0, svc.Sweep(), "a room with a round in flight is never dropped")

	again, err := svc.Room(ctx, "u1", "community:u1", 375)
	require.NoError(t, err)
	assert.Same(t, first, again)

	close(gen.unblock)
	require.NoError(t, <-sent)
	gen.mu.Lock()
	assert.Equal(t, 1, gen.maxSeen)
	gen.mu.Unlock()

	nowMu.Lock()
	now = now.Add(2 * time.Minute)
	nowMu.Unlock()
	assert.Equal(t, 1, svc.Sweep())
}

func TestSweepKeepsAcquiredRoom(t *testing.T) {
	svc := newRoomService(t, nil)
	ctx := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	room, done, err := svc.Acquire(ctx, "u1", "community:u1", 1024)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, svc.Sweep())

	done()
	done()
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, svc.Sweep())

	again, err := svc.Room(ctx, "u1", "community:u1", 1024)
	require.NoError(t, err)
	assert.NotSame(t, room, again)
}
