package community

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func msgAt(kind SenderKind, sender, text string, at time.Time) Message {
	return Message{ID: NewMessageID(), SenderKind: kind, SenderID: sender, Text: text, Timestamp: at.UnixMilli()}
}

func TestTickStaleSilence(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	gen := &recordingGenerator{}
	log := NewMemoryLog(msgAt(SenderUser, UserSenderID, "anyone?", clock.t.Add(-60*time.Second)))

	room := newTestRoom(t, Config{
		Roster:    roster("Mia", "Aisha", "Liam"),
		Log:       log,
		Generator: gen,
		Now:       clock.Now,
		Rand:      &scriptedRand{t: t},
	})

	assert.Equal(t, OutcomeStale, room.Tick(context.Background()))
	assert.Empty(t, gen.Calls())
	assert.Equal(t, 1, log.Len())
}

func TestTickWhileGeneratingIsNoop(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	gen := &recordingGenerator{}
	log := NewMemoryLog(msgAt(SenderUser, UserSenderID, "talk to me", clock.t))

	room := newTestRoom(t, Config{
		Roster:    roster("Mia", "Aisha"),
		Log:       log,
		Generator: gen,
		Now:       clock.Now,
		Rand:      &scriptedRand{t: t},
	})

	room.round <- struct{}{}
	require.True(t, room.Generating())
	for i := 0; i < 5; i++ {
		assert.Equal(t, OutcomeBusy, room.Tick(context.Background()))
	}
	room.unlock()

	assert.Empty(t, gen.Calls())
	assert.Equal(t, 1, log.Len())
}

func TestTickPersonaReaction(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	gen := &recordingGenerator{}
	cast := roster("Mia", "Aisha", "Liam")
	log := NewMemoryLog(msgAt(SenderPersona, cast[0].ID, "liam you're so dramatic", clock.t.Add(-2*time.Second)))

	// idle roll 0.9 passes, reply-count draw 0.5 lands on one responder,
	// sample index 1 of the two candidates
	room := newTestRoom(t, Config{
		Roster:    cast,
		Log:       log,
		Generator: gen,
		Now:       clock.Now,
		Rand:      &scriptedRand{t: t, floats: []float64{0.9, 0.5}, ints: []int{1}},
	})

	assert.Equal(t, OutcomeRound, room.Tick(context.Background()))

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.NotEqual(t, cast[0].ID, calls[0].Speaker.ID)
	assert.Equal(t, cast[2].ID, calls[0].Speaker.ID)

	msgs, err := log.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, SenderPersona, msgs[1].SenderKind)
	assert.Equal(t, cast[2].ID, msgs[1].SenderID)
}

func TestTickPersonaReactionNeverPicksSpeaker(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	cast := roster("Mia", "Aisha", "Liam")
	r := rand.New(rand.NewPCG(9, 9))

	for i := 0; i < 200; i++ {
		gen := &recordingGenerator{}
		log := NewMemoryLog(msgAt(SenderPersona, cast[0].ID, "ok", clock.t))
		room := newTestRoom(t, Config{Roster: cast, Log: log, Generator: gen, Now: clock.Now, Rand: r})

		room.Tick(context.Background())
		calls := gen.Calls()
		assert.LessOrEqual(t, len(calls), 2)
		for _, c := range calls {
			assert.NotEqual(t, cast[0].ID, c.Speaker.ID)
		}
	}
}

func TestTickUserTailReplyCount(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	gen := &recordingGenerator{}
	cast := roster("Mia", "Aisha", "Liam", "Ethan")
	log := NewMemoryLog(msgAt(SenderUser, UserSenderID, "so what now", clock.t))

	// 0.95 on the count draw selects three responders
	room := newTestRoom(t, Config{
		Roster:    cast,
		Log:       log,
		Generator: gen,
		Now:       clock.Now,
		Rand:      &scriptedRand{t: t, floats: []float64{0.9, 0.95}, ints: []int{0, 0, 0}},
	})

	assert.Equal(t, OutcomeRound, room.Tick(context.Background()))
	calls := gen.Calls()
	require.Len(t, calls, 3)

	// each later responder sees the earlier replies
	assert.Len(t, calls[0].History, 1)
	assert.Len(t, calls[1].History, 2)
	assert.Len(t, calls[2].History, 3)
	assert.Equal(t, 4, log.Len())
}

func TestTickSkips(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	ctx := context.Background()

	t.Run("idle roll", func(t *testing.T) {
		gen := &recordingGenerator{}
		room := newTestRoom(t, Config{
			Roster:    roster("Mia", "Aisha"),
			Log:       NewMemoryLog(msgAt(SenderUser, UserSenderID, "hi", clock.t)),
			Generator: gen,
			Now:       clock.Now,
			Rand:      &scriptedRand{t: t, floats: []float64{0.1}},
		})
		assert.Equal(t, OutcomeIdle, room.Tick(ctx))
		assert.Empty(t, gen.Calls())
	})

	t.Run("glyph-only tail", func(t *testing.T) {
		gen := &recordingGenerator{}
		room := newTestRoom(t, Config{
			Roster:    roster("Mia", "Aisha"),
			Log:       NewMemoryLog(msgAt(SenderUser, UserSenderID, "😍😍", clock.t)),
			Generator: gen,
			Now:       clock.Now,
			Rand:      &scriptedRand{t: t},
		})
		assert.Equal(t, OutcomeGlyphTail, room.Tick(ctx))
		assert.Empty(t, gen.Calls())
	})

	t.Run("empty log", func(t *testing.T) {
		room := newTestRoom(t, Config{Roster: roster("Mia"), Generator: &recordingGenerator{}, Now: clock.Now, Rand: &scriptedRand{t: t}})
		assert.Equal(t, OutcomeEmptyLog, room.Tick(ctx))
	})

	t.Run("no personas", func(t *testing.T) {
		room := newTestRoom(t, Config{
			Log:       NewMemoryLog(msgAt(SenderUser, UserSenderID, "hi", clock.t)),
			Generator: &recordingGenerator{},
			Now:       clock.Now,
			Rand:      &scriptedRand{t: t},
		})
		assert.Equal(t, OutcomeNoPersonas, room.Tick(ctx))
	})

	t.Run("sole persona talking to itself", func(t *testing.T) {
		gen := &recordingGenerator{}
		cast := roster("Mia")
		room := newTestRoom(t, Config{
			Roster:    cast,
			Log:       NewMemoryLog(msgAt(SenderPersona, cast[0].ID, "hello??", clock.t)),
			Generator: gen,
			Now:       clock.Now,
			Rand:      &scriptedRand{t: t, floats: []float64{0.9}},
		})
		assert.Equal(t, OutcomeNoResponders, room.Tick(ctx))
		assert.Empty(t, gen.Calls())
	})

	t.Run("nobody answers", func(t *testing.T) {
		gen := &recordingGenerator{}
		cast := roster("Mia", "Aisha")
		room := newTestRoom(t, Config{
			Roster:    cast,
			Log:       NewMemoryLog(msgAt(SenderPersona, cast[0].ID, "hello??", clock.t)),
			Generator: gen,
			Now:       clock.Now,
			Rand:      &scriptedRand{t: t, floats: []float64{0.9, 0.1}},
		})
		assert.Equal(t, OutcomeNoResponders, room.Tick(ctx))
		assert.Empty(t, gen.Calls())
	})

	t.Run("gated", func(t *testing.T) {
		gen := &recordingGenerator{}
		room := newTestRoom(t, Config{
			Roster:    roster("Mia"),
			Log:       NewMemoryLog(msgAt(SenderUser, UserSenderID, "hi", clock.t)),
			Generator: gen,
			Gate:      ViewportGate(375, 768),
			Now:       clock.Now,
			Rand:      &scriptedRand{t: t},
		})
		assert.Equal(t, OutcomeGated, room.Tick(ctx))
		assert.False(t, room.Greet(ctx))
		assert.Empty(t, gen.Calls())
	})
}

func TestTickFailuresAreSilent(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	cast := roster("Mia", "Aisha", "Liam")
	gen := &recordingGenerator{reply: func(req ReplyRequest) (string, error) {
		switch req.Speaker.ID {
		case "1":
			return "", errors.New("provider timeout")
		case "2":
			return "👀 💕", nil
		}
		return "fine, I'll say it", nil
	}}
	log := NewMemoryLog(msgAt(SenderUser, UserSenderID, "well?", clock.t))

	room := newTestRoom(t, Config{
		Roster:    cast,
		Log:       log,
		Generator: gen,
		Now:       clock.Now,
		Rand:      &scriptedRand{t: t, floats: []float64{0.9, 0.95}, ints: []int{0, 0, 0}},
	})

	var updates []Message
	room.Subscribe(func(m Message) { updates = append(updates, m) })

	assert.Equal(t, OutcomeRound, room.Tick(context.Background()))
	assert.Len(t, gen.Calls(), 3)
	require.Len(t, updates, 1)
	assert.Equal(t, "3", updates[0].SenderID)
	assert.Equal(t, 2, log.Len())
	assert.False(t, room.Generating())
}

func TestSendBroadcast(t *testing.T) {
	gen := &recordingGenerator{}
	log := NewMemoryLog()
	cast := roster("Mia", "Aisha", "Liam")

	room := newTestRoom(t, Config{
		Roster:    cast,
		Log:       log,
		Generator: gen,
		Rand:      rand.New(rand.NewPCG(42, 1)),
	})

	notified := 0
	room.Subscribe(func(Message) { notified++ })

	res, err := room.Send(context.Background(), "what do you all think?")
	require.NoError(t, err)
	assert.Equal(t, ModeBroadcast, res.Mode)
	assert.Contains(t, []int{2, 3}, len(res.Replies))
	assert.False(t, res.PrimaryFailed)

	calls := gen.Calls()
	assert.Len(t, calls, len(res.Replies))
	assert.EqualValues(t, 1, gen.maxSeen.Load(), "generator calls must be sequential")

	seen := map[string]bool{}
	for i, c := range calls {
		assert.False(t, seen[c.Speaker.ID])
		seen[c.Speaker.ID] = true
		assert.Len(t, c.History, i+1)
		assert.Equal(t, c.Speaker.ID, res.Replies[i].SenderID)
	}
	assert.Equal(t, 1+len(res.Replies), log.Len())
	assert.Equal(t, 1+len(res.Replies), notified)
}

func TestSendDirectedPrimaryFailure(t *testing.T) {
	gen := &recordingGenerator{reply: func(ReplyRequest) (string, error) {
		return "   ", nil
	}}
	log := NewMemoryLog()
	room := newTestRoom(t, Config{
		Roster:    roster("Mia", "Aisha"),
		Log:       log,
		Generator: gen,
		Rand:      &scriptedRand{t: t, floats: []float64{0.9}},
	})

	res, err := room.Send(context.Background(), "mia?")
	require.NoError(t, err)
	assert.Equal(t, ModeDirected, res.Mode)
	assert.True(t, res.PrimaryFailed)
	assert.Empty(t, res.Replies)
	assert.Equal(t, 1, log.Len(), "only the user's line is appended")
}

func TestSendRejectsBlank(t *testing.T) {
	gen := &recordingGenerator{}
	room := newTestRoom(t, Config{Roster: roster("Mia"), Generator: gen})
	_, err := room.Send(context.Background(), " \n ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, gen.Calls())
}

func TestSendEmptyRoster(t *testing.T) {
	gen := &recordingGenerator{}
	log := NewMemoryLog()
	room := newTestRoom(t, Config{Log: log, Generator: gen})

	res, err := room.Send(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Empty(t, res.Replies)
	assert.Equal(t, 1, log.Len())
	assert.Empty(t, gen.Calls())
}

func TestRoundSurvivesCancellation(t *testing.T) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	cast := roster("Mia", "Aisha", "Liam", "Ethan")
	log := NewMemoryLog(msgAt(SenderUser, UserSenderID, "so what now", clock.t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	gen := GeneratorFunc(func(ctx context.Context, req ReplyRequest) (string, error) {
		calls++
		if calls == 1 {
			// the subscriber leaves while the first persona is typing
			cancel()
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "still here, " + req.Speaker.DisplayName, nil
	})

	room := newTestRoom(t, Config{
		Roster:    cast,
		Log:       log,
		Generator: gen,
		Now:       clock.Now,
		Rand:      &scriptedRand{t: t, floats: []float64{0.9, 0.95}, ints: []int{0, 0, 0}},
	})

	assert.Equal(t, OutcomeRound, room.Tick(ctx))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 4, log.Len())
	assert.False(t, room.Generating())
}

func TestSendWaitsBoundedByContext(t *testing.T) {
	room := newTestRoom(t, Config{Roster: roster("Mia"), Generator: &recordingGenerator{}})
	room.round <- struct{}{}
	defer room.unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := room.Send(ctx, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRoundsNeverOverlap(t *testing.T) {
	gen := &recordingGenerator{delay: 2 * time.Millisecond}
	log := NewMemoryLog()
	room := newTestRoom(t, Config{
		Roster:    roster("Mia", "Aisha", "Liam", "Ethan"),
		Log:       log,
		Generator: gen,
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := room.Send(ctx, "hey everyone")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				room.Tick(ctx)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, gen.maxSeen.Load())
	assert.False(t, room.Generating())
}

func TestLogIsAppendOnly(t *testing.T) {
	log := NewMemoryLog()
	room := newTestRoom(t, Config{
		Roster:    roster("Mia", "Aisha", "Liam"),
		Log:       log,
		Generator: &recordingGenerator{},
		Rand:      rand.New(rand.NewPCG(3, 3)),
	})

	ctx := context.Background()
	var prev []Message
	for i := 0; i < 20; i++ {
		if i%3 == 0 {
			_, err := room.Send(ctx, "you all there?")
			require.NoError(t, err)
		} else {
			room.Tick(ctx)
		}
		snap, err := log.Snapshot(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(snap), len(prev))
		assert.Equal(t, prev, snap[:len(prev)])
		prev = snap
	}
}

func TestGreet(t *testing.T) {
	ctx := context.Background()

	t.Run("fires once", func(t *testing.T) {
		gen := &recordingGenerator{}
		log := NewMemoryLog()
		room := newTestRoom(t, Config{
			Roster:    roster("Mia", "Aisha"),
			Log:       log,
			Generator: gen,
			Rand:      &scriptedRand{t: t, floats: []float64{0.2}, ints: []int{1}},
		})

		assert.True(t, room.Greet(ctx))
		assert.False(t, room.Greet(ctx))
		calls := gen.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "2", calls[0].Speaker.ID)
		assert.Empty(t, calls[0].History)
		assert.Equal(t, 1, log.Len())
	})

	t.Run("probability miss", func(t *testing.T) {
		gen := &recordingGenerator{}
		room := newTestRoom(t, Config{
			Roster:    roster("Mia"),
			Generator: gen,
			Rand:      &scriptedRand{t: t, floats: []float64{0.7}},
		})
		assert.False(t, room.Greet(ctx))
		assert.Empty(t, gen.Calls())
	})

	t.Run("existing history", func(t *testing.T) {
		gen := &recordingGenerator{}
		room := newTestRoom(t, Config{
			Roster:    roster("Mia"),
			Log:       NewMemoryLog(msgAt(SenderUser, UserSenderID, "back again", time.Now())),
			Generator: gen,
			Rand:      &scriptedRand{t: t},
		})
		assert.False(t, room.Greet(ctx))
		assert.Empty(t, gen.Calls())
	})
}

func TestRunStopsWithContext(t *testing.T) {
	policy := DefaultPolicy()
	policy.TickInterval = 5 * time.Millisecond
	policy.GreeterProbability = 1

	gen := &recordingGenerator{}
	log := NewMemoryLog()
	room := newTestRoom(t, Config{
		Roster:    roster("Mia", "Aisha"),
		Log:       log,
		Generator: gen,
		Policy:    policy,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- room.Run(ctx) }()

	require.Eventually(t, func() bool { return log.Len() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewRoomValidation(t *testing.T) {
	_, err := NewRoom(Config{RoomID: "r", Generator: &recordingGenerator{}, Policy: DefaultPolicy()})
	assert.Error(t, err, "log is required")

	_, err = NewRoom(Config{RoomID: "r", Log: NewMemoryLog(), Policy: DefaultPolicy()})
	assert.Error(t, err, "generator is required")

	_, err = NewRoom(Config{
		RoomID:    "r",
		Log:       NewMemoryLog(),
		Generator: &recordingGenerator{},
		Policy:    DefaultPolicy(),
		Roster:    []Persona{{ID: "a", DisplayName: "A"}, {ID: "a", DisplayName: "B"}},
	})
	assert.Error(t, err, "duplicate persona ids")

	bad := DefaultPolicy()
	bad.IdleProbability = 1.5
	_, err = NewRoom(Config{RoomID: "r", Log: NewMemoryLog(), Generator: &recordingGenerator{}, Policy: bad})
	assert.Error(t, err)
}
