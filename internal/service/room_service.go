package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lovink/backend/internal/community"
	"lovink/backend/internal/models"
	"lovink/backend/internal/store"
	"lovink/backend/pkg/logger"
	"lovink/backend/shared/observability"
)

// RosterSource loads the persona roster of a user's room
type RosterSource interface {
	Roster(ctx context.Context, userID string) ([]community.Persona, error)
}

// RoomOptions configures a RoomService
type RoomOptions struct {
	Policy           community.Policy
	MinViewportWidth int
	// IdleTTL drops a room without subscribers from memory
	IdleTTL time.Duration
	// Typing is told when a round starts and ends in a room
	Typing func(roomID string, active bool)
}

type activeRoom struct {
	room   *community.Room
	userID string
	// refs counts subscribers; the scheduler loop runs while refs > 0
	refs int
	// pins counts callers using the room outside a subscription, such as
	// an HTTP send waiting for its round
	pins     int
	cancel   context.CancelFunc
	done     chan struct{}
	lastUsed time.Time
}

// loopStopped reports whether the last scheduler loop has returned. A loop
// may outlive its cancel while it finishes a round.
func (ar *activeRoom) loopStopped() bool {
	if ar.done == nil {
		return true
	}
	select {
	case <-ar.done:
		return true
	default:
		return false
	}
}

// idle reports whether nothing is using the room. Must be called with mu
// held.
func (ar *activeRoom) idle() bool {
	return ar.refs == 0 && ar.pins == 0 && !ar.room.Generating() && ar.loopStopped()
}

// RoomService keeps one community.Room per room id. The scheduler loop of a
// room runs while at least one subscriber holds it open.
type RoomService struct {
	rosters RosterSource
	logs    store.LogFactory
	gen     community.ReplyGenerator
	opts    RoomOptions
	log     *logger.Logger
	now     func() time.Time

	mu     sync.Mutex
	rooms  map[string]*activeRoom
	closed bool
	loops  sync.WaitGroup
}

// NewRoomService creates the room manager
func NewRoomService(rosters RosterSource, logs store.LogFactory, gen community.ReplyGenerator, opts RoomOptions, log *logger.Logger) *RoomService {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 2 * time.Minute
	}
	return &RoomService{
		rosters: rosters,
		logs:    logs,
		gen:     gen,
		opts:    opts,
		log:     log,
		now:     time.Now,
		rooms:   make(map[string]*activeRoom),
	}
}

// Room returns the room of userID, creating it on first use. viewportWidth
// decides whether the room may act on its own and is only read when the
// room is created.
func (s *RoomService) Room(ctx context.Context, userID, roomID string, viewportWidth int) (*community.Room, error) {
	ar, err := s.activate(ctx, userID, roomID, viewportWidth, nil)
	if err != nil {
		return nil, err
	}
	return ar.room, nil
}

// Acquire is Room for a caller that runs a round outside a subscription.
// The room is not swept before done is called.
func (s *RoomService) Acquire(ctx context.Context, userID, roomID string, viewportWidth int) (*community.Room, func(), error) {
	ar, err := s.activate(ctx, userID, roomID, viewportWidth, func(ar *activeRoom) { ar.pins++ })
	if err != nil {
		return nil, nil, err
	}
	var once sync.Once
	done := func() {
		once.Do(func() {
			s.mu.Lock()
			ar.pins--
			ar.lastUsed = s.now()
			s.mu.Unlock()
		})
	}
	return ar.room, done, nil
}

// Open returns the room and starts its scheduler loop if it is the first
// subscriber. Call release when the subscriber leaves.
func (s *RoomService) Open(ctx context.Context, userID, roomID string, viewportWidth int) (*community.Room, func(), error) {
	ar, err := s.activate(ctx, userID, roomID, viewportWidth, func(ar *activeRoom) {
		ar.refs++
		if ar.refs == 1 {
			s.startLoop(ar)
		}
	})
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() { s.release(roomID, ar) })
	}
	return ar.room, release, nil
}

// activate finds or builds the room and runs hold on it under mu, so a
// sweep cannot drop the room in between. The roster is loaded without mu.
func (s *RoomService) activate(ctx context.Context, userID, roomID string, viewportWidth int, hold func(*activeRoom)) (*activeRoom, error) {
	if roomID != models.CommunityRoomID(userID) {
		return nil, ErrNotRoomOwner
	}
	if ar, err := s.lookup(roomID, hold); ar != nil || err != nil {
		return ar, err
	}

	roster, err := s.rosters.Roster(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	room, err := community.NewRoom(community.Config{
		RoomID:    roomID,
		Roster:    roster,
		Log:       s.logs(roomID),
		Generator: s.gen,
		Policy:    s.opts.Policy,
		Gate:      community.ViewportGate(viewportWidth, s.opts.MinViewportWidth),
		Logger:    s.log,
		Hooks:     s.hooks(),
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrShuttingDown
	}
	ar, ok := s.rooms[roomID]
	if !ok {
		ar = &activeRoom{room: room, userID: userID}
		s.rooms[roomID] = ar
		s.log.WithRoom(roomID).Info("room opened",
			"personas", len(roster),
			"autonomous", room.Autonomous(),
		)
	}
	ar.lastUsed = s.now()
	if hold != nil {
		hold(ar)
	}
	return ar, nil
}

func (s *RoomService) lookup(roomID string, hold func(*activeRoom)) (*activeRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrShuttingDown
	}
	ar, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	ar.lastUsed = s.now()
	if hold != nil {
		hold(ar)
	}
	return ar, nil
}

// startLoop must be called with mu held
func (s *RoomService) startLoop(ar *activeRoom) {
	loopCtx, cancel := context.WithCancel(context.Background())
	ar.cancel = cancel
	ar.done = make(chan struct{})
	observability.ActiveRooms.Inc()

	s.loops.Add(1)
	go func(room *community.Room, done chan struct{}) {
		defer s.loops.Done()
		defer close(done)
		defer observability.ActiveRooms.Dec()
		if err := room.Run(loopCtx); err != nil {
			s.log.WithRoom(room.ID()).LogError(err, "room loop stopped")
		}
	}(ar.room, ar.done)
}

func (s *RoomService) release(roomID string, ar *activeRoom) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ar.refs--
	ar.lastUsed = s.now()
	if ar.refs > 0 || ar.cancel == nil {
		return
	}
	ar.cancel()
	ar.cancel = nil
	s.log.WithRoom(roomID).Debug("room loop stopped, no subscribers")
}

// Sweep forgets rooms that have been idle for IdleTTL: no subscribers, no
// pending sends, no round in flight and no loop still finishing. A later
// visit builds a fresh room with the current roster.
func (s *RoomService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.opts.IdleTTL)
	n := 0
	for id, ar := range s.rooms {
		if ar.idle() && ar.lastUsed.Before(cutoff) {
			delete(s.rooms, id)
			n++
		}
	}
	return n
}

// Run sweeps idle rooms until ctx is done, then shuts the rooms down
func (s *RoomService) Run(ctx context.Context) error {
	ticker := time.NewTicker(max(s.opts.IdleTTL/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug("idle rooms dropped", "count", n)
			}
		}
	}
}

// Shutdown stops every room loop and waits for them. Later calls to Room
// and Open fail with ErrShuttingDown.
func (s *RoomService) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for _, ar := range s.rooms {
		if ar.cancel != nil {
			ar.cancel()
			ar.cancel = nil
		}
	}
	s.mu.Unlock()
	s.loops.Wait()
}

// Active returns the number of rooms with a running loop
func (s *RoomService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ar := range s.rooms {
		if ar.cancel != nil {
			n++
		}
	}
	return n
}

// Healthy reports whether the service accepts rooms
func (s *RoomService) Healthy(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShuttingDown
	}
	return nil
}

func (s *RoomService) hooks() community.Hooks {
	hooks := observability.RoomHooks()
	if s.opts.Typing == nil {
		return hooks
	}
	start := hooks.StartRound
	hooks.StartRound = func(ctx context.Context, roomID string, kind community.RoundKind, responders int) (context.Context, func()) {
		ctx, end := start(ctx, roomID, kind, responders)
		s.opts.Typing(roomID, true)
		return ctx, func() {
			s.opts.Typing(roomID, false)
			end()
		}
	}
	return hooks
}
