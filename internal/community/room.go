package community

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lovink/backend/pkg/logger"
)

// TickOutcome records what a tick decided
type TickOutcome string

const (
	OutcomeGated        TickOutcome = "gated"
	OutcomeBusy         TickOutcome = "busy"
	OutcomeNoPersonas   TickOutcome = "no_personas"
	OutcomeEmptyLog     TickOutcome = "empty_log"
	OutcomeStale        TickOutcome = "stale"
	OutcomeGlyphTail    TickOutcome = "glyph_tail"
	OutcomeIdle         TickOutcome = "idle"
	OutcomeNoResponders TickOutcome = "no_responders"
	OutcomeRound        TickOutcome = "round"
	OutcomeLogError     TickOutcome = "log_error"
)

// RoundKind labels what triggered a round
type RoundKind string

const (
	RoundSend    RoundKind = "send"
	RoundTick    RoundKind = "tick"
	RoundGreeter RoundKind = "greeter"
)

// Hooks receives round telemetry. Any field may be nil.
type Hooks struct {
	TickDone  func(roomID string, outcome TickOutcome)
	ReplyDone func(roomID string, kind RoundKind, err error, took time.Duration)
	// StartRound may wrap ctx, e.g. with a tracing span; the returned func
	// ends it
	StartRound func(ctx context.Context, roomID string, kind RoundKind, responders int) (context.Context, func())
}

// SendResult is what a human send produced
type SendResult struct {
	UserMessage   Message
	Mode          AddressMode
	Replies       []Message
	PrimaryFailed bool
}

// Config wires a room
type Config struct {
	RoomID    string
	Roster    []Persona
	Log       Log
	Generator ReplyGenerator
	Policy    Policy
	Gate      SessionGate
	// Rand defaults to NewRand()
	Rand Rand
	// Now defaults to time.Now
	Now    func() time.Time
	Logger *logger.Logger
	Hooks  Hooks
}

// Room is the controller of one community conversation. A tick and a send
// never interleave their read-decide-generate-append sequences: both hold
// the round lock for the whole round.
type Room struct {
	id       string
	roster   []Persona
	log      Log
	gen      ReplyGenerator
	policy   Policy
	resolver *Resolver
	gate     bool
	rng      Rand
	now      func() time.Time
	logger   *logger.Logger
	hooks    Hooks

	// round is the generation-in-flight mutex; a full channel means a round
	// is running
	round chan struct{}

	greetOnce sync.Once

	obsMu     sync.RWMutex
	observers map[int]func(Message)
	nextObs   int
}

// NewRoom validates cfg and builds a room. The roster is copied.
func NewRoom(cfg Config) (*Room, error) {
	if cfg.Log == nil {
		return nil, fmt.Errorf("room %q: log is required", cfg.RoomID)
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("room %q: generator is required", cfg.RoomID)
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("room %q: %w", cfg.RoomID, err)
	}
	seen := make(map[string]bool, len(cfg.Roster))
	for _, p := range cfg.Roster {
		if p.ID == "" || seen[p.ID] {
			return nil, fmt.Errorf("room %q: persona ids must be unique and non-empty (%q)", cfg.RoomID, p.ID)
		}
		seen[p.ID] = true
	}
	if cfg.Gate == nil {
		cfg.Gate = StaticGate(true)
	}
	if cfg.Rand == nil {
		cfg.Rand = NewRand()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetGlobal()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New(logger.DefaultConfig())
	}

	roster := make([]Persona, len(cfg.Roster))
	copy(roster, cfg.Roster)

	return &Room{
		id:        cfg.RoomID,
		roster:    roster,
		log:       cfg.Log,
		gen:       cfg.Generator,
		policy:    cfg.Policy,
		resolver:  NewResolver(cfg.Policy),
		gate:      cfg.Gate.AutonomousEnabled(),
		rng:       cfg.Rand,
		now:       cfg.Now,
		logger:    cfg.Logger.WithRoom(cfg.RoomID),
		hooks:     cfg.Hooks,
		round:     make(chan struct{}, 1),
		observers: make(map[int]func(Message)),
	}, nil
}

// ID returns the room id
func (r *Room) ID() string { return r.id }

// Roster returns a copy of the persona roster
func (r *Room) Roster() []Persona {
	out := make([]Persona, len(r.roster))
	copy(out, r.roster)
	return out
}

// Autonomous reports the SessionGate decision taken at construction
func (r *Room) Autonomous() bool { return r.gate }

// Generating reports whether a round is in flight
func (r *Room) Generating() bool { return len(r.round) == 1 }

// Messages returns the current log snapshot
func (r *Room) Messages(ctx context.Context) ([]Message, error) {
	return r.log.Snapshot(ctx)
}

// Subscribe registers fn to be called once after every successful append.
// The returned func unsubscribes.
func (r *Room) Subscribe(fn func(Message)) func() {
	r.obsMu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.obsMu.Unlock()
	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

func (r *Room) notify(msg Message) {
	r.obsMu.RLock()
	fns := make([]func(Message), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.obsMu.RUnlock()
	for _, fn := range fns {
		fn(msg)
	}
}

func (r *Room) tryLock() bool {
	select {
	case r.round <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *Room) lock(ctx context.Context) error {
	select {
	case r.round <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) unlock() { <-r.round }

// Send appends the human's message and runs the responder round. It waits
// for an in-flight round to finish first. Generator failures never become
// errors; a failed primary responder is reported through PrimaryFailed.
func (r *Room) Send(ctx context.Context, text string) (SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, ErrEmptyMessage
	}
	if err := r.lock(ctx); err != nil {
		return SendResult{}, err
	}
	defer r.unlock()

	userMsg := Message{
		ID:         NewMessageID(),
		SenderKind: SenderUser,
		SenderID:   UserSenderID,
		Text:       text,
		Timestamp:  r.now().UnixMilli(),
	}
	if err := r.log.Append(ctx, userMsg); err != nil {
		return SendResult{}, fmt.Errorf("append user message: %w", err)
	}
	r.notify(userMsg)

	result := SendResult{UserMessage: userMsg}
	if len(r.roster) == 0 {
		result.Mode = ModeFallback
		return result, nil
	}

	res := r.resolver.Resolve(r.rng, text, r.roster)
	result.Mode = res.Mode
	r.logger.Debug("resolved responders",
		"mode", string(res.Mode),
		"responders", personaIDs(res.Responders),
	)

	replies, primaryOK := r.runRound(ctx, RoundSend, res.Responders, Filter{Cap: r.policy.DirectCap})
	result.Replies = replies
	result.PrimaryFailed = !primaryOK
	return result, nil
}

// Tick runs one autonomous scheduling decision. It never waits for the
// round lock: a busy room skips the tick.
func (r *Room) Tick(ctx context.Context) TickOutcome {
	outcome := r.tick(ctx)
	if r.hooks.TickDone != nil {
		r.hooks.TickDone(r.id, outcome)
	}
	return outcome
}

func (r *Room) tick(ctx context.Context) TickOutcome {
	if !r.gate {
		return OutcomeGated
	}
	if !r.tryLock() {
		return OutcomeBusy
	}
	defer r.unlock()

	if len(r.roster) == 0 {
		return OutcomeNoPersonas
	}
	tail, ok, err := r.log.Tail(ctx)
	if err != nil {
		r.logger.LogError(err, "read log tail")
		return OutcomeLogError
	}
	if !ok {
		return OutcomeEmptyLog
	}
	if r.now().Sub(tail.Time()) > r.policy.RecencyWindow {
		return OutcomeStale
	}
	if IsGlyphOnly(tail.Text) {
		return OutcomeGlyphTail
	}
	if Roll(r.rng, r.policy.IdleProbability) {
		return OutcomeIdle
	}

	responders := r.pickTickResponders(tail)
	if len(responders) == 0 {
		return OutcomeNoResponders
	}
	r.runRound(ctx, RoundTick, responders, Filter{Cap: r.policy.AutonomousCap})
	return OutcomeRound
}

// pickTickResponders branches on who spoke last
func (r *Room) pickTickResponders(tail Message) []Persona {
	if tail.FromUser() {
		k := Choose(r.rng, r.policy.userTailChoices())
		return Sample(r.rng, r.roster, k)
	}
	candidates := without(r.roster, tail.SenderID)
	if len(candidates) == 0 {
		return nil
	}
	k := Choose(r.rng, r.policy.personaTailChoices())
	return Sample(r.rng, candidates, k)
}

// Greet runs the opening round of a fresh room at most once per Room. It
// reports whether a greeter round ran.
func (r *Room) Greet(ctx context.Context) bool {
	ran := false
	r.greetOnce.Do(func() {
		if !r.gate || len(r.roster) == 0 {
			return
		}
		if !r.tryLock() {
			return
		}
		defer r.unlock()

		if _, ok, err := r.log.Tail(ctx); err != nil || ok {
			return
		}
		if !Roll(r.rng, r.policy.GreeterProbability) {
			return
		}
		r.runRound(ctx, RoundGreeter, []Persona{Pick(r.rng, r.roster)}, Filter{Cap: r.policy.AutonomousCap})
		ran = true
	})
	return ran
}

// Run greets and then ticks every Policy.TickInterval until ctx is done. A
// gated room only waits for ctx.
func (r *Room) Run(ctx context.Context) error {
	if !r.gate {
		<-ctx.Done()
		return nil
	}
	r.Greet(ctx)

	ticker := time.NewTicker(r.policy.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// runRound asks each responder in order, each seeing the replies appended
// before it. The caller holds the round lock. It returns the appended
// replies and whether the first responder succeeded.
//
// A started round is not cancelled with ctx: every responder is attempted,
// each bounded only by the generator's own timeout.
func (r *Room) runRound(ctx context.Context, kind RoundKind, responders []Persona, filter Filter) ([]Message, bool) {
	ctx = context.WithoutCancel(ctx)
	if r.hooks.StartRound != nil {
		var end func()
		ctx, end = r.hooks.StartRound(ctx, r.id, kind, len(responders))
		defer end()
	}

	var replies []Message
	primaryOK := false
	for i, p := range responders {
		msg, err := r.reply(ctx, kind, p, filter)
		if err != nil {
			r.logger.Warn("responder skipped",
				"round", string(kind),
				"persona", p.ID,
				"error", err.Error(),
			)
			continue
		}
		if i == 0 {
			primaryOK = true
		}
		replies = append(replies, msg)
	}
	return replies, primaryOK
}

func (r *Room) reply(ctx context.Context, kind RoundKind, speaker Persona, filter Filter) (msg Message, err error) {
	start := time.Now()
	defer func() {
		if r.hooks.ReplyDone != nil {
			r.hooks.ReplyDone(r.id, kind, err, time.Since(start))
		}
	}()

	history, err := r.log.Snapshot(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("snapshot: %w", err)
	}
	raw, err := r.gen.GenerateReply(ctx, ReplyRequest{
		RoomID:  r.id,
		Speaker: speaker,
		Roster:  r.Roster(),
		History: history,
	})
	if err != nil {
		return Message{}, fmt.Errorf("generate: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return Message{}, ErrBlankReply
	}
	text, ok := filter.Apply(raw)
	if !ok {
		return Message{}, ErrFilteredEmpty
	}

	msg = Message{
		ID:         NewMessageID(),
		SenderKind: SenderPersona,
		SenderID:   speaker.ID,
		Text:       text,
		Timestamp:  r.now().UnixMilli(),
	}
	if err := r.log.Append(ctx, msg); err != nil {
		return Message{}, fmt.Errorf("append reply: %w", err)
	}
	r.notify(msg)
	return msg, nil
}

func personaIDs(ps []Persona) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}
