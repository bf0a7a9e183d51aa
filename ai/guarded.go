package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"lovink/backend/internal/community"
	"lovink/backend/pkg/logger"
	"lovink/backend/pkg/resilience"
)

const instrumentation = "lovink/backend/ai"

// ErrDirectUnsupported is returned by GenerateDirect when the wrapped
// generator only speaks in rooms
var ErrDirectUnsupported = errors.New("generator does not support one-to-one chat")

// GuardOptions bounds calls to a generator
type GuardOptions struct {
	Name    string
	Timeout time.Duration
	// RequestsPerSec of zero disables rate limiting
	RequestsPerSec float64
	Burst          int
	Breaker        resilience.Config
}

// GuardedGenerator puts a rate limit, a circuit breaker and a per-call
// deadline in front of another generator
type GuardedGenerator struct {
	next    community.ReplyGenerator
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	tracer  trace.Tracer
	calls   metric.Int64Counter
	log     *logger.Logger
}

// NewGuardedGenerator wraps next
func NewGuardedGenerator(next community.ReplyGenerator, opts GuardOptions, log *logger.Logger) *GuardedGenerator {
	g := &GuardedGenerator{
		next:    next,
		name:    opts.Name,
		timeout: opts.Timeout,
		breaker: resilience.New(opts.Breaker, log),
		tracer:  otel.Tracer(instrumentation),
		log:     log,
	}
	if opts.RequestsPerSec > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), max(opts.Burst, 1))
	}
	calls, err := otel.Meter(instrumentation).Int64Counter("lovink.generator.calls",
		metric.WithDescription("Reply generator calls by provider and result"))
	if err != nil {
		log.LogError(err, "create generator call counter")
	}
	g.calls = calls
	return g
}

// GenerateReply implements community.ReplyGenerator
func (g *GuardedGenerator) GenerateReply(ctx context.Context, req community.ReplyRequest) (string, error) {
	return g.guard(ctx, "generator.reply", req.Speaker.ID, len(req.History), func(ctx context.Context) (string, error) {
		return g.next.GenerateReply(ctx, req)
	})
}

// GenerateDirect implements DirectGenerator when the wrapped generator does
func (g *GuardedGenerator) GenerateDirect(ctx context.Context, req DirectRequest) (string, error) {
	direct, ok := g.next.(DirectGenerator)
	if !ok {
		return "", ErrDirectUnsupported
	}
	return g.guard(ctx, "generator.direct", req.Partner.ID, len(req.History), func(ctx context.Context) (string, error) {
		return direct.GenerateDirect(ctx, req)
	})
}

func (g *GuardedGenerator) guard(ctx context.Context, span string, personaID string, historyLen int, call func(context.Context) (string, error)) (reply string, err error) {
	ctx, sp := g.tracer.Start(ctx, span, trace.WithAttributes(
		attribute.String("generator.name", g.name),
		attribute.String("persona.id", personaID),
		attribute.Int("history.len", historyLen),
	))
	defer func() {
		g.record(ctx, err)
		if err != nil {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, err.Error())
		}
		sp.End()
	}()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	err = g.breaker.Execute(ctx, func(ctx context.Context) error {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		var callErr error
		reply, callErr = call(ctx)
		return callErr
	})
	if err != nil {
		g.log.WithContext(ctx).WithPersona(personaID).Debug("generator call failed",
			"generator", g.name,
			"error", err.Error(),
		)
		return "", err
	}
	return reply, nil
}

func (g *GuardedGenerator) record(ctx context.Context, err error) {
	if g.calls == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrOpen):
		result = "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}
	g.calls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("generator", g.name),
		attribute.String("result", result),
	))
}

// BreakerState exposes the breaker state for health reporting
func (g *GuardedGenerator) BreakerState() resilience.State {
	return g.breaker.State()
}
