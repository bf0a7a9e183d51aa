package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lovink/backend/internal/community"
)

const instrumentation = "lovink/backend/internal/community"

// RoomHooks reports room rounds to prometheus and opens a span per round
func RoomHooks() community.Hooks {
	return community.Hooks{
		TickDone: func(_ string, outcome community.TickOutcome) {
			RoomTicks.WithLabelValues(string(outcome)).Inc()
		},
		ReplyDone: func(_ string, kind community.RoundKind, err error, took time.Duration) {
			result := "appended"
			switch {
			case err == nil:
			case errors.Is(err, community.ErrBlankReply), errors.Is(err, community.ErrFilteredEmpty):
				result = "filtered"
			default:
				result = "failed"
			}
			RoomReplies.WithLabelValues(string(kind), result).Inc()
			ReplyDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
		},
		StartRound: func(ctx context.Context, roomID string, kind community.RoundKind, responders int) (context.Context, func()) {
			ctx, span := otel.Tracer(instrumentation).Start(ctx, "community.round",
				trace.WithAttributes(
					attribute.String("room.id", roomID),
					attribute.String("round.kind", string(kind)),
					attribute.Int("round.responders", responders),
				),
			)
			return ctx, func() { span.End() }
		},
	}
}
