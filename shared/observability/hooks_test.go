package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"lovink/backend/internal/community"
)

func TestRoomHooksCountOutcomes(t *testing.T) {
	h := RoomHooks()

	before := testutil.ToFloat64(RoomTicks.WithLabelValues("stale"))
	h.TickDone("r1", community.OutcomeStale)
	assert.Equal(t, before+1, testutil.ToFloat64(RoomTicks.WithLabelValues("stale")))

	filtered := testutil.ToFloat64(RoomReplies.WithLabelValues("tick", "filtered"))
	failed := testutil.ToFloat64(RoomReplies.WithLabelValues("send", "failed"))
	h.ReplyDone("r1", community.RoundTick, community.ErrFilteredEmpty, time.Millisecond)
	h.ReplyDone("r1", community.RoundSend, errors.New("timeout"), time.Second)
	assert.Equal(t, filtered+1, testutil.ToFloat64(RoomReplies.WithLabelValues("tick", "filtered")))
	assert.Equal(t, failed+1, testutil.ToFloat64(RoomReplies.WithLabelValues("send", "failed")))

	ctx, end := h.StartRound(context.Background(), "r1", community.RoundGreeter, 1)
	assert.NotNil(t, ctx)
	end()
}

func TestBreakerChanged(t *testing.T) {
	BreakerChanged("gen", "closed", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(BreakerState.WithLabelValues("gen")))
	BreakerChanged("gen", "half-open", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(BreakerState.WithLabelValues("gen")))
}
