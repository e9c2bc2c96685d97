package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerSpacesRequests(t *testing.T) {
	delay := 40 * time.Millisecond
	pacer := NewPacer(delay)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, pacer.Throttle(ctx))
	}
	// the first request goes out immediately, the next two wait one delay each
	assert.GreaterOrEqual(t, time.Since(start), 2*delay-5*time.Millisecond)
}

func TestPacerZeroDelay(t *testing.T) {
	pacer := NewPacer(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, pacer.Throttle(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacerRefusesWaitPastDeadline(t *testing.T) {
	pacer := NewPacer(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, pacer.Throttle(ctx))

	err := pacer.Throttle(ctx)
	assert.ErrorIs(t, err, ErrOutOfTime)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, ctx.Err(), "the pacer should answer without waiting for the deadline")
}

func TestPacerCancelledContext(t *testing.T) {
	pacer := NewPacer(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, pacer.Throttle(ctx), context.Canceled)
}
