package collectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsFirstRequestImmediately(t *testing.T) {
	rl := NewRateLimiter(60)
	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiterEnforcesMinimumInterval(t *testing.T) {
	rl := NewRateLimiter(600) // 100ms minimum interval
	ctx := context.Background()
	require.NoError(t, rl.Wait(ctx))

	start := time.Now()
	require.NoError(t, rl.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimiterDefaultsWhenNonPositiveRate(t *testing.T) {
	rl := NewRateLimiter(0)
	assert.Equal(t, time.Minute/60, rl.minInterval)
}

func TestRateLimiterReturnsContextError(t *testing.T) {
	rl := NewRateLimiter(1) // 60s minimum interval
	ctx := context.Background()
	require.NoError(t, rl.Wait(ctx))

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rl.Wait(cancelCtx)
	assert.ErrorIs(t, err, context.Canceled)
}
