package colsched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThresholdConsecutiveFailures(t *testing.T) {
	b := NewBreaker("test-collector", 5, 300*time.Second)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		opened := b.RecordFailure(now)
		require.False(t, opened)
		assert.False(t, b.IsOpen())
	}

	opened := b.RecordFailure(now)
	assert.True(t, opened)
	assert.True(t, b.IsOpen())
	assert.Equal(t, 5, b.Snapshot().TotalFailures)
}

func TestBreakerBlocksProbesBeforeResetTimeout(t *testing.T) {
	b := NewBreaker("test-collector", 5, 300*time.Second)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b.RecordFailure(now)
	}
	require.True(t, b.IsOpen())

	assert.False(t, b.AllowProbe(now.Add(299*time.Second)))
	assert.True(t, b.AllowProbe(now.Add(301*time.Second)))
}

func TestBreakerFullyResetsAfterSuccessfulPostTimeoutProbe(t *testing.T) {
	b := NewBreaker("test-collector", 5, 300*time.Second)
	lastFailure := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b.RecordFailure(lastFailure)
	}
	require.True(t, b.IsOpen())

	probeTime := lastFailure.Add(301 * time.Second)
	require.True(t, b.AllowProbe(probeTime))
	b.RecordSuccess(probeTime)

	assert.False(t, b.IsOpen())
	assert.Equal(t, 0, b.Snapshot().FailureCount)
}

func TestBreakerSuccessDecaysByOneWhenClosed(t *testing.T) {
	b := NewBreaker("test-collector", 5, 300*time.Second)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	b.RecordFailure(now)
	b.RecordFailure(now)
	require.Equal(t, 2, b.Snapshot().FailureCount)

	b.RecordSuccess(now)
	assert.Equal(t, 1, b.Snapshot().FailureCount)
	assert.False(t, b.IsOpen())
}

func TestBreakerStaysOpenOnSuccessBeforeResetWindow(t *testing.T) {
	b := NewBreaker("test-collector", 5, 300*time.Second)
	lastFailure := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b.RecordFailure(lastFailure)
	}
	require.True(t, b.IsOpen())

	b.RecordSuccess(lastFailure.Add(10 * time.Second))
	assert.True(t, b.IsOpen())
}
