package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Price float64
	Note  string
}

func TestResponseCacheRoundTripsWithinTTL(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, c.Set("XAUTRY", payload{Price: 2450.5, Note: "gold"}, now))

	var got payload
	ok := c.Get("XAUTRY", &got, now.Add(30*time.Second))
	assert.True(t, ok)
	assert.Equal(t, payload{Price: 2450.5, Note: "gold"}, got)
}

func TestResponseCacheExpiresAfterTTL(t *testing.T) {
	c := New(time.Minute)
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Set("XAUTRY", payload{Price: 2450.5}, now))

	var got payload
	ok := c.Get("XAUTRY", &got, now.Add(2*time.Minute))
	assert.False(t, ok)
}

func TestResponseCacheMissingKeyReturnsFalse(t *testing.T) {
	c := New(time.Minute)
	var got payload
	assert.False(t, c.Get("missing", &got, time.Now()))
}
