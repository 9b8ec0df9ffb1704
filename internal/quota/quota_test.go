package quota

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketcore/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := fmt.Sprintf("file:quota_test_%s?mode=memory&cache=shared", t.Name())
	db, err := database.New(database.Config{Path: path, Name: "quota_test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCounterIncrementAccumulatesWithinADay(t *testing.T) {
	db := newTestDB(t)
	counter, err := NewCounter(db, "truncgil", 1000, zerolog.Nop())
	require.NoError(t, err)

	day := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		count, err := counter.Increment(context.Background(), day)
		require.NoError(t, err)
		require.Equal(t, i+1, count)
	}

	count, err := counter.Count(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestCounterCountIsZeroForUnseenDay(t *testing.T) {
	db := newTestDB(t)
	counter, err := NewCounter(db, "truncgil", 1000, zerolog.Nop())
	require.NoError(t, err)

	count, err := counter.Count(context.Background(), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestCounterDefaultsLimitWhenNonPositive(t *testing.T) {
	db := newTestDB(t)
	counter, err := NewCounter(db, "truncgil", 0, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, DefaultDailyLimit, counter.limit)
}

func TestCounterTracksDaysIndependently(t *testing.T) {
	db := newTestDB(t)
	counter, err := NewCounter(db, "truncgil", 1000, zerolog.Nop())
	require.NoError(t, err)

	day1 := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	_, err = counter.Increment(context.Background(), day1)
	require.NoError(t, err)
	_, err = counter.Increment(context.Background(), day1)
	require.NoError(t, err)
	_, err = counter.Increment(context.Background(), day2)
	require.NoError(t, err)

	count1, err := counter.Count(context.Background(), day1)
	require.NoError(t, err)
	require.Equal(t, 2, count1)

	count2, err := counter.Count(context.Background(), day2)
	require.NoError(t, err)
	require.Equal(t, 1, count2)
}
