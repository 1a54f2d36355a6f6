package usage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakly/billing-engine/internal/config"
)

func setupTestCounter(t *testing.T) *Counter {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	counter, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return counter
}

func TestIncrementAndCount(t *testing.T) {
	counter := setupTestCounter(t)
	ctx := context.Background()
	day := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)

	n, err := counter.Increment(ctx, 42, KindText, day)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = counter.Increment(ctx, 42, KindText, day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := counter.Count(ctx, 42, KindText, day)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestCountersAreIndependent(t *testing.T) {
	counter := setupTestCounter(t)
	ctx := context.Background()
	day := time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC)

	_, err := counter.Increment(ctx, 42, KindText, day)
	require.NoError(t, err)

	// Голосовой счётчик того же пользователя не затронут.
	got, err := counter.Count(ctx, 42, KindVoice, day)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	// Другой пользователь не затронут.
	got, err = counter.Count(ctx, 43, KindText, day)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestNewDayStartsFresh(t *testing.T) {
	counter := setupTestCounter(t)
	ctx := context.Background()
	day := time.Date(2025, 5, 10, 23, 59, 0, 0, time.UTC)

	for range 5 {
		_, err := counter.Increment(ctx, 42, KindVoice, day)
		require.NoError(t, err)
	}

	nextDay := day.Add(2 * time.Minute)
	got, err := counter.Count(ctx, 42, KindVoice, nextDay)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestAllow(t *testing.T) {
	counter := setupTestCounter(t)
	ctx := context.Background()
	day := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	limit := 3

	for i := range limit {
		ok, err := counter.Allow(ctx, 42, KindText, day, limit)
		require.NoError(t, err)
		assert.True(t, ok, "message %d should be allowed", i+1)
	}

	ok, err := counter.Allow(ctx, 42, KindText, day, limit)
	require.NoError(t, err)
	assert.False(t, ok, "message above the limit should be rejected")
}
