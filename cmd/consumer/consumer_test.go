package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trip-search/internal/models"
)

// fakeUpdater implements RedisUpdater for tests
type fakeUpdater struct {
	failZ   int // number of times to fail ZIncrBy before succeeding
	failH   int // number of times to fail HSet before succeeding
	zCalls  int
	hCalls  int
	members []string
	hashKey string
	values  map[string]interface{}
}

func (f *fakeUpdater) ZIncrBy(ctx context.Context, key string, incr float64, member string) error {
	f.zCalls++
	if f.zCalls <= f.failZ {
		return errors.New("zincrby fail")
	}
	f.members = append(f.members, member)
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.hCalls <= f.failH {
		return errors.New("hset fail")
	}
	f.hashKey = key
	f.values = values
	return nil
}

func searchEvent() *models.SearchEvent {
	return &models.SearchEvent{
		SearchID:    "s-1",
		From:        "Mumbai",
		To:          "Pune ",
		ResultCount: 3,
		TopTripID:   "t1",
		At:          time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
	}
}

func TestUpdateRedisWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{failZ: 1, failH: 1}
	start := time.Now()
	err := updateRedisWithRetry(context.Background(), f, searchEvent(), 3, 10*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 2, f.zCalls)
	assert.Equal(t, 2, f.hCalls)
	assert.Equal(t, []string{"mumbai->pune"}, f.members, "route counted exactly once")
	assert.Equal(t, "route:last:mumbai->pune", f.hashKey)
	assert.Equal(t, "t1", f.values["top_trip_id"])
	assert.Equal(t, "2026-03-14T08:00:00Z", f.values["at"])
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond, "expected at least one backoff")
}

func TestUpdateRedisWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{failZ: 5}
	err := updateRedisWithRetry(context.Background(), f, searchEvent(), 3, 5*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 3, f.zCalls)
	assert.Zero(t, f.hCalls)
}

func TestUpdateRedisWithRetry_StopsOnCancel(t *testing.T) {
	f := &fakeUpdater{failZ: 5}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := updateRedisWithRetry(ctx, f, searchEvent(), 3, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.zCalls)
}
