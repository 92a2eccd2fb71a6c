package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trip-search/internal/models"
	"github.com/example/trip-search/internal/storage"
)

type failingStore struct {
	storage.TripStore
	err error
}

func (f *failingStore) ListTrips(ctx context.Context, _ storage.TripFilter) ([]models.Trip, error) {
	return nil, f.err
}

type recordingStore struct {
	*storage.MemoryStore
	filter storage.TripFilter
}

func (r *recordingStore) ListTrips(ctx context.Context, f storage.TripFilter) ([]models.Trip, error) {
	r.filter = f
	return r.MemoryStore.ListTrips(ctx, f)
}

type memCache struct {
	entries map[string][]models.TripResult
	gets    int
}

func (m *memCache) Get(_ context.Context, key string) ([]models.TripResult, bool) {
	m.gets++
	r, ok := m.entries[key]
	return r, ok
}

func (m *memCache) Set(_ context.Context, key string, results []models.TripResult) {
	m.entries[key] = results
}

type fakeEvents struct {
	events []models.SearchEvent
	err    error
}

func (f *fakeEvents) PublishSearch(_ context.Context, ev models.SearchEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func seededStore() *storage.MemoryStore {
	m := storage.NewMemoryStore()
	m.SaveTrip(mumbaiPune("t1", base.Add(2*time.Hour), models.Stopover{ID: "s1", LocationName: "Lonavala", StopoverOrder: 1, PriceFromOrigin: f(200)}))
	m.SaveTrip(mumbaiPune("t2", base.Add(time.Hour)))
	other := mumbaiPune("t3", base.Add(time.Hour))
	other.DepartureLocation, other.ArrivalLocation = "Delhi", "Agra"
	other.DepartureLat, other.DepartureLng, other.ArrivalLat, other.ArrivalLng = nil, nil, nil, nil
	m.SaveTrip(other)
	return m
}

func TestServiceSearchJoinsStopovers(t *testing.T) {
	s := &Service{Store: seededStore(), Now: func() time.Time { return base }}
	res, err := s.Search(context.Background(), models.SearchCriteria{From: "Lonavala", To: "Pune"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "t1", res[0].Trip.ID)
	assert.Equal(t, 300.0, res[0].Match.SegmentPrice)
	assert.Equal(t, models.PriceStopoverPrice, res[0].Match.PriceCalculationMethod)
}

func TestServiceSearchRanksByDeparture(t *testing.T) {
	s := &Service{Store: seededStore(), Now: func() time.Time { return base }}
	res, err := s.Search(context.Background(), models.SearchCriteria{From: "Mumbai", To: "Pune"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "t2", res[0].Trip.ID)
	assert.Equal(t, "t1", res[1].Trip.ID)
}

func TestServiceSearchFilter(t *testing.T) {
	store := &recordingStore{MemoryStore: seededStore()}
	s := &Service{Store: store, Now: func() time.Time { return base }}

	_, err := s.Search(context.Background(), models.SearchCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.filter.MinSeats)
	assert.Equal(t, base, store.filter.DepartureAfter)
	assert.True(t, store.filter.DepartureBefore.IsZero())

	_, err = s.Search(context.Background(), models.SearchCriteria{Date: "2026-03-20", MinSeats: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, store.filter.MinSeats)
	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), store.filter.DepartureAfter)
	assert.Equal(t, time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC), store.filter.DepartureBefore)

	// searching today never returns trips that already left
	_, err = s.Search(context.Background(), models.SearchCriteria{Date: "2026-03-14"})
	require.NoError(t, err)
	assert.Equal(t, base, store.filter.DepartureAfter)
}

func TestServiceSearchInvalidCriteria(t *testing.T) {
	s := &Service{Store: seededStore()}
	_, err := s.Search(context.Background(), models.SearchCriteria{Date: "14/03/2026"})
	assert.ErrorIs(t, err, ErrInvalidCriteria)

	_, err = s.Search(context.Background(), models.SearchCriteria{MinSeats: -1})
	assert.ErrorIs(t, err, ErrInvalidCriteria)
}

func TestServiceSearchStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	s := &Service{Store: &failingStore{err: boom}}
	res, err := s.Search(context.Background(), models.SearchCriteria{From: "Mumbai"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res)
}

func TestServiceSearchUsesCache(t *testing.T) {
	c := &memCache{entries: map[string][]models.TripResult{}}
	store := &recordingStore{MemoryStore: seededStore()}
	s := &Service{Store: store, Cache: c, Now: func() time.Time { return base }}

	first, err := s.Search(context.Background(), models.SearchCriteria{From: "Mumbai", To: "Pune"})
	require.NoError(t, err)
	assert.Len(t, c.entries, 1)

	store.filter = storage.TripFilter{}
	second, err := s.Search(context.Background(), models.SearchCriteria{From: "mumbai ", To: "PUNE"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, storage.TripFilter{}, store.filter, "cached search must not reach the store")
}

func TestServiceSearchPublishesEvents(t *testing.T) {
	ev := &fakeEvents{err: errors.New("broker down")}
	s := &Service{Store: seededStore(), Events: ev, Now: func() time.Time { return base }}

	res, err := s.Search(context.Background(), models.SearchCriteria{From: "Mumbai", To: "Pune"})
	require.NoError(t, err, "event failures are not search failures")
	require.Len(t, ev.events, 1)
	assert.Equal(t, len(res), ev.events[0].ResultCount)
	assert.Equal(t, "t2", ev.events[0].TopTripID)
	assert.NotEmpty(t, ev.events[0].SearchID)
}

func TestServiceSearchDropsDepartedCachedTrips(t *testing.T) {
	c := &memCache{entries: map[string][]models.TripResult{}}
	criteria := models.SearchCriteria{From: "Mumbai", To: "Pune"}
	now := base
	s := &Service{Store: seededStore(), Cache: c, Now: func() time.Time { return now }}

	first, err := s.Search(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// t2 leaves at base+1h; an hour and a half later only t1 is still ahead
	now = base.Add(90 * time.Minute)
	second, err := s.Search(context.Background(), criteria)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "t1", second[0].Trip.ID)
}
