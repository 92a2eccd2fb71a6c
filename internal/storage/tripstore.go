package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/trip-search/internal/models"
)

var ErrTripNotFound = errors.New("trip not found")

// TripFilter is the coarse pre-match filter applied by the store.
// A zero DepartureBefore means no upper bound.
type TripFilter struct {
	MinSeats        int
	DepartureAfter  time.Time
	DepartureBefore time.Time
}

// TripStore is the read side of the trip-publishing workflow.
type TripStore interface {
	// ListTrips returns active or scheduled trips with at least MinSeats free
	// seats departing inside the filter window. Stopovers are not loaded.
	ListTrips(ctx context.Context, f TripFilter) ([]models.Trip, error)
	// ListStopovers returns the stopovers of the given trips ordered by
	// stopover order.
	ListStopovers(ctx context.Context, tripIDs []string) ([]models.Stopover, error)
	// GetTrip returns one trip with its stopovers.
	GetTrip(ctx context.Context, id string) (models.Trip, error)
}

// AttachStopovers groups stopovers by trip id onto trips.
func AttachStopovers(trips []models.Trip, stops []models.Stopover) {
	byTrip := make(map[string][]models.Stopover, len(trips))
	for _, s := range stops {
		byTrip[s.TripID] = append(byTrip[s.TripID], s)
	}
	for i := range trips {
		trips[i].Stopovers = byTrip[trips[i].ID]
	}
}

func (f TripFilter) matches(t models.Trip) bool {
	if t.Status != models.TripStatusActive && t.Status != models.TripStatusScheduled {
		return false
	}
	if t.AvailableSeats < f.MinSeats {
		return false
	}
	if t.DepartureTime.Before(f.DepartureAfter) {
		return false
	}
	if !f.DepartureBefore.IsZero() && !t.DepartureTime.Before(f.DepartureBefore) {
		return false
	}
	return true
}

type MemoryStore struct {
	mu    sync.RWMutex
	trips map[string]models.Trip
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[string]models.Trip)}
}

// SaveTrip stores t together with its stopovers.
func (m *MemoryStore) SaveTrip(t models.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stops := make([]models.Stopover, len(t.Stopovers))
	copy(stops, t.Stopovers)
	for i := range stops {
		stops[i].TripID = t.ID
	}
	t.Stopovers = stops
	m.trips[t.ID] = t
}

func (m *MemoryStore) ListTrips(_ context.Context, f TripFilter) ([]models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		if !f.matches(t) {
			continue
		}
		t.Stopovers = nil
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	return out, nil
}

func (m *MemoryStore) ListStopovers(_ context.Context, tripIDs []string) ([]models.Stopover, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Stopover
	for _, id := range tripIDs {
		out = append(out, m.trips[id].Stopovers...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StopoverOrder < out[j].StopoverOrder })
	return out, nil
}

func (m *MemoryStore) GetTrip(_ context.Context, id string) (models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return models.Trip{}, ErrTripNotFound
	}
	return t, nil
}
