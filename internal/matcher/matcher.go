package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/trip-search/internal/cache"
	"github.com/example/trip-search/internal/models"
	"github.com/example/trip-search/internal/observability"
	"github.com/example/trip-search/internal/storage"
)

// ErrInvalidCriteria marks searches rejected before reaching the store.
var ErrInvalidCriteria = errors.New("invalid search criteria")

const dateLayout = "2006-01-02"

type EventPublisher interface {
	PublishSearch(ctx context.Context, ev models.SearchEvent) error
}

// Service runs a search end to end: store filters, stopover join, matching.
// Cache and Events are optional.
type Service struct {
	Store    storage.TripStore
	Cache    cache.SearchCache
	Events   EventPublisher
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time
}

func (s *Service) Search(ctx context.Context, c models.SearchCriteria) ([]models.TripResult, error) {
	start := time.Now()
	defer func() { observability.SearchLatency.Observe(time.Since(start).Seconds()) }()

	filter, err := s.filterFor(c)
	if err != nil {
		observability.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	key := cache.Key(c)
	if s.Cache != nil {
		if res, ok := s.Cache.Get(ctx, key); ok {
			observability.CacheHits.Inc()
			observability.SearchesTotal.WithLabelValues("cached").Inc()
			return departedAfter(res, filter.DepartureAfter), nil
		}
		observability.CacheMisses.Inc()
	}

	trips, err := s.Store.ListTrips(ctx, filter)
	if err != nil {
		observability.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list trips: %w", err)
	}
	ids := make([]string, 0, len(trips))
	for _, t := range trips {
		ids = append(ids, t.ID)
	}
	stops, err := s.Store.ListStopovers(ctx, ids)
	if err != nil {
		observability.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("list stopovers: %w", err)
	}
	storage.AttachStopovers(trips, stops)

	results := MatchTrips(trips, c)
	observability.SearchesTotal.WithLabelValues("ok").Inc()
	observability.TripsMatched.Observe(float64(len(results)))
	s.logger().Debug("search matched", "from", c.From, "to", c.To, "candidates", len(trips), "matched", len(results))

	if s.Cache != nil {
		s.Cache.Set(ctx, key, results)
	}
	s.publish(ctx, c, results)
	return results, nil
}

// departedAfter drops trips that left while their results sat in the cache.
func departedAfter(results []models.TripResult, cutoff time.Time) []models.TripResult {
	out := make([]models.TripResult, 0, len(results))
	for _, r := range results {
		if !r.Trip.DepartureTime.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) filterFor(c models.SearchCriteria) (storage.TripFilter, error) {
	if c.MinSeats < 0 {
		return storage.TripFilter{}, fmt.Errorf("%w: min_seats must be >= 0", ErrInvalidCriteria)
	}
	f := storage.TripFilter{MinSeats: c.MinSeats, DepartureAfter: s.now()}
	if f.MinSeats == 0 {
		f.MinSeats = 1
	}
	if c.Date == "" {
		return f, nil
	}
	day, err := time.ParseInLocation(dateLayout, c.Date, s.location())
	if err != nil {
		return storage.TripFilter{}, fmt.Errorf("%w: date %q: %v", ErrInvalidCriteria, c.Date, err)
	}
	if day.After(f.DepartureAfter) {
		f.DepartureAfter = day
	}
	f.DepartureBefore = day.AddDate(0, 0, 1)
	return f, nil
}

// publish is best effort; a broker outage must not fail searches.
func (s *Service) publish(ctx context.Context, c models.SearchCriteria, results []models.TripResult) {
	if s.Events == nil {
		return
	}
	ev := models.SearchEvent{
		SearchID:    uuid.NewString(),
		From:        c.From,
		To:          c.To,
		ResultCount: len(results),
		At:          s.now(),
	}
	if len(results) > 0 {
		ev.TopTripID = results[0].Trip.ID
	}
	if err := s.Events.PublishSearch(ctx, ev); err != nil {
		observability.EventErrors.Inc()
		s.logger().Warn("publish search event failed", "search_id", ev.SearchID, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
