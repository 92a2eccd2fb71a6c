// Package cache keeps recent search results so repeated identical searches
// skip the store round trip.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"github.com/example/trip-search/internal/models"
)

// SearchCache is consulted by the search service before hitting the store.
type SearchCache interface {
	Get(ctx context.Context, key string) ([]models.TripResult, bool)
	Set(ctx context.Context, key string, results []models.TripResult)
}

// Key normalizes criteria so equivalent searches share an entry. The
// departure cutoff is not part of the key; readers drop departed trips.
func Key(c models.SearchCriteria) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(c.From)))
	b.WriteString("|")
	b.WriteString(strings.ToLower(strings.TrimSpace(c.To)))
	b.WriteString("|")
	b.WriteString(strings.TrimSpace(c.Date))
	seats := c.MinSeats
	if seats < 1 {
		seats = 1
	}
	fmt.Fprintf(&b, "|%d|%s|%s", seats, fmtCoord(c.FromCoords), fmtCoord(c.ToCoords))
	return b.String()
}

func fmtCoord(c *models.Coord) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	c gcache.Cache
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{c: gcache.New(size).LRU().Expiration(ttl).Build()}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]models.TripResult, bool) {
	v, err := m.c.Get(key)
	if err != nil {
		return nil, false
	}
	res, ok := v.([]models.TripResult)
	return res, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, results []models.TripResult) {
	_ = m.c.Set(key, results)
}
