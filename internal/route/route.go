// Package route turns a trip and its stopovers into ordered pickup and
// dropoff candidates and resolves free-text names against stopovers.
package route

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/trip-search/internal/models"
)

var (
	ErrUnknownStop     = errors.New("stop is not on this trip's route")
	ErrReversedSegment = errors.New("drop-off must come after pickup")
)

// DestinationOrder is the order given to a trip's destination. It is raised
// above the largest stopover order when a trip has more stops than that.
const DestinationOrder = 999

// SortedStopovers returns a copy of stops ordered by StopoverOrder.
func SortedStopovers(stops []models.Stopover) []models.Stopover {
	out := make([]models.Stopover, len(stops))
	copy(out, stops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StopoverOrder < out[j].StopoverOrder })
	return out
}

func destinationOrder(stops []models.Stopover) int {
	order := DestinationOrder
	for _, s := range stops {
		if s.StopoverOrder >= order {
			order = s.StopoverOrder + 1
		}
	}
	return order
}

func stopPoint(s models.Stopover) models.RoutePoint {
	return models.RoutePoint{Name: s.LocationName, Lat: s.Latitude, Lng: s.Longitude, Order: s.StopoverOrder, Role: models.RoleStopover}
}

// PickupPoints is the origin followed by stopovers in route order.
func PickupPoints(t models.Trip) []models.RoutePoint {
	stops := SortedStopovers(t.Stopovers)
	out := make([]models.RoutePoint, 0, len(stops)+1)
	out = append(out, models.RoutePoint{Name: t.DepartureLocation, Lat: t.DepartureLat, Lng: t.DepartureLng, Order: 0, Role: models.RoleOrigin})
	for _, s := range stops {
		out = append(out, stopPoint(s))
	}
	return out
}

// DropoffPoints is stopovers in route order followed by the destination.
func DropoffPoints(t models.Trip) []models.RoutePoint {
	stops := SortedStopovers(t.Stopovers)
	out := make([]models.RoutePoint, 0, len(stops)+1)
	for _, s := range stops {
		out = append(out, stopPoint(s))
	}
	out = append(out, models.RoutePoint{Name: t.ArrivalLocation, Lat: t.ArrivalLat, Lng: t.ArrivalLng, Order: destinationOrder(stops), Role: models.RoleDestination})
	return out
}

// FindStopover returns the first stopover whose name contains name or is
// contained by it, ignoring case. Ambiguous fragments resolve to the first
// stopover in the given order.
func FindStopover(stops []models.Stopover, name string) *models.Stopover {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return nil
	}
	for i := range stops {
		n := strings.ToLower(strings.TrimSpace(stops[i].LocationName))
		if n == "" {
			continue
		}
		if strings.Contains(n, q) || strings.Contains(q, n) {
			return &stops[i]
		}
	}
	return nil
}

// ResolveSegment maps free-text boarding and alighting names onto a trip's
// route. Empty names mean the origin and destination.
func ResolveSegment(t models.Trip, from, to string) (board, alight models.RoutePoint, err error) {
	pickups, dropoffs := PickupPoints(t), DropoffPoints(t)
	stops := SortedStopovers(t.Stopovers)

	board = pickups[0]
	if q := strings.TrimSpace(from); q != "" && !strings.EqualFold(q, strings.TrimSpace(t.DepartureLocation)) {
		s := FindStopover(stops, q)
		if s == nil {
			return board, alight, fmt.Errorf("boarding at %q: %w", from, ErrUnknownStop)
		}
		board = stopPoint(*s)
	}

	alight = dropoffs[len(dropoffs)-1]
	if q := strings.TrimSpace(to); q != "" && !strings.EqualFold(q, strings.TrimSpace(t.ArrivalLocation)) {
		s := FindStopover(stops, q)
		if s == nil {
			return board, alight, fmt.Errorf("alighting at %q: %w", to, ErrUnknownStop)
		}
		alight = stopPoint(*s)
	}

	if alight.Order <= board.Order {
		return board, alight, ErrReversedSegment
	}
	return board, alight, nil
}
