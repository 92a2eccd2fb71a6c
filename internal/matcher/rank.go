package matcher

import (
	"sort"
	"strings"

	"github.com/example/trip-search/internal/eta"
	"github.com/example/trip-search/internal/geo"
	"github.com/example/trip-search/internal/models"
	"github.com/example/trip-search/internal/pricing"
	"github.com/example/trip-search/internal/route"
)

const (
	// ExtendedRadiusKm bounds how far a route point may be from the
	// requested coordinate and still be considered.
	ExtendedRadiusKm = 100.0
	// ReferenceRadiusKm is the distance at which a point loses PenaltyPerRadius.
	ReferenceRadiusKm = 50.0
	PenaltyPerRadius  = 20.0
	BaseScore         = 100.0
	FullRouteBonus    = 10.0

	TextMatchScore = 75.0
	// below this a geo match can be replaced by a text match
	ConfidentGeoScore = 70.0
	MinMatchScore     = 30.0
)

type candidate struct {
	score     float64
	matchType models.MatchType
	pickup    models.RoutePoint
	dropoff   models.RoutePoint
	pickupKm  float64
	dropoffKm float64
}

// MatchTrips scores every trip against the criteria, drops trips that score
// below MinMatchScore, prices and times the matched segment of the rest, and
// returns them best first. Seat and date filtering happen before this call.
func MatchTrips(trips []models.Trip, c models.SearchCriteria) []models.TripResult {
	out := make([]models.TripResult, 0, len(trips))
	for _, t := range trips {
		best, ok := bestMatch(t, c)
		if !ok || best.score < MinMatchScore {
			continue
		}
		out = append(out, models.TripResult{Trip: t, Match: enrich(t, best)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Match.Score != out[j].Match.Score {
			return out[i].Match.Score > out[j].Match.Score
		}
		return out[i].Trip.DepartureTime.Before(out[j].Trip.DepartureTime)
	})
	return out
}

func bestMatch(t models.Trip, c models.SearchCriteria) (candidate, bool) {
	pickups := route.PickupPoints(t)
	dropoffs := route.DropoffPoints(t)

	var best candidate
	found := false
	if c.FromCoords != nil && c.ToCoords != nil {
		best, found = geoMatch(pickups, dropoffs, *c.FromCoords, *c.ToCoords)
	}
	if !found || best.score < ConfidentGeoScore {
		if tm, ok := textMatch(pickups, dropoffs, c.From, c.To); ok {
			best, found = tm, true
		}
	}
	return best, found
}

func geoMatch(pickups, dropoffs []models.RoutePoint, from, to models.Coord) (candidate, bool) {
	var best candidate
	found := false
	for _, p := range pickups {
		if !p.HasCoords() {
			continue
		}
		pickupKm := geo.DistanceKm(from.Lat, from.Lon, *p.Lat, *p.Lng)
		if pickupKm > ExtendedRadiusKm {
			continue
		}
		for _, d := range dropoffs {
			if d.Order <= p.Order || !d.HasCoords() {
				continue
			}
			dropoffKm := geo.DistanceKm(to.Lat, to.Lon, *d.Lat, *d.Lng)
			if dropoffKm > ExtendedRadiusKm {
				continue
			}
			score := BaseScore - pickupKm/ReferenceRadiusKm*PenaltyPerRadius - dropoffKm/ReferenceRadiusKm*PenaltyPerRadius
			if p.Role == models.RoleOrigin && d.Role == models.RoleDestination {
				score += FullRouteBonus
			}
			if !found || score > best.score {
				best = candidate{
					score:     score,
					matchType: classify(p, d),
					pickup:    p,
					dropoff:   d,
					pickupKm:  pickupKm,
					dropoffKm: dropoffKm,
				}
				found = true
			}
		}
	}
	return best, found
}

// textMatch prefers the trip's own endpoints and only then stopovers. An
// empty term pins that side to the origin or destination.
func textMatch(pickups, dropoffs []models.RoutePoint, from, to string) (candidate, bool) {
	origin := pickups[0]
	destination := dropoffs[len(dropoffs)-1]

	froms := []models.RoutePoint{origin}
	if strings.TrimSpace(from) != "" {
		froms = nil
		for _, p := range pickups {
			if MatchesText(p.Name, from) {
				froms = append(froms, p)
			}
		}
	}
	tos := []models.RoutePoint{destination}
	if strings.TrimSpace(to) != "" {
		tos = nil
		if MatchesText(destination.Name, to) {
			tos = append(tos, destination)
		}
		for _, d := range dropoffs[:len(dropoffs)-1] {
			if MatchesText(d.Name, to) {
				tos = append(tos, d)
			}
		}
	}

	for _, p := range froms {
		for _, d := range tos {
			if d.Order > p.Order {
				return candidate{score: TextMatchScore, matchType: models.MatchText, pickup: p, dropoff: d}, true
			}
		}
	}
	return candidate{}, false
}

func classify(p, d models.RoutePoint) models.MatchType {
	switch {
	case p.Role == models.RoleOrigin && d.Role == models.RoleDestination:
		return models.MatchOriginDestination
	case p.Role == models.RoleOrigin:
		return models.MatchOriginStopover
	case d.Role == models.RoleDestination:
		return models.MatchStopoverDestination
	default:
		return models.MatchStopoverStopover
	}
}

func enrich(t models.Trip, c candidate) models.MatchResult {
	totalKm := deref(t.DistanceKm)
	fare := pricing.AllocateFare(t.PricePerSeat, totalKm, t.Stopovers, c.pickup.Name, c.dropoff.Name, t.DepartureLocation, t.ArrivalLocation)

	in := eta.DurationInput{
		TotalDurationMinutes: deref(t.DurationMinutes),
		TotalDistanceKm:      totalKm,
		Stops:                t.Stopovers,
		Board:                c.pickup.Name,
		Alight:               c.dropoff.Name,
		Origin:               t.DepartureLocation,
		Destination:          t.ArrivalLocation,
		DepartureTime:        t.DepartureTime,
	}
	if t.ArrivalTime != nil {
		in.ArrivalTime = *t.ArrivalTime
	}
	dur := eta.AllocateDuration(in)

	return models.MatchResult{
		Score:                  c.score,
		MatchType:              c.matchType,
		PickupDistanceKm:       c.pickupKm,
		DropoffDistanceKm:      c.dropoffKm,
		MatchedFrom:            c.pickup.Name,
		MatchedTo:              c.dropoff.Name,
		PickupOrder:            c.pickup.Order,
		DropoffOrder:           c.dropoff.Order,
		SegmentPrice:           fare.Price,
		PriceCalculationMethod: fare.Method,
		SegmentDurationMinutes: dur.DurationMinutes,
		EstimatedDepartureTime: dur.EstimatedDepartureTime,
		EstimatedArrivalTime:   dur.EstimatedArrivalTime,
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
