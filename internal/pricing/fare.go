package pricing

import (
	"math"

	"github.com/example/trip-search/internal/models"
	"github.com/example/trip-search/internal/route"
)

// distance assumed to the alighting stopover when it has none recorded
const defaultAlightShare = 0.75

type FareQuote struct {
	Price  float64            `json:"price"`
	Method models.PriceMethod `json:"method"`
}

// AllocateFare prices the segment between board and alight on a trip whose
// full route costs fullPrice. totalDistanceKm <= 0 means unknown.
// Ratio-based prices are rounded to whole currency units; full-route and
// default prices pass through unchanged.
func AllocateFare(fullPrice, totalDistanceKm float64, stops []models.Stopover, board, alight, origin, destination string) FareQuote {
	if board == origin && alight == destination {
		return FareQuote{Price: fullPrice, Method: models.PriceFullRoute}
	}

	stops = route.SortedStopovers(stops)
	var from, to *models.Stopover
	if board != origin {
		from = route.FindStopover(stops, board)
	}
	if alight != destination {
		to = route.FindStopover(stops, alight)
	}
	// positions run origin=0 .. destination=len(stops)+1
	positions := float64(len(stops) + 2)

	switch {
	case from != nil && alight == destination:
		if from.PriceFromOrigin != nil {
			return quote(fullPrice-*from.PriceFromOrigin, models.PriceStopoverPrice)
		}
		if from.DistanceFromOriginKm != nil && totalDistanceKm > 0 {
			return quote(math.Round(fullPrice*(totalDistanceKm-*from.DistanceFromOriginKm)/totalDistanceKm), models.PriceDistanceRatio)
		}
		remaining := positions - float64(from.StopoverOrder)
		return quote(math.Round(fullPrice*remaining/positions), models.PriceOrderRatio)

	case board == origin && to != nil:
		if to.PriceFromOrigin != nil {
			return quote(*to.PriceFromOrigin, models.PriceStopoverPrice)
		}
		if to.DistanceFromOriginKm != nil && totalDistanceKm > 0 {
			return quote(math.Round(fullPrice*(*to.DistanceFromOriginKm)/totalDistanceKm), models.PriceDistanceRatio)
		}
		return quote(math.Round(fullPrice*float64(to.StopoverOrder)/positions), models.PriceOrderRatio)

	case from != nil && to != nil:
		if from.PriceFromOrigin != nil && to.PriceFromOrigin != nil {
			return quote(*to.PriceFromOrigin-*from.PriceFromOrigin, models.PriceStopoverPrice)
		}
		if totalDistanceKm > 0 {
			fromDist := 0.0
			if from.DistanceFromOriginKm != nil {
				fromDist = *from.DistanceFromOriginKm
			}
			toDist := defaultAlightShare * totalDistanceKm
			if to.DistanceFromOriginKm != nil {
				toDist = *to.DistanceFromOriginKm
			}
			return quote(math.Round(fullPrice*(toDist-fromDist)/totalDistanceKm), models.PriceDistanceRatio)
		}
		return quote(math.Round(fullPrice*float64(to.StopoverOrder-from.StopoverOrder)/positions), models.PriceOrderRatio)
	}

	return quote(fullPrice, models.PriceDefault)
}

func quote(price float64, method models.PriceMethod) FareQuote {
	if price < 0 {
		price = 0
	}
	return FareQuote{Price: price, Method: method}
}

// MinorUnits converts a major-unit amount to the payment provider's smallest unit.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
