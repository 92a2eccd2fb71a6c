package eta

import (
	"time"

	"github.com/example/trip-search/internal/models"
	"github.com/example/trip-search/internal/route"
)

const (
	// AverageSpeedKmh is the assumed road speed when only distance is known.
	AverageSpeedKmh = 55.0
	// MinSegmentMinutes floors every partial segment.
	MinSegmentMinutes = 30.0
)

// DurationInput describes a trip and the segment a rider boards.
// Zero or negative TotalDurationMinutes/TotalDistanceKm mean unknown;
// a zero ArrivalTime means unknown.
type DurationInput struct {
	TotalDurationMinutes float64
	TotalDistanceKm      float64
	Stops                []models.Stopover
	Board                string
	Alight               string
	Origin               string
	Destination          string
	DepartureTime        time.Time
	ArrivalTime          time.Time
}

type SegmentDuration struct {
	DurationMinutes        float64   `json:"duration_minutes"`
	EstimatedDepartureTime time.Time `json:"estimated_departure_time"`
	EstimatedArrivalTime   time.Time `json:"estimated_arrival_time"`
}

// MinutesForDistance converts km to minutes at AverageSpeedKmh.
func MinutesForDistance(km float64) float64 {
	return km / AverageSpeedKmh * 60
}

// EffectiveTotal returns the trip's full duration in minutes, deriving it
// from distance or from the departure/arrival clock when it was not given.
func EffectiveTotal(totalMinutes, totalDistanceKm float64, departure, arrival time.Time) float64 {
	if totalMinutes > 0 {
		return totalMinutes
	}
	switch {
	case totalDistanceKm > 0:
		totalMinutes = MinutesForDistance(totalDistanceKm)
	case !departure.IsZero() && !arrival.IsZero():
		totalMinutes = arrival.Sub(departure).Minutes()
		if totalMinutes < 0 {
			// arrived after midnight
			totalMinutes += 24 * 60
		}
	}
	return totalMinutes
}

// AllocateDuration estimates how long the boarded segment takes and when the
// rider is picked up and dropped off.
func AllocateDuration(in DurationInput) SegmentDuration {
	total := EffectiveTotal(in.TotalDurationMinutes, in.TotalDistanceKm, in.DepartureTime, in.ArrivalTime)

	if in.Board == in.Origin && in.Alight == in.Destination {
		return SegmentDuration{
			DurationMinutes:        total,
			EstimatedDepartureTime: in.DepartureTime,
			EstimatedArrivalTime:   in.DepartureTime.Add(minutes(total)),
		}
	}

	stops := route.SortedStopovers(in.Stops)
	var from, to *models.Stopover
	if in.Board != in.Origin {
		from = route.FindStopover(stops, in.Board)
	}
	if in.Alight != in.Destination {
		to = route.FindStopover(stops, in.Alight)
	}
	positions := float64(len(stops) + 1)

	// distances are only trusted when every stopover end of the segment has one
	fromDist, fromKnown := 0.0, true
	if from != nil {
		fromKnown = from.DistanceFromOriginKm != nil
		if fromKnown {
			fromDist = *from.DistanceFromOriginKm
		}
	}
	toDist, toKnown := in.TotalDistanceKm, in.TotalDistanceKm > 0
	if to != nil {
		toKnown = to.DistanceFromOriginKm != nil
		if toKnown {
			toDist = *to.DistanceFromOriginKm
		}
	}

	var segment float64
	if segDist := toDist - fromDist; fromKnown && toKnown && segDist > 0 {
		segment = MinutesForDistance(segDist)
	} else {
		fromIdx, toIdx := 0.0, positions
		if from != nil {
			fromIdx = float64(from.StopoverOrder)
		}
		if to != nil {
			toIdx = float64(to.StopoverOrder)
		}
		segment = total * (toIdx - fromIdx) / positions
	}
	if segment < MinSegmentMinutes {
		segment = MinSegmentMinutes
	}

	boarding := in.DepartureTime
	if from != nil {
		switch {
		case from.EstimatedArrivalTime != nil:
			boarding = *from.EstimatedArrivalTime
		case from.DistanceFromOriginKm != nil && in.TotalDistanceKm > 0:
			boarding = in.DepartureTime.Add(minutes(total * *from.DistanceFromOriginKm / in.TotalDistanceKm))
		default:
			boarding = in.DepartureTime.Add(minutes(total * float64(from.StopoverOrder) / positions))
		}
	}

	return SegmentDuration{
		DurationMinutes:        segment,
		EstimatedDepartureTime: boarding,
		EstimatedArrivalTime:   boarding.Add(minutes(segment)),
	}
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
