package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Stopover is an intermediate named point on a trip's route.
// Optional fields are nil when the publisher did not record them.
type Stopover struct {
	ID                   string     `json:"id"`
	TripID               string     `json:"trip_id"`
	LocationName         string     `json:"location_name"`
	Latitude             *float64   `json:"latitude,omitempty"`
	Longitude            *float64   `json:"longitude,omitempty"`
	StopoverOrder        int        `json:"stopover_order"`
	PriceFromOrigin      *float64   `json:"price_from_origin,omitempty"`
	EstimatedArrivalTime *time.Time `json:"estimated_arrival_time,omitempty"`
	DistanceFromOriginKm *float64   `json:"distance_from_origin_km,omitempty"`
}

type Trip struct {
	ID                string     `json:"id"`
	DriverID          string     `json:"driver_id,omitempty"`
	VehicleID         string     `json:"vehicle_id,omitempty"`
	Status            string     `json:"status"` // active, scheduled, completed, canceled
	DepartureTime     time.Time  `json:"departure_time"`
	ArrivalTime       *time.Time `json:"arrival_time,omitempty"`
	PricePerSeat      float64    `json:"price_per_seat"`
	AvailableSeats    int        `json:"available_seats"`
	DistanceKm        *float64   `json:"distance_km,omitempty"`
	DurationMinutes   *float64   `json:"duration_minutes,omitempty"`
	DepartureLocation string     `json:"departure_location"`
	ArrivalLocation   string     `json:"arrival_location"`
	DepartureLat      *float64   `json:"departure_lat,omitempty"`
	DepartureLng      *float64   `json:"departure_lng,omitempty"`
	ArrivalLat        *float64   `json:"arrival_lat,omitempty"`
	ArrivalLng        *float64   `json:"arrival_lng,omitempty"`
	Stopovers         []Stopover `json:"stopovers"`
}

const (
	TripStatusActive    = "active"
	TripStatusScheduled = "scheduled"
)

// SearchCriteria is what a rider asks for. Empty strings and nil coordinates
// mean "no constraint".
type SearchCriteria struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Date       string `json:"date,omitempty"` // YYYY-MM-DD
	MinSeats   int    `json:"min_seats,omitempty"`
	FromCoords *Coord `json:"from_coords,omitempty"`
	ToCoords   *Coord `json:"to_coords,omitempty"`
}

type PointRole string

const (
	RoleOrigin      PointRole = "origin"
	RoleStopover    PointRole = "stopover"
	RoleDestination PointRole = "destination"
)

// RoutePoint is a pickup or dropoff candidate along a trip.
type RoutePoint struct {
	Name  string
	Lat   *float64
	Lng   *float64
	Order int
	Role  PointRole
}

func (p RoutePoint) HasCoords() bool { return p.Lat != nil && p.Lng != nil }

type MatchType string

const (
	MatchOriginDestination   MatchType = "origin-destination"
	MatchOriginStopover      MatchType = "origin-stopover"
	MatchStopoverDestination MatchType = "stopover-destination"
	MatchStopoverStopover    MatchType = "stopover-stopover"
	MatchText                MatchType = "text-match"
)

type PriceMethod string

const (
	PriceFullRoute     PriceMethod = "full-route"
	PriceStopoverPrice PriceMethod = "stopover-price"
	PriceDistanceRatio PriceMethod = "distance-ratio"
	PriceOrderRatio    PriceMethod = "order-ratio"
	PriceDefault       PriceMethod = "default"
)

// MatchResult annotates one trip for one search.
type MatchResult struct {
	Score                  float64     `json:"match_score"`
	MatchType              MatchType   `json:"match_type"`
	PickupDistanceKm       float64     `json:"pickup_distance_km"`
	DropoffDistanceKm      float64     `json:"dropoff_distance_km"`
	MatchedFrom            string      `json:"matched_from"`
	MatchedTo              string      `json:"matched_to"`
	PickupOrder            int         `json:"pickup_order"`
	DropoffOrder           int         `json:"dropoff_order"`
	SegmentPrice           float64     `json:"segment_price"`
	PriceCalculationMethod PriceMethod `json:"price_calculation_method"`
	SegmentDurationMinutes float64     `json:"segment_duration_minutes"`
	EstimatedDepartureTime time.Time   `json:"estimated_departure_time"`
	EstimatedArrivalTime   time.Time   `json:"estimated_arrival_time"`
}

type TripResult struct {
	Trip  Trip        `json:"trip"`
	Match MatchResult `json:"match"`
}

// SearchEvent is published after every search for route analytics.
type SearchEvent struct {
	SearchID    string    `json:"search_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	ResultCount int       `json:"result_count"`
	TopTripID   string    `json:"top_trip_id,omitempty"`
	At          time.Time `json:"at"`
}

// FareHold is the outcome of reserving a segment fare with the payment provider.
type FareHold struct {
	TripID          string      `json:"trip_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	AmountMinor     int64       `json:"amount_minor"`
	Currency        string      `json:"currency"`
	Method          PriceMethod `json:"price_calculation_method"`
}
