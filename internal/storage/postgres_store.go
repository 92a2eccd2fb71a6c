package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/trip-search/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	// quick ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// DB exposes the pool for migrations.
func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Close() error { return p.db.Close() }

const tripColumns = `id, COALESCE(driver_id, ''), COALESCE(vehicle_id, ''), status, departure_time, arrival_time,
	price_per_seat, available_seats, distance_km, duration_minutes,
	departure_location, arrival_location, departure_lat, departure_lng, arrival_lat, arrival_lng`

func (p *PostgresStore) ListTrips(ctx context.Context, f TripFilter) ([]models.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips
WHERE status = ANY($1) AND available_seats >= $2 AND departure_time >= $3
  AND ($4::timestamptz IS NULL OR departure_time < $4)
ORDER BY departure_time`
	var before any
	if !f.DepartureBefore.IsZero() {
		before = f.DepartureBefore
	}
	rows, err := p.db.QueryContext(ctx, q,
		pq.Array([]string{models.TripStatusActive, models.TripStatusScheduled}),
		f.MinSeats, f.DepartureAfter, before)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (p *PostgresStore) ListStopovers(ctx context.Context, tripIDs []string) ([]models.Stopover, error) {
	if len(tripIDs) == 0 {
		return nil, nil
	}
	q := `SELECT id, trip_id, location_name, latitude, longitude, stopover_order,
	price_from_origin, estimated_arrival_time, distance_from_origin_km
FROM trip_stopovers WHERE trip_id = ANY($1) ORDER BY stopover_order`
	rows, err := p.db.QueryContext(ctx, q, pq.Array(tripIDs))
	if err != nil {
		return nil, fmt.Errorf("query stopovers: %w", err)
	}
	defer rows.Close()

	var out []models.Stopover
	for rows.Next() {
		var (
			s                         models.Stopover
			lat, lng, price, distance sql.NullFloat64
			eta                       sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.TripID, &s.LocationName, &lat, &lng, &s.StopoverOrder, &price, &eta, &distance); err != nil {
			return nil, err
		}
		s.Latitude = nullFloat(lat)
		s.Longitude = nullFloat(lng)
		s.PriceFromOrigin = nullFloat(price)
		s.DistanceFromOriginKm = nullFloat(distance)
		if eta.Valid {
			at := eta.Time
			s.EstimatedArrivalTime = &at
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) GetTrip(ctx context.Context, id string) (models.Trip, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Trip{}, ErrTripNotFound
	}
	if err != nil {
		return models.Trip{}, fmt.Errorf("query trip %s: %w", id, err)
	}
	stops, err := p.ListStopovers(ctx, []string{id})
	if err != nil {
		return models.Trip{}, err
	}
	t.Stopovers = stops
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner) (models.Trip, error) {
	var (
		t                              models.Trip
		arrival                        sql.NullTime
		distance, duration             sql.NullFloat64
		depLat, depLng, arrLat, arrLng sql.NullFloat64
	)
	err := s.Scan(&t.ID, &t.DriverID, &t.VehicleID, &t.Status, &t.DepartureTime, &arrival,
		&t.PricePerSeat, &t.AvailableSeats, &distance, &duration,
		&t.DepartureLocation, &t.ArrivalLocation, &depLat, &depLng, &arrLat, &arrLng)
	if err != nil {
		return models.Trip{}, err
	}
	if arrival.Valid {
		at := arrival.Time
		t.ArrivalTime = &at
	}
	t.DistanceKm = nullFloat(distance)
	t.DurationMinutes = nullFloat(duration)
	t.DepartureLat = nullFloat(depLat)
	t.DepartureLng = nullFloat(depLng)
	t.ArrivalLat = nullFloat(arrLat)
	t.ArrivalLng = nullFloat(arrLng)
	return t, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
