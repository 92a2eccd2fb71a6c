package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKmZero(t *testing.T) {
	assert.Equal(t, 0.0, DistanceKm(0, 0, 0, 0))
	assert.Equal(t, 0.0, DistanceKm(19.076, 72.877, 19.076, 72.877))
}

func TestDistanceKmSymmetric(t *testing.T) {
	pairs := [][4]float64{
		{19.076, 72.877, 18.520, 73.856},
		{40.7589, -73.9851, 51.5074, -0.1278},
		{-33.8688, 151.2093, 35.6762, 139.6503},
	}
	for _, p := range pairs {
		assert.InDelta(t, DistanceKm(p[0], p[1], p[2], p[3]), DistanceKm(p[2], p[3], p[0], p[1]), 1e-9)
	}
}

func TestDistanceKmMumbaiPune(t *testing.T) {
	// straight-line distance is ~120 km
	d := DistanceKm(19.076, 72.877, 18.520, 73.856)
	assert.InDelta(t, 120, d, 5)
}
