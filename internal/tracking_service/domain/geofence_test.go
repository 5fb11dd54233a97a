package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/casafacile/golang_services/internal/core_domain"
)

// latitudeOffset returns the latitude delta (degrees) that moves a point the
// given number of meters due north on the 6371 km sphere. Moving along a
// meridian makes the haversine distance exact, which keeps the boundary
// tests deterministic.
func latitudeOffset(meters float64) float64 {
	return meters / 6371000.0 * 180 / math.Pi
}

func TestEvaluate_SamePoint(t *testing.T) {
	target := core_domain.Coordinates{Latitude: 45.4642, Longitude: 9.19}

	res := Evaluate(target, &target)

	assert.Equal(t, 0, res.DistanceMeters)
	assert.True(t, res.InRange)
}

func TestEvaluate_MissingTarget(t *testing.T) {
	current := core_domain.Coordinates{Latitude: 41.9028, Longitude: 12.4964}

	res := Evaluate(current, nil)

	assert.Equal(t, 0, res.DistanceMeters)
	assert.True(t, res.InRange, "missing reference coordinates must never penalize the professional")
}

func TestEvaluate_Boundary(t *testing.T) {
	target := core_domain.Coordinates{Latitude: 45.4642, Longitude: 9.19}

	testCases := []struct {
		name         string
		meters       float64
		wantDistance int
		wantInRange  bool
	}{
		{"well inside", 120, 120, true},
		{"exactly on the radius", 500, 500, true},
		{"one meter outside", 501, 501, false},
		{"far outside", 2500, 2500, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			current := core_domain.Coordinates{
				Latitude:  target.Latitude + latitudeOffset(tc.meters),
				Longitude: target.Longitude,
			}
			res := Evaluate(current, &target)
			assert.Equal(t, tc.wantDistance, res.DistanceMeters)
			assert.Equal(t, tc.wantInRange, res.InRange)
		})
	}
}

func TestEvaluate_DistanceMonotonicity(t *testing.T) {
	target := core_domain.Coordinates{Latitude: 45.4642, Longitude: 9.19}

	previous := -1
	for _, meters := range []float64{50, 200, 800, 3200, 12800} {
		current := core_domain.Coordinates{
			Latitude:  target.Latitude + latitudeOffset(meters),
			Longitude: target.Longitude,
		}
		res := Evaluate(current, &target)
		assert.Greater(t, res.DistanceMeters, previous, "distance must grow with angular separation")
		previous = res.DistanceMeters
	}
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// Milan Duomo to Rome Colosseum, roughly 478 km.
	d := HaversineMeters(45.4642, 9.19, 41.8902, 12.4922)

	assert.InDelta(t, 478000, d, 5000)
}

func TestComputeActualHours(t *testing.T) {
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		elapsed  time.Duration
		expected float64
	}{
		{"two hours fifteen minutes", 2*time.Hour + 15*time.Minute, 2.25},
		{"one hour", time.Hour, 1.0},
		{"ten minutes rounds to two decimals", 10 * time.Minute, 0.17},
		{"zero", 0, 0.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ComputeActualHours(start, start.Add(tc.elapsed)))
		})
	}
}

func TestTrackingRecord_Lifecycle(t *testing.T) {
	bookingID := uuid.New()
	professionalID := uuid.New()
	checkInAt := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	rec := NewTrackingRecord(bookingID, professionalID, checkInAt, 45.4642, 9.19, GeofenceResult{DistanceMeters: 42, InRange: true})

	require.Equal(t, StatusCheckedIn, rec.Status)
	require.NotNil(t, rec.CheckIn)
	assert.Nil(t, rec.CheckOut)
	assert.Nil(t, rec.ActualHours)

	originalCheckIn := *rec.CheckIn

	checkOutAt := checkInAt.Add(2*time.Hour + 15*time.Minute)
	err := rec.Complete(checkOutAt, 45.4650, 9.1910, GeofenceResult{DistanceMeters: 95, InRange: true})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.CheckOut)
	require.NotNil(t, rec.ActualHours)
	assert.Equal(t, 2.25, *rec.ActualHours)
	assert.Equal(t, originalCheckIn, *rec.CheckIn, "check-out must not touch the check-in sub-record")

	// Status is monotonic; a second completion is refused.
	err = rec.Complete(checkOutAt.Add(time.Hour), 45.4650, 9.1910, GeofenceResult{})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestCheckInNotice(t *testing.T) {
	assert.Contains(t, CheckInNotice(GeofenceResult{DistanceMeters: 80, InRange: true}), "80 m")
	out := CheckInNotice(GeofenceResult{DistanceMeters: 900, InRange: false})
	assert.Contains(t, out, "fuori zona")
	assert.Contains(t, out, "900 m")
}
