package domain

import (
	"fmt"
	"math"

	"github.com/casafacile/golang_services/internal/core_domain"
)

// MaxRangeMeters is the service radius around the booking address within
// which a check-in/check-out counts as on-site.
const MaxRangeMeters = 500

// Spherical-earth approximation radius, in meters.
const earthRadiusMeters = 6371000.0

// GeofenceResult is the outcome of one proximity evaluation.
type GeofenceResult struct {
	DistanceMeters int  `json:"distance_meters"`
	InRange        bool `json:"in_range"`
}

// HaversineMeters returns the great-circle distance in meters between two
// latitude/longitude pairs.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Evaluate computes the distance between the current position and the
// booking's target coordinates and whether it falls inside the service
// radius. A nil target means the booking has no geocoded address; the policy
// is to short-circuit to in-range rather than penalize the professional for
// missing reference data.
func Evaluate(current core_domain.Coordinates, target *core_domain.Coordinates) GeofenceResult {
	if target == nil {
		return GeofenceResult{DistanceMeters: 0, InRange: true}
	}

	distance := HaversineMeters(current.Latitude, current.Longitude, target.Latitude, target.Longitude)
	meters := int(math.Round(distance))
	return GeofenceResult{
		DistanceMeters: meters,
		InRange:        meters <= MaxRangeMeters,
	}
}

// CheckInNotice is the user-facing outcome line. Out of range is a warning,
// never a failure: the record is written either way.
func CheckInNotice(res GeofenceResult) string {
	if res.InRange {
		return fmt.Sprintf("Check-in registrato: sei a %d m dall'indirizzo del servizio.", res.DistanceMeters)
	}
	return fmt.Sprintf("Check-in registrato fuori zona: sei a %d m dall'indirizzo del servizio (massimo %d m).", res.DistanceMeters, MaxRangeMeters)
}

// CheckOutNotice is the user-facing outcome line for a completed visit.
func CheckOutNotice(res GeofenceResult, actualHours float64) string {
	if res.InRange {
		return fmt.Sprintf("Check-out registrato: durata %.2f ore.", actualHours)
	}
	return fmt.Sprintf("Check-out registrato fuori zona (%d m dall'indirizzo): durata %.2f ore.", res.DistanceMeters, actualHours)
}
