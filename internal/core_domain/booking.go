// Package core_domain holds models shared across services.
package core_domain

import (
	"context"

	"github.com/google/uuid"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BookingLocation is the slice of a booking this backend reads and writes:
// the declared service address and its geocoded coordinates. The rest of the
// booking record (service, price, schedule) is owned by the booking platform.
type BookingLocation struct {
	BookingID      uuid.UUID    `json:"booking_id"`
	ProfessionalID uuid.UUID    `json:"professional_id"`
	Address        string       `json:"address"`
	// Coordinates is nil until the address has been geocoded. A nil target is
	// a valid state: geofence evaluation short-circuits to in-range.
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// BookingLocationRepository reads booking addresses and backfills coordinates.
type BookingLocationRepository interface {
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*BookingLocation, error)
	// ListMissingCoordinates returns bookings with a non-empty address and no
	// stored coordinates, oldest first.
	ListMissingCoordinates(ctx context.Context, limit int) ([]*BookingLocation, error)
	UpdateCoordinates(ctx context.Context, bookingID uuid.UUID, coords Coordinates) error
}
