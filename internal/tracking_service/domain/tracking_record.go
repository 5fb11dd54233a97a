package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// TrackingStatus is monotonic: a record is created checked_in and transitions
// exactly once to completed. There is no revert.
type TrackingStatus string

const (
	StatusCheckedIn TrackingStatus = "checked_in"
	StatusCompleted TrackingStatus = "completed"
)

// Checkpoint captures one geofenced fix: where the professional was and how
// far from the booking address at check-in or check-out time.
type Checkpoint struct {
	At             time.Time `json:"at"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters int       `json:"distance_meters"`
	InRange        bool      `json:"in_range"`
}

// TrackingRecord is the per-booking time-tracking entity. One record per
// booking; the assigned professional is the sole writer. BookingID and
// ProfessionalID are immutable after creation; CheckIn is written once at
// creation and never touched again.
type TrackingRecord struct {
	ID             uuid.UUID      `json:"id"`
	BookingID      uuid.UUID      `json:"booking_id"`
	ProfessionalID uuid.UUID      `json:"professional_id"`
	CheckIn        *Checkpoint    `json:"check_in,omitempty"`
	CheckOut       *Checkpoint    `json:"check_out,omitempty"`
	ActualHours    *float64       `json:"actual_hours,omitempty"`
	Status         TrackingStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewTrackingRecord creates a checked-in record from a geofenced fix.
func NewTrackingRecord(bookingID, professionalID uuid.UUID, at time.Time, latitude, longitude float64, res GeofenceResult) *TrackingRecord {
	return &TrackingRecord{
		ID:             uuid.New(),
		BookingID:      bookingID,
		ProfessionalID: professionalID,
		CheckIn: &Checkpoint{
			At:             at,
			Latitude:       latitude,
			Longitude:      longitude,
			DistanceMeters: res.DistanceMeters,
			InRange:        res.InRange,
		},
		Status:    StatusCheckedIn,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Complete transitions the record to completed with the check-out fix and the
// worked duration. Returns ErrAlreadyCompleted if called twice.
func (r *TrackingRecord) Complete(at time.Time, latitude, longitude float64, res GeofenceResult) error {
	if r.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	if r.CheckIn == nil {
		return ErrNotCheckedIn
	}

	hours := ComputeActualHours(r.CheckIn.At, at)
	r.CheckOut = &Checkpoint{
		At:             at,
		Latitude:       latitude,
		Longitude:      longitude,
		DistanceMeters: res.DistanceMeters,
		InRange:        res.InRange,
	}
	r.ActualHours = &hours
	r.Status = StatusCompleted
	r.UpdatedAt = at
	return nil
}

// ComputeActualHours returns the elapsed duration between check-in and
// check-out in hours, rounded to 2 decimal places.
func ComputeActualHours(checkInAt, checkOutAt time.Time) float64 {
	hours := checkOutAt.Sub(checkInAt).Hours()
	return math.Round(hours*100) / 100
}
