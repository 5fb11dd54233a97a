package domain

import (
	"context"

	"github.com/google/uuid"
)

// TrackingRepository defines the persistence interface for tracking records.
type TrackingRepository interface {
	// Create inserts a new record. Returns ErrAlreadyCheckedIn when a record
	// already exists for the booking (unique constraint on booking_id).
	Create(ctx context.Context, rec *TrackingRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*TrackingRecord, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*TrackingRecord, error)
	// ReplaceCheckIn rewrites the check-in sub-record of an existing row and
	// clears any check-out state ("replace" duplicate policy).
	ReplaceCheckIn(ctx context.Context, rec *TrackingRecord) error
	// Complete persists the check-out sub-record, actual hours and the
	// completed status. The check-in columns are not touched.
	Complete(ctx context.Context, rec *TrackingRecord) error
}

// TrackingEvent is published on tracking.checked_in / tracking.checked_out.
type TrackingEvent struct {
	TrackingID     uuid.UUID      `json:"tracking_id"`
	BookingID      uuid.UUID      `json:"booking_id"`
	ProfessionalID uuid.UUID      `json:"professional_id"`
	Status         TrackingStatus `json:"status"`
	DistanceMeters int            `json:"distance_meters"`
	InRange        bool           `json:"in_range"`
	ActualHours    *float64       `json:"actual_hours,omitempty"`
}

const (
	SubjectCheckedIn  = "tracking.checked_in"
	SubjectCheckedOut = "tracking.checked_out"
)
