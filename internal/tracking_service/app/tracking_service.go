package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/casafacile/golang_services/internal/core_domain"
	"github.com/casafacile/golang_services/internal/tracking_service/domain"
)

// DuplicatePolicy decides what a second check-in on the same booking does.
type DuplicatePolicy string

const (
	// DuplicateReject refuses the second check-in (default).
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateReplace rewrites the check-in of the existing record and
	// clears any check-out state.
	DuplicateReplace DuplicatePolicy = "replace"
)

// ParseDuplicatePolicy maps the config value, falling back to reject.
func ParseDuplicatePolicy(raw string) DuplicatePolicy {
	if DuplicatePolicy(raw) == DuplicateReplace {
		return DuplicateReplace
	}
	return DuplicateReject
}

// EventPublisher is the slice of the message broker this service needs.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Geocoder resolves an address to coordinates. Optional: when nil, bookings
// without stored coordinates are evaluated with a nil target (in-range).
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*core_domain.Coordinates, error)
}

// CheckInResult is returned to the UI for immediate feedback. Both in-range
// and out-of-range are successful check-ins; Notice carries the warning.
type CheckInResult struct {
	Record         *domain.TrackingRecord
	DistanceMeters int
	InRange        bool
	Notice         string
}

// CheckOutResult is returned to the UI after a completed visit.
type CheckOutResult struct {
	Record         *domain.TrackingRecord
	DistanceMeters int
	InRange        bool
	ActualHours    float64
	Notice         string
}

// TrackingService orchestrates geofenced check-in/check-out: acquire device
// position, evaluate against the booking address, persist, publish the event.
type TrackingService struct {
	trackingRepo    domain.TrackingRepository
	bookingRepo     core_domain.BookingLocationRepository
	geocoder        Geocoder
	publisher       EventPublisher
	duplicatePolicy DuplicatePolicy
	positionOpts    domain.PositionOptions
	logger          *slog.Logger
	now             func() time.Time
}

func NewTrackingService(
	trackingRepo domain.TrackingRepository,
	bookingRepo core_domain.BookingLocationRepository,
	geocoder Geocoder,
	publisher EventPublisher,
	duplicatePolicy DuplicatePolicy,
	logger *slog.Logger,
) *TrackingService {
	return &TrackingService{
		trackingRepo:    trackingRepo,
		bookingRepo:     bookingRepo,
		geocoder:        geocoder,
		publisher:       publisher,
		duplicatePolicy: duplicatePolicy,
		positionOpts:    domain.DefaultPositionOptions(),
		logger:          logger.With("component", "tracking_service"),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// acquirePosition bounds the wait with the options' timeout and records the
// failure kind. Any failure aborts the operation before anything is written.
func (s *TrackingService) acquirePosition(ctx context.Context, source domain.PositionSource) (domain.Position, error) {
	posCtx, cancel := context.WithTimeout(ctx, s.positionOpts.Timeout)
	defer cancel()

	pos, err := source.GetCurrentPosition(posCtx, s.positionOpts)
	if err != nil {
		kind := "unavailable"
		if errors.Is(err, domain.ErrPositionPermissionDenied) {
			kind = "permission_denied"
		}
		positionFailuresCounter.WithLabelValues(kind).Inc()
		return domain.Position{}, err
	}
	return pos, nil
}

// resolveTarget returns the booking's coordinates, geocoding the address on
// the fly when they are missing. Geocoding is best effort: on failure the
// target stays nil and the geofence short-circuits to in-range.
func (s *TrackingService) resolveTarget(ctx context.Context, booking *core_domain.BookingLocation) *core_domain.Coordinates {
	if booking.Coordinates != nil {
		return booking.Coordinates
	}
	if s.geocoder == nil || booking.Address == "" {
		return nil
	}

	coords, err := s.geocoder.Geocode(ctx, booking.Address)
	if err != nil || coords == nil {
		s.logger.WarnContext(ctx, "Geocoding failed; evaluating without target",
			"error", err, "booking_id", booking.BookingID)
		return nil
	}
	if err := s.bookingRepo.UpdateCoordinates(ctx, booking.BookingID, *coords); err != nil {
		s.logger.WarnContext(ctx, "Failed to backfill booking coordinates", "error", err, "booking_id", booking.BookingID)
	}
	return coords
}

// CheckIn records the start of a visit. Out-of-range is a success with a
// warning notice, never a failure.
func (s *TrackingService) CheckIn(ctx context.Context, bookingID, professionalID uuid.UUID, source domain.PositionSource) (*CheckInResult, error) {
	pos, err := s.acquirePosition(ctx, source)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProfessionalID != professionalID {
		s.logger.WarnContext(ctx, "Check-in by unassigned professional",
			"booking_id", bookingID, "professional_id", professionalID)
		return nil, domain.ErrNotAssigned
	}

	target := s.resolveTarget(ctx, booking)
	res := domain.Evaluate(pos.Coordinates, target)

	rec := domain.NewTrackingRecord(bookingID, professionalID, s.now(), pos.Coordinates.Latitude, pos.Coordinates.Longitude, res)

	if err := s.trackingRepo.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyCheckedIn) && s.duplicatePolicy == DuplicateReplace {
			existing, getErr := s.trackingRepo.GetByBookingID(ctx, bookingID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load existing tracking record: %w", getErr)
			}
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
			if err := s.trackingRepo.ReplaceCheckIn(ctx, rec); err != nil {
				return nil, fmt.Errorf("failed to replace check-in: %w", err)
			}
		} else {
			return nil, err
		}
	}

	checkInsCounter.WithLabelValues(fmt.Sprintf("%t", res.InRange)).Inc()
	s.logger.InfoContext(ctx, "Check-in recorded",
		"tracking_id", rec.ID, "booking_id", bookingID,
		"distance_m", res.DistanceMeters, "in_range", res.InRange)

	s.publishEvent(ctx, domain.SubjectCheckedIn, rec, res)

	return &CheckInResult{
		Record:         rec,
		DistanceMeters: res.DistanceMeters,
		InRange:        res.InRange,
		Notice:         domain.CheckInNotice(res),
	}, nil
}

// CheckOut records the end of a visit and the worked duration.
func (s *TrackingService) CheckOut(ctx context.Context, bookingID, professionalID uuid.UUID, source domain.PositionSource) (*CheckOutResult, error) {
	pos, err := s.acquirePosition(ctx, source)
	if err != nil {
		return nil, err
	}

	rec, err := s.trackingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotCheckedIn
		}
		return nil, err
	}
	if rec.ProfessionalID != professionalID {
		return nil, domain.ErrNotAssigned
	}

	booking, err := s.bookingRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	target := s.resolveTarget(ctx, booking)
	res := domain.Evaluate(pos.Coordinates, target)

	if err := rec.Complete(s.now(), pos.Coordinates.Latitude, pos.Coordinates.Longitude, res); err != nil {
		return nil, err
	}
	if err := s.trackingRepo.Complete(ctx, rec); err != nil {
		return nil, err
	}

	checkOutsCounter.WithLabelValues(fmt.Sprintf("%t", res.InRange)).Inc()
	s.logger.InfoContext(ctx, "Check-out recorded",
		"tracking_id", rec.ID, "booking_id", bookingID,
		"distance_m", res.DistanceMeters, "actual_hours", *rec.ActualHours)

	s.publishEvent(ctx, domain.SubjectCheckedOut, rec, res)

	return &CheckOutResult{
		Record:         rec,
		DistanceMeters: res.DistanceMeters,
		InRange:        res.InRange,
		ActualHours:    *rec.ActualHours,
		Notice:         domain.CheckOutNotice(res, *rec.ActualHours),
	}, nil
}

// GetByBookingID returns the booking's tracking record for the detail view.
func (s *TrackingService) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*domain.TrackingRecord, error) {
	return s.trackingRepo.GetByBookingID(ctx, bookingID)
}

// publishEvent is best effort: the record is already durable.
func (s *TrackingService) publishEvent(ctx context.Context, subject string, rec *domain.TrackingRecord, res domain.GeofenceResult) {
	event := domain.TrackingEvent{
		TrackingID:     rec.ID,
		BookingID:      rec.BookingID,
		ProfessionalID: rec.ProfessionalID,
		Status:         rec.Status,
		DistanceMeters: res.DistanceMeters,
		InRange:        res.InRange,
		ActualHours:    rec.ActualHours,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal tracking event", "error", err, "tracking_id", rec.ID)
		return
	}
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish tracking event",
			"error", err, "subject", subject, "tracking_id", rec.ID)
	}
}
