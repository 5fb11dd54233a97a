// Package position adapts device fixes reported by the mobile/web client to
// the tracking domain's PositionSource interface. The geolocation API runs on
// the device; the backend receives the fix (or the acquisition failure) in
// the request body and enforces the acquisition contract server-side.
package position

import (
	"context"
	"time"

	"github.com/casafacile/golang_services/internal/core_domain"
	"github.com/casafacile/golang_services/internal/tracking_service/domain"
)

// Failure codes a client may report instead of a fix.
const (
	FailurePermissionDenied = "permission_denied"
	FailureUnavailable      = "unavailable"
	FailureTimeout          = "timeout"
)

// networkAllowance is added to MaxStaleness to account for the time the fix
// spends in transit between device and backend.
const networkAllowance = 30 * time.Second

// ReportedSource wraps one reported fix. Zero-valued fields plus a
// FailureCode model the device-side acquisition failing.
type ReportedSource struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	CapturedAt     time.Time
	FailureCode    string

	// maxAge overrides networkAllowance; used by the HTTP layer to apply the
	// configured freshness window.
	maxAge time.Duration
}

// NewReportedSource builds a source from a reported fix.
func NewReportedSource(lat, lon, accuracy float64, capturedAt time.Time, failureCode string, maxAge time.Duration) *ReportedSource {
	return &ReportedSource{
		Latitude:       lat,
		Longitude:      lon,
		AccuracyMeters: accuracy,
		CapturedAt:     capturedAt,
		FailureCode:    failureCode,
		maxAge:         maxAge,
	}
}

// GetCurrentPosition validates the reported fix against the acquisition
// contract: distinct permission-denied failure, no cached fixes beyond the
// freshness window, context deadline respected.
func (s *ReportedSource) GetCurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.Position, error) {
	if err := ctx.Err(); err != nil {
		return domain.Position{}, domain.ErrPositionUnavailable
	}

	switch s.FailureCode {
	case "":
		// Fix present, keep validating.
	case FailurePermissionDenied:
		return domain.Position{}, domain.ErrPositionPermissionDenied
	default:
		return domain.Position{}, domain.ErrPositionUnavailable
	}

	if s.CapturedAt.IsZero() {
		return domain.Position{}, domain.ErrPositionUnavailable
	}

	// MaxStaleness of zero means "no cached fix": only the transit allowance
	// is tolerated on top.
	allowed := opts.MaxStaleness + networkAllowance
	if s.maxAge > 0 {
		allowed = opts.MaxStaleness + s.maxAge
	}
	if time.Since(s.CapturedAt) > allowed {
		return domain.Position{}, domain.ErrPositionUnavailable
	}

	return domain.Position{
		Coordinates: core_domain.Coordinates{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
		},
		AccuracyMeters: s.AccuracyMeters,
		CapturedAt:     s.CapturedAt,
	}, nil
}
