package domain

import (
	"context"
	"time"

	"github.com/casafacile/golang_services/internal/core_domain"
)

// Position is one device fix.
type Position struct {
	Coordinates    core_domain.Coordinates
	AccuracyMeters float64
	CapturedAt     time.Time
}

// PositionOptions is the acquisition contract for a fix.
type PositionOptions struct {
	// HighAccuracy requests GPS-grade accuracy from the device.
	HighAccuracy bool
	// Timeout bounds the wait for a fix.
	Timeout time.Duration
	// MaxStaleness is the maximum accepted fix age. Zero means a cached fix
	// is never accepted; the adapter applies a short network-latency
	// allowance on top.
	MaxStaleness time.Duration
}

// DefaultPositionOptions mirrors the check-in/check-out requirements:
// high-accuracy mode, no cached fix, 15 second bound.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: true,
		Timeout:      15 * time.Second,
		MaxStaleness: 0,
	}
}

// PositionSource yields the professional's current position. Fails with
// ErrPositionPermissionDenied or ErrPositionUnavailable.
type PositionSource interface {
	GetCurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}
