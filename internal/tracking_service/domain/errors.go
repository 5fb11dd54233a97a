package domain

import "errors"

var (
	// ErrNotFound indicates the booking or tracking record was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrNotAssigned indicates the caller is not the professional assigned to the booking.
	ErrNotAssigned = errors.New("professional not assigned to booking")
	// ErrAlreadyCheckedIn indicates a tracking record already exists for the booking.
	ErrAlreadyCheckedIn = errors.New("booking already has a check-in")
	// ErrAlreadyCompleted indicates the record was already checked out.
	ErrAlreadyCompleted = errors.New("tracking record already completed")
	// ErrNotCheckedIn indicates a check-out with no prior check-in.
	ErrNotCheckedIn = errors.New("booking has no check-in")

	// ErrPositionPermissionDenied indicates the device refused to share its
	// position. Surfaced to the user as "enable GPS".
	ErrPositionPermissionDenied = errors.New("position permission denied")
	// ErrPositionUnavailable indicates a timeout, a stale fix or an
	// unsupported device.
	ErrPositionUnavailable = errors.New("position unavailable")
)
