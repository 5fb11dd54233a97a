package domain

import "errors"

var (
	// ErrNotFound indicates the flag was not found.
	ErrNotFound = errors.New("moderation flag not found")
)
