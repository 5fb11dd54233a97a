package domain

import "errors"

var (
	// ErrNotFound indicates that a requested message or conversation was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrEmptyContent indicates a message with no content after trimming whitespace.
	ErrEmptyContent = errors.New("message content is empty")
)
