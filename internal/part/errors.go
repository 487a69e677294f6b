package part

import "errors"

var (
	// ErrNotFound is returned when the referenced part does not exist.
	ErrNotFound = errors.New("part not found")

	// ErrInvalidInput is returned for missing/malformed catalog fields.
	ErrInvalidInput = errors.New("invalid part input")
)
