package domain

import "errors"

var (
	// ErrValidation marks malformed input to a public operation.
	ErrValidation = errors.New("validation error")

	// ErrSchema marks a batch that is missing a required field entirely.
	ErrSchema = errors.New("schema error")

	// ErrEmptySource marks a merge that produced no usable region records.
	ErrEmptySource = errors.New("empty source")

	// ErrNotFound marks a lookup that legitimately has no result.
	ErrNotFound = errors.New("not found")
)
