package resolver

import "errors"

var (
	// ErrIndexRequired is returned when a resolver is created without an index.
	ErrIndexRequired = errors.New("index is required")

	// ErrInvalidTopN is returned when fewer than one result per query is requested.
	ErrInvalidTopN = errors.New("top must be at least 1")

	// ErrInvalidOption is returned when an option value is out of range.
	ErrInvalidOption = errors.New("invalid resolver option")
)
