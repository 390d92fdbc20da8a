package index

import "errors"

var (
	// ErrIndexNotFound is returned when no index artifact exists on disk.
	// The caller must rebuild the index first.
	ErrIndexNotFound = errors.New("index not found")

	// ErrCorruptIndex is returned when an artifact exists but its rows are
	// inconsistent or unreadable.
	ErrCorruptIndex = errors.New("corrupt index")
)
