package errors

import "errors"

var (
	ErrNotFound = errors.New("swap request not found")

	// ErrDuplicatePending is returned when a pending request already exists
	// for the same (offered, target) slot pair.
	ErrDuplicatePending = errors.New("pending swap request already exists for slot pair")

	ErrLockHeld = errors.New("swap lock is held")
)
