package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidInterval = errors.New("end time must be after start time")

	ErrPending = errors.New("slot has a pending swap")
)
