package tracking

import "errors"

// Predefined errors for the tracking package.
var (
	// ErrMissingVisitorID indicates a hit without a visitor id.
	ErrMissingVisitorID = errors.New("tracking: hit is missing visitor id")

	// ErrMissingRequiredField indicates a hit without one of its
	// type-specific required fields.
	ErrMissingRequiredField = errors.New("tracking: hit is missing a required field")

	// ErrHitTooLarge indicates a single hit exceeding the byte ceiling.
	ErrHitTooLarge = errors.New("tracking: hit exceeds maximum size")

	// ErrPanicking indicates the operation was dropped because the SDK is
	// in panic mode.
	ErrPanicking = errors.New("tracking: dropped, sdk is in panic mode")

	// ErrNotStarted indicates the manager has not been started.
	ErrNotStarted = errors.New("tracking: manager not started")
)
