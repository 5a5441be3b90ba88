package visitor

import "errors"

// Predefined errors for the visitor package.
var (
	// ErrDeactivated indicates the operation was ignored because the SDK
	// is not ready or is in panic mode.
	ErrDeactivated = errors.New("visitor: operation deactivated in current SDK state")

	// ErrNoConsent indicates the operation was suppressed because the
	// visitor has not consented to tracking.
	ErrNoConsent = errors.New("visitor: operation suppressed without consent")

	// ErrFlagNotFound indicates no assignment exists for the flag key.
	ErrFlagNotFound = errors.New("visitor: flag not found")

	// ErrReservedKey indicates a context update touched a reserved key.
	ErrReservedKey = errors.New("visitor: context key is reserved")

	// ErrInvalidContextValue indicates a context value that is not a
	// string, bool or number.
	ErrInvalidContextValue = errors.New("visitor: context value must be a scalar")
)
