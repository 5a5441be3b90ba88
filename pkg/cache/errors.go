package cache

import "errors"

// Predefined errors for the cache package.
var (
	// ErrUnknownVersion indicates a cached record carries a version the
	// migration registry does not know about.
	ErrUnknownVersion = errors.New("cache: unknown record version")

	// ErrInvalidEnvelope indicates a cached record is not a valid
	// {version, data} envelope.
	ErrInvalidEnvelope = errors.New("cache: invalid record envelope")

	// ErrMigrationFailed indicates a migration function rejected a payload.
	ErrMigrationFailed = errors.New("cache: record migration failed")

	// ErrNilClient indicates a cache was built from a nil client or pool.
	ErrNilClient = errors.New("cache: nil client")
)
