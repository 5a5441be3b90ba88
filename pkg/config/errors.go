package config

import "errors"

// Predefined errors for the config package.
var (
	// ErrMissingEnvID indicates no environment id was configured.
	ErrMissingEnvID = errors.New("config: environment id is required")

	// ErrMissingAPIKey indicates no API key was configured.
	ErrMissingAPIKey = errors.New("config: api key is required")

	// ErrInvalidDecisionMode indicates an unknown decision mode value.
	ErrInvalidDecisionMode = errors.New(`config: decision mode must be "api" or "bucketing"`)

	// ErrInvalidCacheStrategy indicates an unknown cache strategy value.
	ErrInvalidCacheStrategy = errors.New(`config: cache strategy must be "continuous", "periodic" or "no-batching"`)

	// ErrParseFailed indicates the environment could not be parsed into
	// the config struct.
	ErrParseFailed = errors.New("config: failed to parse environment")
)
