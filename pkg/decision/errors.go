package decision

import "errors"

// Predefined errors for the decision package.
var (
	// ErrNoModel indicates that no campaign model has been fetched yet and
	// no local fallback is available.
	ErrNoModel = errors.New("decision: no campaign model available")

	// ErrInvalidResponse indicates the decision endpoint returned a payload
	// that could not be parsed.
	ErrInvalidResponse = errors.New("decision: invalid response payload")

	// ErrUnexpectedStatus indicates the endpoint answered with a non-success
	// HTTP status code.
	ErrUnexpectedStatus = errors.New("decision: unexpected response status")

	// ErrSourceStopped indicates an operation was attempted on a stopped source.
	ErrSourceStopped = errors.New("decision: source is stopped")

	// ErrEmptyEnvID indicates the source was built without an environment id.
	ErrEmptyEnvID = errors.New("decision: environment id is required")
)
