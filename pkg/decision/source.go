package decision

import (
	"context"
	"net/http"
)

// Source resolves flag assignments for visitors. Implementations own their
// own background work: APISource has none, BucketingSource runs a polling
// goroutine between Start and Stop.
type Source interface {
	// GetModifications resolves the visitor's flags. It never mutates the
	// visitor; new variation choices are reported through the Resolution
	// for the caller to merge into the sticky assignment history.
	GetModifications(ctx context.Context, visitor VisitorInfo) (*Resolution, error)

	// Start transitions the source to its running state.
	Start(ctx context.Context) error

	// Stop terminates background work. Safe to call more than once.
	Stop() error
}

// Doer is the outbound HTTP transport consumed by decision sources.
// *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SDK identification headers sent with every decision request.
const (
	headerAPIKey     = "x-api-key"
	headerSDKClient  = "x-sdk-client"
	headerSDKVersion = "x-sdk-version"

	sdkClient  = "go"
	sdkVersion = "1.0.0"
)
