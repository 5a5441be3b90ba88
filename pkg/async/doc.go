// Package async provides the deferred-result primitive returned by the
// SDK's non-blocking operations.
//
// Flag fetches and hit sends return a *Future so the caller can choose
// between fire-and-forget and awaiting completion, optionally with a
// timeout. A Future completes exactly once; reading it after completion is
// cheap and side-effect free. Then chains a callback onto completion
// without blocking the caller, which is how fetch-then-sync pipelines are
// built internally.
//
// If the supplied context is cancelled before the computation runs, the
// Future completes with the context error and the goroutine exits early.
package async
