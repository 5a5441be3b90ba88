// Package visitor holds the per-visitor session state and the strategy
// state machine that gates every operation on the SDK status and the
// visitor's consent.
//
// A Visitor carries its context map, resolved flag assignments, consent,
// authentication state, the append-only sticky assignment history and the
// set of variations already exposed this session. Context and
// authentication changes mark the flags stale; FetchFlags asks the
// configured decision source for a fresh assignment set, replaces the
// flags wholesale and persists a snapshot through the visitor cache
// contract.
//
// # Strategies
//
// Every public operation re-derives its strategy from the current
// (status, consent) pair, because both can change between calls:
//
//   - not ready (status below READY): flag, exposure and hit operations
//     are logged no-ops returning the caller's default; context and
//     consent changes still apply locally
//   - panic: as not ready, and context, consent and authentication
//     mutations are blocked outright; only FetchFlags can lift panic
//   - no consent: flag reads and authentication work, but exposures and
//     hits are suppressed and no cache writes happen, except the Consent
//     hit that makes re-enabling tracking possible
//   - default: full behavior
//
// Flag reads never fail: a missing flag or a value whose type mismatches
// the caller's default yields the default plus a log line.
package visitor
