// Package cache defines the persistence contracts that let visitor state
// and pending hits survive a process restart, plus ready-made
// implementations backed by memory, Redis, Postgres and MongoDB.
//
// The host application supplies two independent contracts:
//
//   - VisitorCache stores one serialized snapshot per visitor id
//   - HitCache stores pending analytics hits keyed by hit id
//
// Any key/value or relational store can satisfy them. Implementations are
// expected to be safe for concurrent use; callers bound every lookup with a
// context timeout and treat failures as cache misses, so a slow or broken
// cache degrades flag resolution instead of breaking it.
//
// # Versioned envelopes
//
// Records are wrapped in a {version, data} envelope before they reach a
// cache. A Migrations registry maps an on-disk version to the function that
// upgrades its payload one step; Open applies the chain up to the current
// version at load time. Records with an unknown version are rejected with
// ErrUnknownVersion and skipped by callers, never indexed unsafely.
package cache
