// Package decision resolves feature flag assignments for visitors.
//
// The package is built around three core concepts:
//
//  1. Campaign model - the immutable parsed representation of campaigns,
//     variation groups and variations delivered by the platform
//  2. Targeting - a boolean predicate tree evaluated against a visitor's
//     context map
//  3. Source - the component that turns a visitor into a set of flag
//     assignments, either by asking the decision API (server-side mode)
//     or by bucketing the visitor locally against a polled campaign file
//
// The campaign model is replaced wholesale on every successful fetch and
// is never mutated in place, so any number of visitors can resolve flags
// concurrently against the same snapshot.
//
// # Decision modes
//
// APISource posts the visitor id, anonymous id and context to the decision
// endpoint and parses the server-assigned variations from the response.
//
// BucketingSource polls a CDN-hosted campaign file with a conditional GET
// and evaluates targeting plus allocation locally at resolution time.
// Allocation is deterministic: the same (variation group, visitor id) pair
// always lands in the same bucket while the campaign model is unchanged.
//
// Both sources report lifecycle changes through a shared StatusMonitor
// (INITIALIZING, POLLING, READY, PANIC). A transition to the status already
// held is a no-op and never fires the status callback twice.
//
// # Error Handling
//
// Malformed campaigns, groups or variations in a fetched payload are logged
// and skipped individually; valid siblings are unaffected. Transport
// failures during bucketing polling degrade to the last successfully
// fetched model instead of failing flag resolution.
package decision
