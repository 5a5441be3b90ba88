// Package tracking collects analytics and exposure hits and reliably
// delivers them to the collection endpoints.
//
// The Manager owns two FIFO queues: one for general hits and one for
// activations (exposures). Enqueued hits are validated first; a hit missing
// a required field or exceeding the size ceiling is logged and dropped
// without affecting its siblings. A background loop flushes both queues at
// a fixed batch interval: the general queue is folded into a single Batch
// hit up to a byte ceiling, activations are posted individually because
// exposure timeliness matters for reporting accuracy. Reaching the
// configured pool size triggers a flush ahead of the interval.
//
// # Caching strategies
//
// A pluggable caching strategy decides when pending hits are persisted
// through the host-supplied hit cache so they survive a process restart:
//
//   - StrategyContinuous persists every hit on enqueue and removes the
//     persisted copies once their batch is accepted
//   - StrategyPeriodic persists the pending set in bulk after each cycle
//   - StrategyNoBatching sends each hit immediately on enqueue and only
//     persists on delivery failure, since there is no retry loop
//
// When the global status is PANIC every tracking operation is a logged
// no-op: no queue growth and no cache writes.
//
// On Start the manager drains the hit cache into its queues (bounded by
// the lookup timeout) so hits from a previous process are resent, except
// those older than the expiration window, which are discarded.
package tracking
