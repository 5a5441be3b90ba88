package decision

import "sync/atomic"

// Status represents the global lifecycle state of the SDK.
type Status int32

const (
	// StatusInitializing is the state before Start has completed.
	StatusInitializing Status = iota
	// StatusPolling means the bucketing poller is running but has not yet
	// fetched a campaign model.
	StatusPolling
	// StatusReady means flags can be resolved and hits can be sent.
	StatusReady
	// StatusPanic is the global degrade state pushed by the platform:
	// every operation except flag fetching becomes a logged no-op.
	StatusPanic
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusPolling:
		return "POLLING"
	case StatusReady:
		return "READY"
	case StatusPanic:
		return "PANIC"
	default:
		return "UNKNOWN"
	}
}

// StatusMonitor holds the shared SDK status and notifies a single callback
// on every effective transition. Transitions to the status already held are
// no-ops and do not fire the callback. Safe for concurrent use.
type StatusMonitor struct {
	v        atomic.Int32
	onChange func(Status)
}

// NewStatusMonitor creates a monitor starting at StatusInitializing.
// The callback may be nil.
func NewStatusMonitor(onChange func(Status)) *StatusMonitor {
	return &StatusMonitor{onChange: onChange}
}

// Current returns the status last stored.
func (m *StatusMonitor) Current() Status {
	return Status(m.v.Load())
}

// Set swaps the status atomically and fires the callback when the value
// actually changed.
func (m *StatusMonitor) Set(s Status) {
	old := m.v.Swap(int32(s))
	if Status(old) == s {
		return
	}
	if m.onChange != nil {
		m.onChange(s)
	}
}
