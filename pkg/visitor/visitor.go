package visitor

import (
	"context"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flagship-io/flagship-go/pkg/async"
	"github.com/flagship-io/flagship-go/pkg/cache"
	"github.com/flagship-io/flagship-go/pkg/decision"
	"github.com/flagship-io/flagship-go/pkg/tracking"
)

// FetchStatus tracks whether the visitor's flags are in sync with its
// state. Anything but StatusFetched means a flag read may be stale and is
// logged as such.
type FetchStatus string

const (
	StatusCreated         FetchStatus = "CREATED"
	StatusContextUpdated  FetchStatus = "CONTEXT_UPDATED"
	StatusAuthenticated   FetchStatus = "AUTHENTICATED"
	StatusUnauthenticated FetchStatus = "UNAUTHENTICATED"
	StatusFetched         FetchStatus = "FETCHED"
)

// reservedPrefix guards the context keys interpreted by the targeting
// evaluator from host writes.
const reservedPrefix = "fs_"

// Deps wires a visitor to the shared engine services. The same Deps value
// is handed to every visitor the client creates.
type Deps struct {
	Status        func() decision.Status
	Source        decision.Source
	Tracking      *tracking.Manager
	Cache         cache.VisitorCache
	Migrations    *cache.Migrations
	Logger        *slog.Logger
	LookupTimeout time.Duration

	// ContextSync makes every successful resolution enqueue a Segment hit,
	// which the bucketing mode needs to keep server-side context in step.
	ContextSync bool
}

// FlagMetadata describes the campaign a flag assignment came from.
type FlagMetadata struct {
	CampaignID       string
	CampaignType     string
	Slug             string
	VariationGroupID string
	VariationID      string
	IsReference      bool
}

// Visitor is one visitor session. Not intended for concurrent mutation
// from multiple goroutines, but safe against the SDK's own background
// work.
type Visitor struct {
	deps Deps

	mu            sync.Mutex
	id            string
	anonymousID   string
	context       map[string]any
	consent       bool
	authenticated bool
	flags         map[string]decision.Modification
	activated     map[string]struct{}
	assignments   map[string]string
	fetchStatus   FetchStatus
}

// Option configures a new visitor.
type Option func(*Visitor)

// WithContext seeds the visitor context. Invalid entries are dropped with
// a log line, like UpdateContext would.
func WithContext(ctx map[string]any) Option {
	return func(v *Visitor) {
		for key, value := range ctx {
			if err := validateContextEntry(key, value); err != nil {
				v.deps.Logger.Warn("ignoring invalid context entry",
					slog.String("key", key),
					slog.String("error", err.Error()))
				continue
			}
			v.context[key] = value
		}
	}
}

// WithConsent sets the initial consent. The default is true.
func WithConsent(consent bool) Option {
	return func(v *Visitor) { v.consent = consent }
}

// WithAuthenticated marks the visitor as already authenticated with the
// given id.
func WithAuthenticated() Option {
	return func(v *Visitor) { v.authenticated = true }
}

// New creates a visitor session. An empty id gets a generated UUID. When a
// visitor cache is configured, a previous snapshot for the same id is
// rehydrated first; explicit options override what was restored.
func New(deps Deps, visitorID string, opts ...Option) *Visitor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Status == nil {
		deps.Status = func() decision.Status { return decision.StatusInitializing }
	}
	if deps.Migrations == nil {
		deps.Migrations = Migrations()
	}
	if deps.LookupTimeout == 0 {
		deps.LookupTimeout = 200 * time.Millisecond
	}

	if visitorID == "" {
		visitorID = uuid.NewString()
		deps.Logger.Info("generated visitor id", slog.String("visitor_id", visitorID))
	}

	v := &Visitor{
		deps:        deps,
		id:          visitorID,
		context:     make(map[string]any),
		consent:     true,
		flags:       make(map[string]decision.Modification),
		activated:   make(map[string]struct{}),
		assignments: make(map[string]string),
		fetchStatus: StatusCreated,
	}
	v.restore()
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ID returns the current visitor id.
func (v *Visitor) ID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id
}

// AnonymousID returns the anonymous id, present only while authenticated.
func (v *Visitor) AnonymousID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.anonymousID
}

// Context returns a copy of the visitor context.
func (v *Visitor) Context() map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]any, len(v.context))
	maps.Copy(out, v.context)
	return out
}

// HasConsented reports the visitor's consent.
func (v *Visitor) HasConsented() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.consent
}

// FetchStatus reports whether flags are in sync with the visitor state.
func (v *Visitor) FetchStatus() FetchStatus {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fetchStatus
}

// UpdateContext applies the given entries to the visitor context and marks
// the flags stale. Reserved keys and non-scalar values are rejected.
func (v *Visitor) UpdateContext(entries map[string]any) {
	v.strategy().updateContext(entries)
}

// FetchFlags resolves the visitor's flags through the decision source and
// replaces the current assignment set wholesale.
func (v *Visitor) FetchFlags(ctx context.Context) *async.Future[struct{}] {
	return v.strategy().fetchFlags(ctx)
}

// GetFlagValue returns the resolved value for the key, or the caller's
// default when the flag is missing, the value is null, or its type does
// not match the default's.
func (v *Visitor) GetFlagValue(key string, defaultValue any) any {
	mod, ok := v.strategy().flagValue(key)
	if !ok {
		return defaultValue
	}
	if mod.Value == nil {
		return defaultValue
	}
	if defaultValue != nil && !sameValueKind(mod.Value, defaultValue) {
		v.deps.Logger.Warn("flag value type mismatch, returning default",
			slog.String("key", key))
		return defaultValue
	}
	return mod.Value
}

// GetFlagMetadata returns the campaign metadata behind a flag assignment.
func (v *Visitor) GetFlagMetadata(key string) (FlagMetadata, bool) {
	mod, ok := v.strategy().flagValue(key)
	if !ok {
		return FlagMetadata{}, false
	}
	return FlagMetadata{
		CampaignID:       mod.CampaignID,
		CampaignType:     mod.CampaignType,
		Slug:             mod.Slug,
		VariationGroupID: mod.VariationGroupID,
		VariationID:      mod.VariationID,
		IsReference:      mod.IsReference,
	}, true
}

// SendExposure reports that the visitor was shown the variation behind the
// flag. Exposures are deduplicated per variation id for the session.
func (v *Visitor) SendExposure(key string) *async.Future[struct{}] {
	return v.strategy().sendExposure(key)
}

// SendHit enqueues an analytics hit stamped with the visitor identity.
func (v *Visitor) SendHit(hit tracking.Hit) *async.Future[struct{}] {
	return v.strategy().sendHit(hit)
}

// Authenticate swaps the visitor to the authenticated id, keeping the
// previous id as the anonymous id, and marks the flags stale.
func (v *Visitor) Authenticate(visitorID string) {
	v.strategy().authenticate(visitorID)
}

// Unauthenticate reverts to the anonymous id and marks the flags stale.
func (v *Visitor) Unauthenticate() {
	v.strategy().unauthenticate()
}

// SetConsent records the visitor's consent decision. Revoking consent
// flushes both the visitor snapshot and the pending hit cache.
func (v *Visitor) SetConsent(consent bool) {
	v.strategy().setConsent(consent)
}

// FlagValue is the typed flag accessor. JSON numbers arrive as float64;
// when the caller's default is an integer type the value is converted, so
// a flag holding 42 satisfies a default of int(0).
func FlagValue[T any](v *Visitor, key string, defaultValue T) T {
	raw := v.GetFlagValue(key, defaultValue)
	if typed, ok := raw.(T); ok {
		return typed
	}
	if f, ok := raw.(float64); ok {
		if converted, ok := convertNumber[T](f); ok {
			return converted
		}
	}
	return defaultValue
}

func convertNumber[T any](f float64) (T, bool) {
	var zero T
	switch any(zero).(type) {
	case int:
		if v, ok := any(int(f)).(T); ok {
			return v, true
		}
	case int32:
		if v, ok := any(int32(f)).(T); ok {
			return v, true
		}
	case int64:
		if v, ok := any(int64(f)).(T); ok {
			return v, true
		}
	case float32:
		if v, ok := any(float32(f)).(T); ok {
			return v, true
		}
	}
	return zero, false
}

// sameValueKind reports whether a resolved value and the caller's default
// belong to the same broad kind: numbers of any width count as one kind.
func sameValueKind(value, defaultValue any) bool {
	kind := func(x any) string {
		switch x.(type) {
		case string:
			return "string"
		case bool:
			return "bool"
		case float64, float32, int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64:
			return "number"
		case map[string]any:
			return "object"
		case []any:
			return "array"
		default:
			return "other"
		}
	}
	return kind(value) == kind(defaultValue)
}

func validateContextEntry(key string, value any) error {
	if strings.HasPrefix(key, reservedPrefix) {
		return ErrReservedKey
	}
	switch value.(type) {
	case string, bool,
		float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil
	default:
		return ErrInvalidContextValue
	}
}

// markStale transitions the fetch status away from FETCHED. Callers hold
// the mutex.
func (v *Visitor) markStale(status FetchStatus) {
	v.fetchStatus = status
}

// info snapshots the fields a decision source needs.
func (v *Visitor) info() decision.VisitorInfo {
	v.mu.Lock()
	defer v.mu.Unlock()
	ctx := make(map[string]any, len(v.context))
	maps.Copy(ctx, v.context)
	assignments := make(map[string]string, len(v.assignments))
	maps.Copy(assignments, v.assignments)
	return decision.VisitorInfo{
		VisitorID:   v.id,
		AnonymousID: v.anonymousID,
		Context:     ctx,
		Assignments: assignments,
	}
}

// base stamps a hit with the visitor identity. Callers hold no locks.
func (v *Visitor) base() tracking.Base {
	v.mu.Lock()
	defer v.mu.Unlock()
	return tracking.Base{VisitorID: v.id, AnonymousID: v.anonymousID}
}
