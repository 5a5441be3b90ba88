package visitor

import (
	"context"
	"log/slog"

	"github.com/flagship-io/flagship-go/pkg/async"
	"github.com/flagship-io/flagship-go/pkg/decision"
	"github.com/flagship-io/flagship-go/pkg/tracking"
)

// strategy is the per-call behavior gate. One implementation exists per
// (status, consent) regime; selection happens on every operation because
// both inputs can change between calls.
type strategy interface {
	updateContext(entries map[string]any)
	fetchFlags(ctx context.Context) *async.Future[struct{}]
	flagValue(key string) (decision.Modification, bool)
	sendExposure(key string) *async.Future[struct{}]
	sendHit(hit tracking.Hit) *async.Future[struct{}]
	authenticate(visitorID string)
	unauthenticate()
	setConsent(consent bool)
}

// strategy derives the active strategy from the current SDK status and the
// visitor's consent.
func (v *Visitor) strategy() strategy {
	status := v.deps.Status()
	switch {
	case status == decision.StatusPanic:
		return panicStrategy{defaultStrategy{v}}
	case status < decision.StatusReady:
		return notReadyStrategy{defaultStrategy{v}}
	case !v.HasConsented():
		return noConsentStrategy{defaultStrategy{v}}
	default:
		return defaultStrategy{v}
	}
}

// defaultStrategy is the full-behavior implementation the degraded
// strategies embed and selectively disable.
type defaultStrategy struct {
	v *Visitor
}

func (s defaultStrategy) updateContext(entries map[string]any) {
	v := s.v
	v.mu.Lock()
	defer v.mu.Unlock()
	changed := false
	for key, value := range entries {
		if err := validateContextEntry(key, value); err != nil {
			v.deps.Logger.Warn("ignoring invalid context entry",
				slog.String("key", key),
				slog.String("error", err.Error()))
			continue
		}
		v.context[key] = value
		changed = true
	}
	if changed {
		v.markStale(StatusContextUpdated)
	}
}

func (s defaultStrategy) fetchFlags(ctx context.Context) *async.Future[struct{}] {
	v := s.v
	return async.Run(ctx, func(ctx context.Context) (struct{}, error) {
		info := v.info()
		res, err := v.deps.Source.GetModifications(ctx, info)
		if err != nil {
			v.deps.Logger.Warn("flag fetch failed",
				slog.String("visitor_id", info.VisitorID),
				slog.String("error", err.Error()))
			return struct{}{}, err
		}

		v.mu.Lock()
		flags := make(map[string]decision.Modification, len(res.Modifications))
		for _, mod := range res.Modifications {
			flags[mod.Key] = mod
		}
		v.flags = flags
		for groupID, variationID := range res.Assignments {
			v.assignments[groupID] = variationID
		}
		v.fetchStatus = StatusFetched
		v.mu.Unlock()

		v.persist(ctx)

		if v.deps.ContextSync && v.deps.Tracking != nil {
			segment := &tracking.Segment{Base: v.base(), Context: v.Context()}
			if err := v.deps.Tracking.Add(segment); err != nil {
				v.deps.Logger.Debug("context sync skipped", slog.String("error", err.Error()))
			}
		}
		return struct{}{}, nil
	})
}

func (s defaultStrategy) flagValue(key string) (decision.Modification, bool) {
	v := s.v
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fetchStatus != StatusFetched {
		v.deps.Logger.Warn("flag read before fetch, value may be stale or missing",
			slog.String("key", key),
			slog.String("fetch_status", string(v.fetchStatus)))
	}
	mod, ok := v.flags[key]
	if !ok {
		v.deps.Logger.Info("flag not found, returning default", slog.String("key", key))
	}
	return mod, ok
}

func (s defaultStrategy) sendExposure(key string) *async.Future[struct{}] {
	v := s.v
	v.mu.Lock()
	mod, ok := v.flags[key]
	if !ok {
		v.mu.Unlock()
		v.deps.Logger.Info("exposure skipped, flag not found", slog.String("key", key))
		return async.Completed(struct{}{}, ErrFlagNotFound)
	}
	if _, seen := v.activated[mod.VariationID]; seen {
		v.mu.Unlock()
		return async.Completed(struct{}{}, nil)
	}
	v.activated[mod.VariationID] = struct{}{}
	v.mu.Unlock()

	hit := &tracking.Activation{
		Base:             v.base(),
		VariationGroupID: mod.VariationGroupID,
		VariationID:      mod.VariationID,
	}
	var err error
	if v.deps.Tracking != nil {
		err = v.deps.Tracking.Add(hit)
	}
	v.persist(context.Background())
	return async.Completed(struct{}{}, err)
}

func (s defaultStrategy) sendHit(hit tracking.Hit) *async.Future[struct{}] {
	v := s.v
	stampBase(hit, v.base())
	if v.deps.Tracking == nil {
		return async.Completed(struct{}{}, nil)
	}
	return async.Completed(struct{}{}, v.deps.Tracking.Add(hit))
}

func (s defaultStrategy) authenticate(visitorID string) {
	v := s.v
	if visitorID == "" {
		v.deps.Logger.Warn("authenticate ignored, empty visitor id")
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.authenticated {
		v.id = visitorID
		v.markStale(StatusAuthenticated)
		return
	}
	v.anonymousID = v.id
	v.id = visitorID
	v.authenticated = true
	v.markStale(StatusAuthenticated)
}

func (s defaultStrategy) unauthenticate() {
	v := s.v
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.authenticated {
		v.deps.Logger.Warn("unauthenticate ignored, visitor is not authenticated")
		return
	}
	v.id = v.anonymousID
	v.anonymousID = ""
	v.authenticated = false
	v.markStale(StatusUnauthenticated)
}

func (s defaultStrategy) setConsent(consent bool) {
	v := s.v
	v.mu.Lock()
	v.consent = consent
	v.mu.Unlock()

	if !consent {
		// Revoked consent wipes local traces: the visitor snapshot and
		// every locally retained hit.
		ctx, cancel := context.WithTimeout(context.Background(), v.deps.LookupTimeout)
		defer cancel()
		if v.deps.Cache != nil {
			if err := v.deps.Cache.FlushVisitor(ctx, v.ID()); err != nil {
				v.deps.Logger.Warn("visitor cache flush failed", slog.String("error", err.Error()))
			}
		}
		if v.deps.Tracking != nil {
			if err := v.deps.Tracking.FlushCachedHits(ctx); err != nil {
				v.deps.Logger.Warn("hit cache flush failed", slog.String("error", err.Error()))
			}
		}
	}
	// The consent hit is always delivered, otherwise tracking could never
	// be re-enabled after a revoke.
	if v.deps.Tracking != nil {
		hit := &tracking.Consent{Base: v.base(), Consent: consent}
		if err := v.deps.Tracking.Add(hit); err != nil {
			v.deps.Logger.Debug("consent hit dropped", slog.String("error", err.Error()))
		}
	}
}

// notReadyStrategy: the SDK has not reached READY. Flag and hit operations
// are deactivated; local state changes still apply.
type notReadyStrategy struct {
	defaultStrategy
}

func (s notReadyStrategy) fetchFlags(ctx context.Context) *async.Future[struct{}] {
	s.v.deps.Logger.Warn("fetchFlags deactivated, sdk is not ready")
	return async.Completed(struct{}{}, ErrDeactivated)
}

func (s notReadyStrategy) flagValue(key string) (decision.Modification, bool) {
	s.v.deps.Logger.Warn("flag read deactivated, sdk is not ready", slog.String("key", key))
	return decision.Modification{}, false
}

func (s notReadyStrategy) sendExposure(key string) *async.Future[struct{}] {
	s.v.deps.Logger.Warn("sendExposure deactivated, sdk is not ready", slog.String("key", key))
	return async.Completed(struct{}{}, ErrDeactivated)
}

func (s notReadyStrategy) sendHit(tracking.Hit) *async.Future[struct{}] {
	s.v.deps.Logger.Warn("sendHit deactivated, sdk is not ready")
	return async.Completed(struct{}{}, ErrDeactivated)
}

func (s notReadyStrategy) authenticate(string) {
	s.v.deps.Logger.Warn("authenticate deactivated, sdk is not ready")
}

func (s notReadyStrategy) unauthenticate() {
	s.v.deps.Logger.Warn("unauthenticate deactivated, sdk is not ready")
}

func (s notReadyStrategy) setConsent(consent bool) {
	// Applies locally only; the consent hit is sent once the SDK is ready.
	v := s.v
	v.mu.Lock()
	v.consent = consent
	v.mu.Unlock()
}

// panicStrategy: the platform pushed the kill switch. Only FetchFlags may
// run, since a fetch is the only way out of panic.
type panicStrategy struct {
	defaultStrategy
}

func (s panicStrategy) updateContext(map[string]any) {
	s.v.deps.Logger.Warn("updateContext deactivated, sdk is in panic mode")
}

func (s panicStrategy) flagValue(key string) (decision.Modification, bool) {
	s.v.deps.Logger.Warn("flag read deactivated, sdk is in panic mode", slog.String("key", key))
	return decision.Modification{}, false
}

func (s panicStrategy) sendExposure(key string) *async.Future[struct{}] {
	s.v.deps.Logger.Warn("sendExposure deactivated, sdk is in panic mode", slog.String("key", key))
	return async.Completed(struct{}{}, ErrDeactivated)
}

func (s panicStrategy) sendHit(tracking.Hit) *async.Future[struct{}] {
	s.v.deps.Logger.Warn("sendHit deactivated, sdk is in panic mode")
	return async.Completed(struct{}{}, ErrDeactivated)
}

func (s panicStrategy) authenticate(string) {
	s.v.deps.Logger.Warn("authenticate deactivated, sdk is in panic mode")
}

func (s panicStrategy) unauthenticate() {
	s.v.deps.Logger.Warn("unauthenticate deactivated, sdk is in panic mode")
}

func (s panicStrategy) setConsent(bool) {
	s.v.deps.Logger.Warn("setConsent deactivated, sdk is in panic mode")
}

// noConsentStrategy: flags keep resolving, tracking is suppressed.
type noConsentStrategy struct {
	defaultStrategy
}

func (s noConsentStrategy) sendExposure(key string) *async.Future[struct{}] {
	s.v.deps.Logger.Info("exposure suppressed without consent", slog.String("key", key))
	return async.Completed(struct{}{}, ErrNoConsent)
}

func (s noConsentStrategy) sendHit(tracking.Hit) *async.Future[struct{}] {
	s.v.deps.Logger.Info("hit suppressed without consent")
	return async.Completed(struct{}{}, ErrNoConsent)
}

// stampBase fills the identity fields of a concrete hit type.
func stampBase(hit tracking.Hit, base tracking.Base) {
	switch h := hit.(type) {
	case *tracking.Page:
		h.Base = base
	case *tracking.Screen:
		h.Base = base
	case *tracking.Event:
		h.Base = base
	case *tracking.Transaction:
		h.Base = base
	case *tracking.Item:
		h.Base = base
	case *tracking.Consent:
		h.Base = base
	case *tracking.Activation:
		h.Base = base
	case *tracking.Segment:
		h.Base = base
	}
}
