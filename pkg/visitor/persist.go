package visitor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/flagship-io/flagship-go/pkg/cache"
	"github.com/flagship-io/flagship-go/pkg/decision"
)

// recordVersion is the schema version visitor snapshots are cached at.
const recordVersion = 1

// record is the payload inside the versioned visitor envelope.
type record struct {
	VisitorID   string            `json:"visitorId"`
	AnonymousID string            `json:"anonymousId,omitempty"`
	Consent     bool              `json:"consent"`
	Context     map[string]any    `json:"context"`
	Campaigns   []campaignRecord  `json:"campaigns"`
	Assignments map[string]string `json:"assignmentsHistory"`
}

type campaignRecord struct {
	CampaignID       string         `json:"campaignId"`
	VariationGroupID string         `json:"variationGroupId"`
	VariationID      string         `json:"variationId"`
	IsReference      bool           `json:"isReference"`
	Type             string         `json:"type"`
	Slug             string         `json:"slug,omitempty"`
	Activated        bool           `json:"activated"`
	Flags            map[string]any `json:"flags"`
}

// Migrations returns the migration registry for cached visitor snapshots.
// Version 1 is current.
func Migrations() *cache.Migrations {
	return cache.NewMigrations(recordVersion)
}

// snapshot builds the persistence record under the visitor lock.
func (v *Visitor) snapshot() record {
	v.mu.Lock()
	defer v.mu.Unlock()

	rec := record{
		VisitorID:   v.id,
		AnonymousID: v.anonymousID,
		Consent:     v.consent,
		Context:     make(map[string]any, len(v.context)),
		Assignments: make(map[string]string, len(v.assignments)),
	}
	for k, val := range v.context {
		rec.Context[k] = val
	}
	for k, val := range v.assignments {
		rec.Assignments[k] = val
	}

	// One campaign record per variation group seen in the flags, carrying
	// every flag key that variation assigned.
	byGroup := make(map[string]*campaignRecord)
	for key, mod := range v.flags {
		cr, ok := byGroup[mod.VariationGroupID]
		if !ok {
			_, activated := v.activated[mod.VariationID]
			cr = &campaignRecord{
				CampaignID:       mod.CampaignID,
				VariationGroupID: mod.VariationGroupID,
				VariationID:      mod.VariationID,
				IsReference:      mod.IsReference,
				Type:             mod.CampaignType,
				Slug:             mod.Slug,
				Activated:        activated,
				Flags:            make(map[string]any),
			}
			byGroup[mod.VariationGroupID] = cr
		}
		cr.Flags[key] = mod.Value
	}
	for _, cr := range byGroup {
		rec.Campaigns = append(rec.Campaigns, *cr)
	}
	return rec
}

// persist writes the visitor snapshot through the cache contract. Cache
// writes are suppressed without consent, and cache failures degrade to a
// log line.
func (v *Visitor) persist(ctx context.Context) {
	if v.deps.Cache == nil || !v.HasConsented() {
		return
	}
	rec := v.snapshot()
	sealed, err := v.deps.Migrations.Seal(rec)
	if err != nil {
		v.deps.Logger.Warn("visitor snapshot seal failed", slog.String("error", err.Error()))
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.deps.LookupTimeout)
	defer cancel()
	if err := v.deps.Cache.CacheVisitor(writeCtx, rec.VisitorID, sealed); err != nil {
		v.deps.Logger.Warn("visitor cache write failed",
			slog.String("visitor_id", rec.VisitorID),
			slog.String("error", err.Error()))
	}
}

// restore rehydrates assignment history, activations and flags from a
// previous snapshot for this visitor id. Any failure is a cache miss.
func (v *Visitor) restore() {
	if v.deps.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), v.deps.LookupTimeout)
	defer cancel()

	raw, err := v.deps.Cache.LookupVisitor(ctx, v.id)
	if err != nil {
		v.deps.Logger.Warn("visitor cache lookup failed, starting fresh",
			slog.String("visitor_id", v.id),
			slog.String("error", err.Error()))
		return
	}
	if raw == nil {
		return
	}
	data, err := v.deps.Migrations.Open(raw)
	if err != nil {
		v.deps.Logger.Warn("discarding unreadable visitor snapshot",
			slog.String("visitor_id", v.id),
			slog.String("error", err.Error()))
		return
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		v.deps.Logger.Warn("discarding malformed visitor snapshot",
			slog.String("visitor_id", v.id),
			slog.String("error", err.Error()))
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.consent = rec.Consent
	for k, val := range rec.Context {
		v.context[k] = val
	}
	for k, val := range rec.Assignments {
		v.assignments[k] = val
	}
	for _, cr := range rec.Campaigns {
		if cr.Activated {
			v.activated[cr.VariationID] = struct{}{}
		}
		for key, value := range cr.Flags {
			v.flags[key] = decision.Modification{
				Key:              key,
				Value:            value,
				CampaignID:       cr.CampaignID,
				CampaignType:     cr.Type,
				Slug:             cr.Slug,
				VariationGroupID: cr.VariationGroupID,
				VariationID:      cr.VariationID,
				IsReference:      cr.IsReference,
			}
		}
	}
}
