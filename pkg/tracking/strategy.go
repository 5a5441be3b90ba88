package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flagship-io/flagship-go/pkg/cache"
)

// CacheStrategy selects how pending hits are persisted between process
// runs.
type CacheStrategy string

const (
	// StrategyContinuous persists every hit as it is enqueued and removes
	// the persisted copies once their batch is accepted.
	StrategyContinuous CacheStrategy = "continuous"
	// StrategyPeriodic persists the whole pending set in bulk after each
	// flush cycle instead of writing on every enqueue.
	StrategyPeriodic CacheStrategy = "periodic"
	// StrategyNoBatching disables the batching loop: hits are sent
	// immediately on enqueue and persisted only when delivery fails.
	StrategyNoBatching CacheStrategy = "no-batching"
)

// hitRecordVersion is the schema version pending hits are cached at.
const hitRecordVersion = 1

// hitRecord is the payload inside the versioned hit envelope.
type hitRecord struct {
	Time        int64          `json:"time"`
	VisitorID   string         `json:"visitorId"`
	AnonymousID string         `json:"anonymousId,omitempty"`
	Type        HitType        `json:"type"`
	Content     map[string]any `json:"content"`
}

// HitMigrations returns the migration registry for cached hit records.
// Version 1 is current; older deployments never shipped, so the registry
// starts empty and exists for the next schema change.
func HitMigrations() *cache.Migrations {
	return cache.NewMigrations(hitRecordVersion)
}

// cachingStrategy is the persistence policy consulted by the manager at
// the enqueue, flush and stop points of a hit's lifecycle.
type cachingStrategy interface {
	onEnqueue(ctx context.Context, items []*queuedHit)
	onFlushSuccess(ctx context.Context, items []*queuedHit)
	onFlushFailure(ctx context.Context, items []*queuedHit)
	onStop(ctx context.Context, remaining []*queuedHit)
}

// sealHits serializes queued hits into versioned envelopes keyed by id.
func sealHits(migrations *cache.Migrations, items []*queuedHit) map[string][]byte {
	out := make(map[string][]byte, len(items))
	for _, item := range items {
		body := item.hit.Body()
		record := hitRecord{
			Time:      item.createdAt.UnixMilli(),
			VisitorID: stringField(body, "vid"),
			Type:      item.hit.Type(),
			Content:   body,
		}
		if aid := stringField(body, "aid"); aid != "" {
			record.AnonymousID = aid
		}
		sealed, err := migrations.Seal(record)
		if err != nil {
			continue
		}
		out[item.id] = sealed
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// openHit rebuilds a queued hit from its cached envelope. Records older
// than the expiration window return (nil, nil) and must be flushed.
func openHit(migrations *cache.Migrations, id string, raw []byte, expiration time.Duration) (*queuedHit, error) {
	data, err := migrations.Open(raw)
	if err != nil {
		return nil, err
	}
	var record hitRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", cache.ErrInvalidEnvelope, err)
	}
	createdAt := time.UnixMilli(record.Time)
	if time.Since(createdAt) > expiration {
		return nil, nil
	}
	return &queuedHit{
		id:        id,
		hit:       &cachedHit{hitType: record.Type, content: record.Content},
		createdAt: createdAt,
	}, nil
}

// continuousStrategy: cache on enqueue, uncache on success, keep the
// cached copies around on failure since the originals are requeued anyway.
type continuousStrategy struct {
	cache      cache.HitCache
	migrations *cache.Migrations
	logger     *slog.Logger
}

func (s *continuousStrategy) onEnqueue(ctx context.Context, items []*queuedHit) {
	if err := s.cache.CacheHits(ctx, sealHits(s.migrations, items)); err != nil {
		s.logger.Warn("hit cache write failed", slog.String("error", err.Error()))
	}
}

func (s *continuousStrategy) onFlushSuccess(ctx context.Context, items []*queuedHit) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.id
	}
	if err := s.cache.FlushHits(ctx, ids); err != nil {
		s.logger.Warn("hit cache flush failed", slog.String("error", err.Error()))
	}
}

func (s *continuousStrategy) onFlushFailure(context.Context, []*queuedHit) {}

func (s *continuousStrategy) onStop(context.Context, []*queuedHit) {
	// Remaining hits were cached at enqueue time; nothing more to persist.
}

// periodicStrategy: no per-enqueue persistence, the whole pending set is
// written in bulk after each cycle and on shutdown.
type periodicStrategy struct {
	cache      cache.HitCache
	migrations *cache.Migrations
	logger     *slog.Logger
}

func (s *periodicStrategy) onEnqueue(context.Context, []*queuedHit) {}

func (s *periodicStrategy) onFlushSuccess(ctx context.Context, items []*queuedHit) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.id
	}
	if err := s.cache.FlushHits(ctx, ids); err != nil {
		s.logger.Warn("hit cache flush failed", slog.String("error", err.Error()))
	}
}

func (s *periodicStrategy) onFlushFailure(ctx context.Context, items []*queuedHit) {
	if err := s.cache.CacheHits(ctx, sealHits(s.migrations, items)); err != nil {
		s.logger.Warn("hit cache bulk write failed", slog.String("error", err.Error()))
	}
}

func (s *periodicStrategy) onStop(ctx context.Context, remaining []*queuedHit) {
	if len(remaining) == 0 {
		return
	}
	if err := s.cache.CacheHits(ctx, sealHits(s.migrations, remaining)); err != nil {
		s.logger.Warn("hit cache bulk write failed", slog.String("error", err.Error()))
	}
}

// noBatchingStrategy: there is no later retry loop, so a failed send is
// the only moment worth persisting.
type noBatchingStrategy struct {
	cache      cache.HitCache
	migrations *cache.Migrations
	logger     *slog.Logger
}

func (s *noBatchingStrategy) onEnqueue(context.Context, []*queuedHit) {}

func (s *noBatchingStrategy) onFlushSuccess(ctx context.Context, items []*queuedHit) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.id
	}
	if err := s.cache.FlushHits(ctx, ids); err != nil {
		s.logger.Warn("hit cache flush failed", slog.String("error", err.Error()))
	}
}

func (s *noBatchingStrategy) onFlushFailure(ctx context.Context, items []*queuedHit) {
	if err := s.cache.CacheHits(ctx, sealHits(s.migrations, items)); err != nil {
		s.logger.Warn("hit cache write failed", slog.String("error", err.Error()))
	}
}

func (s *noBatchingStrategy) onStop(ctx context.Context, remaining []*queuedHit) {
	if len(remaining) == 0 {
		return
	}
	if err := s.cache.CacheHits(ctx, sealHits(s.migrations, remaining)); err != nil {
		s.logger.Warn("hit cache write failed", slog.String("error", err.Error()))
	}
}

// nopStrategy backs managers without a hit cache.
type nopStrategy struct{}

func (nopStrategy) onEnqueue(context.Context, []*queuedHit)      {}
func (nopStrategy) onFlushSuccess(context.Context, []*queuedHit) {}
func (nopStrategy) onFlushFailure(context.Context, []*queuedHit) {}
func (nopStrategy) onStop(context.Context, []*queuedHit)         {}
