package cache

import "context"

// VisitorCache persists one serialized snapshot per visitor so context,
// assignment history and activation bookkeeping survive process restarts.
// A lookup miss is (nil, nil), not an error.
type VisitorCache interface {
	CacheVisitor(ctx context.Context, visitorID string, data []byte) error
	LookupVisitor(ctx context.Context, visitorID string) ([]byte, error)
	FlushVisitor(ctx context.Context, visitorID string) error
}

// HitCache persists pending analytics hits keyed by hit id so they can be
// resent after a restart. LookupHits returns an empty map on miss.
type HitCache interface {
	CacheHits(ctx context.Context, hits map[string][]byte) error
	LookupHits(ctx context.Context) (map[string][]byte, error)
	FlushHits(ctx context.Context, ids []string) error
	FlushAllHits(ctx context.Context) error
}
