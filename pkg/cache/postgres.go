package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCache implements both cache contracts on two small key/value
// tables. The tables are created on first use, so a dedicated migration
// step is not required of the host.
type PostgresCache struct {
	pool *pgxpool.Pool
}

var (
	_ VisitorCache = (*PostgresCache)(nil)
	_ HitCache     = (*PostgresCache)(nil)
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS fs_visitor_cache (
	visitor_id TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS fs_hit_cache (
	hit_id     TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// NewPostgresCache wraps an existing pgx pool and ensures the cache tables
// exist.
func NewPostgresCache(ctx context.Context, pool *pgxpool.Pool) (*PostgresCache, error) {
	if pool == nil {
		return nil, ErrNilClient
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("cache: create tables: %w", err)
	}
	return &PostgresCache{pool: pool}, nil
}

func (c *PostgresCache) CacheVisitor(ctx context.Context, visitorID string, data []byte) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO fs_visitor_cache (visitor_id, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (visitor_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		visitorID, data)
	return err
}

func (c *PostgresCache) LookupVisitor(ctx context.Context, visitorID string) ([]byte, error) {
	var payload []byte
	err := c.pool.QueryRow(ctx,
		`SELECT payload FROM fs_visitor_cache WHERE visitor_id = $1`,
		visitorID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return payload, err
}

func (c *PostgresCache) FlushVisitor(ctx context.Context, visitorID string) error {
	_, err := c.pool.Exec(ctx,
		`DELETE FROM fs_visitor_cache WHERE visitor_id = $1`, visitorID)
	return err
}

func (c *PostgresCache) CacheHits(ctx context.Context, hits map[string][]byte) error {
	if len(hits) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for id, data := range hits {
		batch.Queue(
			`INSERT INTO fs_hit_cache (hit_id, payload)
			 VALUES ($1, $2)
			 ON CONFLICT (hit_id) DO UPDATE SET payload = EXCLUDED.payload`,
			id, data)
	}
	return c.pool.SendBatch(ctx, batch).Close()
}

func (c *PostgresCache) LookupHits(ctx context.Context) (map[string][]byte, error) {
	rows, err := c.pool.Query(ctx, `SELECT hit_id, payload FROM fs_hit_cache`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		out[id] = payload
	}
	return out, rows.Err()
}

func (c *PostgresCache) FlushHits(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.pool.Exec(ctx,
		`DELETE FROM fs_hit_cache WHERE hit_id = ANY($1)`, ids)
	return err
}

func (c *PostgresCache) FlushAllHits(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM fs_hit_cache`)
	return err
}
