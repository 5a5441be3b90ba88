package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/flagship-io/flagship-go/pkg/cache"
	"github.com/flagship-io/flagship-go/pkg/decision"
)

// Doer is the outbound HTTP transport used for hit delivery. *http.Client
// satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the tracking manager settings. Zero values fall back to the
// documented defaults.
type Config struct {
	EnvID         string
	APIKey        string
	EventsURL     string
	ActivationURL string
	BatchInterval time.Duration
	MaxPoolSize   int
	Strategy      CacheStrategy
	LookupTimeout time.Duration
	HitExpiration time.Duration
}

func (c Config) withDefaults() Config {
	if c.EventsURL == "" {
		c.EventsURL = "https://events.flagship.io"
	}
	if c.ActivationURL == "" {
		c.ActivationURL = "https://decision.flagship.io/v2/activate"
	}
	if c.BatchInterval == 0 {
		c.BatchInterval = 10 * time.Second
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 20
	}
	if c.Strategy == "" {
		c.Strategy = StrategyContinuous
	}
	if c.LookupTimeout == 0 {
		c.LookupTimeout = 200 * time.Millisecond
	}
	if c.HitExpiration == 0 {
		c.HitExpiration = DefaultHitExpiration
	}
	return c
}

// Manager owns the outgoing hit queues, the caching strategy and the
// batching loop. All methods are safe for concurrent use.
type Manager struct {
	cfg        Config
	logger     *slog.Logger
	status     func() decision.Status
	hitCache   cache.HitCache
	migrations *cache.Migrations
	transport  Doer

	queue       *fifo
	activations *fifo
	strategy    cachingStrategy

	// sem bounds concurrent outbound sends so callers never block on
	// network I/O and the host is never flooded with goroutines.
	sem chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	runCtx  context.Context
	wg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithHitCache plugs in the host-supplied hit cache. Without one, hits do
// not survive a restart and the caching strategy degrades to a no-op.
func WithHitCache(hc cache.HitCache) Option {
	return func(m *Manager) { m.hitCache = hc }
}

// WithTransport sets a custom HTTP transport.
func WithTransport(d Doer) Option {
	return func(m *Manager) {
		if d != nil {
			m.transport = d
		}
	}
}

// WithStatus wires the global SDK status so the manager can reject work in
// panic mode.
func WithStatus(status func() decision.Status) Option {
	return func(m *Manager) {
		if status != nil {
			m.status = status
		}
	}
}

// New creates a tracking manager. Call Start to drain the hit cache and
// begin the batching loop.
func New(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:         cfg.withDefaults(),
		logger:      slog.Default(),
		status:      func() decision.Status { return decision.StatusReady },
		transport:   &http.Client{Timeout: 10 * time.Second},
		migrations:  HitMigrations(),
		queue:       &fifo{},
		activations: &fifo{},
		strategy:    nopStrategy{},
		sem:         make(chan struct{}, 2*runtime.GOMAXPROCS(0)),
		runCtx:      context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start selects the caching strategy, drains previously cached hits into
// the queues and launches the batching loop. Calling Start twice is a
// no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	m.started = true

	if m.hitCache != nil {
		switch m.cfg.Strategy {
		case StrategyPeriodic:
			m.strategy = &periodicStrategy{cache: m.hitCache, migrations: m.migrations, logger: m.logger}
		case StrategyNoBatching:
			m.strategy = &noBatchingStrategy{cache: m.hitCache, migrations: m.migrations, logger: m.logger}
		default:
			m.strategy = &continuousStrategy{cache: m.hitCache, migrations: m.migrations, logger: m.logger}
		}
		m.restoreCachedHits(ctx)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.runCtx = runCtx
	m.cancel = cancel

	if m.cfg.Strategy != StrategyNoBatching && m.cfg.BatchInterval > 0 {
		done := make(chan struct{})
		m.done = done
		go m.run(runCtx, done)
	}
	return nil
}

// restoreCachedHits drains the hit cache so pending hits from a previous
// process get another delivery attempt. Expired and unreadable records are
// flushed from the cache and dropped.
func (m *Manager) restoreCachedHits(ctx context.Context) {
	lookupCtx, cancel := context.WithTimeout(ctx, m.cfg.LookupTimeout)
	defer cancel()

	records, err := m.hitCache.LookupHits(lookupCtx)
	if err != nil {
		m.logger.Warn("hit cache lookup failed", slog.String("error", err.Error()))
		return
	}

	var discard []string
	restored := 0
	for id, raw := range records {
		item, err := openHit(m.migrations, id, raw, m.cfg.HitExpiration)
		if err != nil {
			m.logger.Warn("dropping unreadable cached hit",
				slog.String("hit_id", id),
				slog.String("error", err.Error()))
			discard = append(discard, id)
			continue
		}
		if item == nil {
			discard = append(discard, id)
			continue
		}
		if item.hit.Type() == HitTypeActivation {
			m.activations.push(item)
		} else {
			m.queue.push(item)
		}
		restored++
	}
	if len(discard) > 0 {
		if err := m.hitCache.FlushHits(ctx, discard); err != nil {
			m.logger.Warn("hit cache flush failed", slog.String("error", err.Error()))
		}
	}
	if restored > 0 {
		m.logger.Info("restored cached hits", slog.Int("count", restored))
	}
}

// Stop cancels the batching loop, runs the closing strategy on whatever is
// still queued and clears both queues. Idempotent and safe to call from a
// shutdown path while sends are in flight.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	cancel := m.cancel
	done := m.done
	strategy := m.strategy
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	// Let in-flight sends finish; their HTTP timeouts bound the wait.
	m.wg.Wait()

	ctx, cancelStop := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStop()
	remaining := append(m.queue.drain(), m.activations.drain()...)
	strategy.onStop(ctx, remaining)
	return nil
}

// FlushCachedHits discards every queued hit and wipes the hit cache. It
// backs consent revocation, where locally retained traces must not outlive
// the visitor's decision.
func (m *Manager) FlushCachedHits(ctx context.Context) error {
	m.queue.drain()
	m.activations.drain()
	if m.hitCache == nil {
		return nil
	}
	if err := m.hitCache.FlushAllHits(ctx); err != nil {
		m.logger.Warn("hit cache flush failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// snapshot reads the lifecycle fields Start mutates so enqueue paths never
// race a concurrent Start.
func (m *Manager) snapshot() (context.Context, cachingStrategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCtx, m.strategy
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.BatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.flushQueue(ctx)
			m.flushActivations(ctx)
		}
	}
}

// Add validates and enqueues a hit. Invalid hits are dropped with an
// error; valid Activation hits are sent immediately instead of waiting for
// the batch window; reaching the pool size triggers an early flush. In
// panic mode Add is a logged no-op.
func (m *Manager) Add(hit Hit) error {
	if m.status() == decision.StatusPanic {
		m.logger.Warn("hit dropped, sdk is in panic mode", slog.String("type", string(hit.Type())))
		return ErrPanicking
	}
	if err := hit.Validate(); err != nil {
		m.logger.Warn("invalid hit dropped",
			slog.String("type", string(hit.Type())),
			slog.String("error", err.Error()))
		return err
	}
	if oversized(hit) {
		m.logger.Warn("oversized hit dropped", slog.String("type", string(hit.Type())))
		return ErrHitTooLarge
	}

	item := newQueuedHit(hit)
	runCtx, strategy := m.snapshot()

	if hit.Type() == HitTypeActivation {
		m.activations.push(item)
		strategy.onEnqueue(runCtx, []*queuedHit{item})
		m.spawn(runCtx, func(ctx context.Context) { m.flushActivations(ctx) })
		return nil
	}

	m.queue.push(item)
	strategy.onEnqueue(runCtx, []*queuedHit{item})

	switch {
	case m.cfg.Strategy == StrategyNoBatching:
		m.spawn(runCtx, func(ctx context.Context) { m.flushQueue(ctx) })
	case m.queue.len() >= m.cfg.MaxPoolSize:
		m.spawn(runCtx, func(ctx context.Context) { m.flushQueue(ctx) })
	}
	return nil
}

// spawn runs fn on a tracked goroutine bound to the manager lifecycle.
func (m *Manager) spawn(ctx context.Context, fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(ctx)
	}()
}

// flushQueue folds the general queue into one batch within the byte
// ceiling and sends it. Hits beyond the ceiling stay queued for the next
// cycle; on delivery failure everything is requeued in order.
func (m *Manager) flushQueue(ctx context.Context) {
	if m.status() == decision.StatusPanic {
		return
	}
	items := m.queue.drain()
	if len(items) == 0 {
		return
	}
	_, strategy := m.snapshot()

	bodies := make([]map[string]any, 0, len(items))
	sent := items[:0:0]
	size := 0
	for i, item := range items {
		body := item.hit.Body()
		raw, err := json.Marshal(body)
		if err != nil {
			m.logger.Warn("unserializable hit dropped", slog.String("hit_id", item.id))
			continue
		}
		if size+len(raw) > maxHitByteSize && len(bodies) > 0 {
			m.queue.requeueFront(items[i:])
			break
		}
		size += len(raw)
		bodies = append(bodies, body)
		sent = append(sent, item)
	}
	if len(bodies) == 0 {
		return
	}

	batch := map[string]any{
		"t":   string(HitTypeBatch),
		"ds":  "APP",
		"cid": m.cfg.EnvID,
		"h":   bodies,
	}
	if err := m.post(ctx, m.cfg.EventsURL, batch); err != nil {
		m.logger.Warn("batch delivery failed, requeueing",
			slog.Int("hits", len(sent)),
			slog.String("error", err.Error()))
		m.queue.requeueFront(sent)
		strategy.onFlushFailure(ctx, sent)
		return
	}
	m.logger.Debug("batch delivered", slog.Int("hits", len(sent)))
	strategy.onFlushSuccess(ctx, sent)
}

// flushActivations posts every pending activation to the exposure
// endpoint. Failed activations are requeued individually.
func (m *Manager) flushActivations(ctx context.Context) {
	if m.status() == decision.StatusPanic {
		return
	}
	items := m.activations.drain()
	if len(items) == 0 {
		return
	}
	_, strategy := m.snapshot()

	var failed, delivered []*queuedHit
	for _, item := range items {
		// Restored hits hand out their shared payload map, so cid goes
		// into a copy to keep re-seals of the cached record clean.
		src := item.hit.Body()
		body := make(map[string]any, len(src)+1)
		for k, val := range src {
			body[k] = val
		}
		body["cid"] = m.cfg.EnvID
		if err := m.post(ctx, m.cfg.ActivationURL, body); err != nil {
			m.logger.Warn("activation delivery failed, requeueing",
				slog.String("hit_id", item.id),
				slog.String("error", err.Error()))
			failed = append(failed, item)
			continue
		}
		delivered = append(delivered, item)
	}
	m.activations.requeueFront(failed)
	if len(failed) > 0 {
		strategy.onFlushFailure(ctx, failed)
	}
	if len(delivered) > 0 {
		strategy.onFlushSuccess(ctx, delivered)
	}
}

// post sends one JSON payload, bounded by the send semaphore. Success is
// any 2xx status.
func (m *Manager) post(ctx context.Context, url string, payload map[string]any) error {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("tracking: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("tracking: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set("x-api-key", m.cfg.APIKey)
	}

	resp, err := m.transport.Do(req)
	if err != nil {
		return fmt.Errorf("tracking: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 204 {
		return fmt.Errorf("tracking: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// QueueSize reports the number of pending general hits, mostly for tests
// and diagnostics.
func (m *Manager) QueueSize() int { return m.queue.len() }

// PendingActivations reports the number of pending activation hits.
func (m *Manager) PendingActivations() int { return m.activations.len() }
