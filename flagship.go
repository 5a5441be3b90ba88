package flagship

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/flagship-io/flagship-go/pkg/cache"
	"github.com/flagship-io/flagship-go/pkg/config"
	"github.com/flagship-io/flagship-go/pkg/decision"
	"github.com/flagship-io/flagship-go/pkg/logger"
	"github.com/flagship-io/flagship-go/pkg/tracking"
	"github.com/flagship-io/flagship-go/pkg/visitor"
)

// Client is the SDK engine: one value holding every piece of shared state,
// handed by reference to the visitor sessions it creates. Status changes
// are atomic swaps observed by all visitors; the campaign model is an
// immutable snapshot replaced wholesale on fetch.
type Client struct {
	cfg     config.Config
	log     *slog.Logger
	status  *decision.StatusMonitor
	source  decision.Source
	tracker *tracking.Manager

	visitorCache cache.VisitorCache
	hitCache     cache.HitCache
	transport    *http.Client

	statusCallback func(decision.Status)
	initialModel   *decision.Model

	mu      sync.Mutex
	started bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger replaces the default SDK logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithVisitorCache plugs in a host-supplied visitor cache so sessions
// survive process restarts.
func WithVisitorCache(vc cache.VisitorCache) Option {
	return func(c *Client) { c.visitorCache = vc }
}

// WithHitCache plugs in a host-supplied hit cache so pending hits survive
// process restarts.
func WithHitCache(hc cache.HitCache) Option {
	return func(c *Client) { c.hitCache = hc }
}

// WithHTTPClient replaces the outbound transport used for decision and
// tracking calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.transport = hc
		}
	}
}

// WithStatusCallback registers a callback fired on every effective status
// transition. Transitions to the status already held do not fire it.
func WithStatusCallback(fn func(decision.Status)) Option {
	return func(c *Client) { c.statusCallback = fn }
}

// WithInitialModel seeds the bucketing source with a locally loaded
// campaign model (see decision.LoadModelFile), so flags resolve offline
// before the first poll succeeds. Ignored in API mode.
func WithInitialModel(m *decision.Model) Option {
	return func(c *Client) { c.initialModel = m }
}

// New validates the configuration and assembles the engine. The client is
// inert until Start.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg: cfg,
		log: logger.New(),
	}
	// Default persistence is in-memory; hosts swap in a durable store
	// through the options.
	mem := cache.NewMemoryCache()
	c.visitorCache = mem
	c.hitCache = mem
	c.transport = &http.Client{Timeout: cfg.Timeout}

	for _, opt := range opts {
		opt(c)
	}

	c.status = decision.NewStatusMonitor(func(s decision.Status) {
		c.log.Info("sdk status changed", slog.String("status", s.String()))
		if c.statusCallback != nil {
			c.statusCallback(s)
		}
	})

	source, err := c.buildSource()
	if err != nil {
		return nil, err
	}
	c.source = source

	c.tracker = tracking.New(tracking.Config{
		EnvID:         cfg.EnvID,
		APIKey:        cfg.APIKey,
		EventsURL:     cfg.EventsURL,
		ActivationURL: cfg.ActivationURL,
		BatchInterval: cfg.BatchInterval,
		MaxPoolSize:   cfg.MaxPoolSize,
		Strategy:      tracking.CacheStrategy(cfg.CacheStrategy),
		LookupTimeout: cfg.CacheLookupTimeout,
		HitExpiration: cfg.HitExpiration,
	},
		tracking.WithLogger(c.log),
		tracking.WithHitCache(c.hitCache),
		tracking.WithTransport(c.transport),
		tracking.WithStatus(c.status.Current),
	)

	return c, nil
}

func (c *Client) buildSource() (decision.Source, error) {
	switch c.cfg.DecisionMode {
	case config.ModeBucketing:
		opts := []decision.BucketingOption{
			decision.WithPollingInterval(c.cfg.PollingInterval),
			decision.WithBucketingTransport(c.transport),
			decision.WithBucketingLogger(c.log),
		}
		if c.cfg.BucketingURL != "" {
			opts = append(opts, decision.WithBucketingURL(c.cfg.BucketingURL))
		}
		if c.initialModel != nil {
			opts = append(opts, decision.WithInitialModel(c.initialModel))
		}
		return decision.NewBucketingSource(c.cfg.EnvID, c.cfg.APIKey, c.status, opts...)
	case config.ModeAPI:
		return decision.NewAPISource(c.cfg.EnvID, c.cfg.APIKey, c.status,
			decision.WithAPIURL(c.cfg.DecisionURL),
			decision.WithAPITransport(c.transport),
			decision.WithAPILogger(c.log),
		)
	default:
		return nil, fmt.Errorf("flagship: unsupported decision mode %q", c.cfg.DecisionMode)
	}
}

// Start brings the decision source and the tracking manager up. Calling
// Start twice is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	if err := c.source.Start(ctx); err != nil {
		return err
	}
	if err := c.tracker.Start(ctx); err != nil {
		_ = c.source.Stop()
		return err
	}
	c.started = true
	return nil
}

// Stop shuts the engine down gracefully: the tracking manager runs its
// closing strategy on pending hits, then the decision source stops
// polling. Idempotent.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.started = false
	trackerErr := c.tracker.Stop()
	sourceErr := c.source.Stop()
	if trackerErr != nil {
		return trackerErr
	}
	return sourceErr
}

// Status returns the current global SDK status.
func (c *Client) Status() decision.Status {
	return c.status.Current()
}

// NewVisitor creates a visitor session bound to this client's shared
// state. An empty id gets a generated UUID.
func (c *Client) NewVisitor(visitorID string, opts ...visitor.Option) *visitor.Visitor {
	return visitor.New(visitor.Deps{
		Status:        c.status.Current,
		Source:        c.source,
		Tracking:      c.tracker,
		Cache:         c.visitorCache,
		Migrations:    visitor.Migrations(),
		Logger:        c.log,
		LookupTimeout: c.cfg.CacheLookupTimeout,
		ContextSync:   c.cfg.DecisionMode == config.ModeBucketing,
	}, visitorID, opts...)
}
