package decision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// BucketingSource is the client-resolved decision source. A background
// poller fetches the full campaign file from the CDN with a conditional GET
// and keeps the last successfully parsed model; flag resolution evaluates
// targeting and allocation locally against that model at call time.
type BucketingSource struct {
	envID     string
	apiKey    string
	url       string
	interval  time.Duration
	transport Doer
	logger    *slog.Logger
	status    *StatusMonitor

	model        atomic.Pointer[Model]
	lastModified atomic.Pointer[string]

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

var _ Source = (*BucketingSource)(nil)

// BucketingOption configures a BucketingSource.
type BucketingOption func(*BucketingSource)

// WithBucketingURL overrides the campaign file URL. The default is the CDN
// path derived from the environment id.
func WithBucketingURL(url string) BucketingOption {
	return func(s *BucketingSource) {
		if url != "" {
			s.url = url
		}
	}
}

// WithPollingInterval sets the fixed delay between campaign fetches.
// A zero or negative interval fetches once at Start and never again.
func WithPollingInterval(d time.Duration) BucketingOption {
	return func(s *BucketingSource) { s.interval = d }
}

// WithBucketingTransport sets a custom HTTP transport.
func WithBucketingTransport(d Doer) BucketingOption {
	return func(s *BucketingSource) {
		if d != nil {
			s.transport = d
		}
	}
}

// WithBucketingLogger sets the logger.
func WithBucketingLogger(l *slog.Logger) BucketingOption {
	return func(s *BucketingSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInitialModel seeds the source with a locally loaded campaign model,
// typically from a bundled file, so flags resolve before the first
// successful network fetch.
func WithInitialModel(m *Model) BucketingOption {
	return func(s *BucketingSource) {
		if m != nil {
			s.model.Store(m)
		}
	}
}

// NewBucketingSource creates a client-resolved decision source.
func NewBucketingSource(envID, apiKey string, status *StatusMonitor, opts ...BucketingOption) (*BucketingSource, error) {
	if envID == "" {
		return nil, ErrEmptyEnvID
	}
	s := &BucketingSource{
		envID:     envID,
		apiKey:    apiKey,
		url:       fmt.Sprintf("https://cdn.flagship.io/%s/bucketing.json", envID),
		interval:  60 * time.Second,
		transport: &http.Client{Timeout: 10 * time.Second},
		logger:    slog.Default(),
		status:    status,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start performs the initial fetch and, when a positive polling interval is
// configured, launches the background poller. The initial fetch is
// synchronous so that a reachable CDN yields a READY status before Start
// returns; on failure the source stays in POLLING and keeps trying.
func (s *BucketingSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true

	s.status.Set(StatusPolling)
	if err := s.poll(ctx); err != nil {
		s.logger.Warn("initial bucketing fetch failed", slog.String("error", err.Error()))
	}

	if s.interval <= 0 {
		return nil
	}

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(pollCtx)
	return nil
}

// Stop terminates the poller. Idempotent.
func (s *BucketingSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	return nil
}

func (s *BucketingSource) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.logger.Warn("bucketing poll failed, keeping last model",
					slog.String("error", err.Error()))
			}
		}
	}
}

// poll performs one conditional GET of the campaign file. A 304 or a
// transport failure leaves the last successfully fetched model in place.
func (s *BucketingSource) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("decision: build bucketing request: %w", err)
	}
	req.Header.Set(headerAPIKey, s.apiKey)
	req.Header.Set(headerSDKClient, sdkClient)
	req.Header.Set(headerSDKVersion, sdkVersion)
	if lm := s.lastModified.Load(); lm != nil {
		req.Header.Set("If-Modified-Since", *lm)
	}

	resp, err := s.transport.Do(req)
	if err != nil {
		return fmt.Errorf("decision: bucketing call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if s.model.Load() != nil {
			s.status.Set(StatusReady)
		}
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("decision: read bucketing response: %w", err)
	}
	model, err := ParseModel(raw, s.logger)
	if err != nil {
		return err
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		s.lastModified.Store(&lm)
	}
	s.model.Store(model)

	if model.Panic {
		s.status.Set(StatusPanic)
	} else {
		s.status.Set(StatusReady)
	}
	s.logger.Debug("campaign model updated",
		slog.Int("campaigns", len(model.Campaigns)),
		slog.Bool("panic", model.Panic))
	return nil
}

// Model returns the current campaign model snapshot, or nil before the
// first successful fetch.
func (s *BucketingSource) Model() *Model {
	return s.model.Load()
}

// GetModifications buckets the visitor against the current campaign model.
// For each campaign the variation groups are walked in order and the first
// group whose targeting matches is used for allocation; later groups of the
// same campaign are not considered.
func (s *BucketingSource) GetModifications(ctx context.Context, visitor VisitorInfo) (*Resolution, error) {
	model := s.model.Load()
	if model == nil {
		return nil, ErrNoModel
	}
	if model.Panic {
		s.status.Set(StatusPanic)
		return &Resolution{Assignments: map[string]string{}}, nil
	}

	res := &Resolution{Assignments: map[string]string{}}
	for ci := range model.Campaigns {
		c := &model.Campaigns[ci]
		for gi := range c.VariationGroups {
			g := &c.VariationGroups[gi]
			if !g.Targeting.Match(visitor.VisitorID, visitor.Context) {
				continue
			}
			variation, isNew := SelectVariation(g, visitor.VisitorID, visitor.Assignments)
			if variation != nil {
				res.Modifications = append(res.Modifications, modificationsOf(c, g, variation)...)
				if isNew {
					res.Assignments[g.ID] = variation.ID
				}
			}
			break
		}
	}
	return res, nil
}
