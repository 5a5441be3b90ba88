package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// APISource is the server-resolved decision source: targeting and
// allocation happen on the decision endpoint, the response carries the
// already-assigned variation per campaign.
type APISource struct {
	envID     string
	apiKey    string
	url       string
	transport Doer
	logger    *slog.Logger
	status    *StatusMonitor
}

var _ Source = (*APISource)(nil)

// APIOption configures an APISource.
type APIOption func(*APISource)

// WithAPIURL overrides the decision endpoint base URL.
func WithAPIURL(url string) APIOption {
	return func(s *APISource) {
		if url != "" {
			s.url = url
		}
	}
}

// WithAPITransport sets a custom HTTP transport.
func WithAPITransport(d Doer) APIOption {
	return func(s *APISource) {
		if d != nil {
			s.transport = d
		}
	}
}

// WithAPILogger sets the logger.
func WithAPILogger(l *slog.Logger) APIOption {
	return func(s *APISource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewAPISource creates a server-resolved decision source.
func NewAPISource(envID, apiKey string, status *StatusMonitor, opts ...APIOption) (*APISource, error) {
	if envID == "" {
		return nil, ErrEmptyEnvID
	}
	s := &APISource{
		envID:     envID,
		apiKey:    apiKey,
		url:       "https://decision.flagship.io/v2",
		transport: &http.Client{Timeout: 10 * time.Second},
		logger:    slog.Default(),
		status:    status,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start marks the source ready. The API mode has no background work.
func (s *APISource) Start(ctx context.Context) error {
	s.status.Set(StatusReady)
	return nil
}

// Stop is a no-op for the API mode.
func (s *APISource) Stop() error { return nil }

type apiRequest struct {
	VisitorID   string         `json:"visitorId"`
	AnonymousID *string        `json:"anonymousId"`
	Context     map[string]any `json:"context"`
	TriggerHit  bool           `json:"trigger_hit"`
}

type apiResponse struct {
	Panic     bool          `json:"panic"`
	Campaigns []apiCampaign `json:"campaigns"`
}

type apiCampaign struct {
	ID               string       `json:"id"`
	Type             string       `json:"type"`
	Slug             string       `json:"slug"`
	VariationGroupID string       `json:"variationGroupId"`
	Variation        apiVariation `json:"variation"`
}

type apiVariation struct {
	ID            string        `json:"id"`
	Reference     bool          `json:"reference"`
	Modifications Modifications `json:"modifications"`
}

// GetModifications posts the visitor to the decision endpoint and parses
// the server-assigned variations. A panic flag in the response switches the
// global status to PANIC; its absence switches back to READY.
func (s *APISource) GetModifications(ctx context.Context, visitor VisitorInfo) (*Resolution, error) {
	payload := apiRequest{
		VisitorID: visitor.VisitorID,
		Context:   visitor.Context,
	}
	if visitor.AnonymousID != "" {
		payload.AnonymousID = &visitor.AnonymousID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decision: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/campaigns?exposeAllKeys=true", s.url, s.envID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, s.apiKey)
	req.Header.Set(headerSDKClient, sdkClient)
	req.Header.Set(headerSDKVersion, sdkVersion)

	resp, err := s.transport.Do(req)
	if err != nil {
		return nil, fmt.Errorf("decision: campaigns call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decision: read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	if parsed.Panic {
		s.status.Set(StatusPanic)
		return &Resolution{Assignments: map[string]string{}}, nil
	}
	s.status.Set(StatusReady)

	res := &Resolution{Assignments: make(map[string]string, len(parsed.Campaigns))}
	for _, c := range parsed.Campaigns {
		campaign := Campaign{ID: c.ID, Type: c.Type, Slug: c.Slug}
		group := VariationGroup{ID: c.VariationGroupID}
		variation := Variation{
			ID:            c.Variation.ID,
			Reference:     c.Variation.Reference,
			Modifications: c.Variation.Modifications,
		}
		res.Modifications = append(res.Modifications, modificationsOf(&campaign, &group, &variation)...)
		res.Assignments[c.VariationGroupID] = c.Variation.ID
	}
	return res, nil
}
