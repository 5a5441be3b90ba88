package decision_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagship-io/flagship-go/pkg/decision"
)

func TestAPISource(t *testing.T) {
	t.Parallel()

	t.Run("GetModifications", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/env-1/campaigns", r.URL.Path)
			assert.Equal(t, "true", r.URL.Query().Get("exposeAllKeys"))
			assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
			assert.Equal(t, "go", r.Header.Get("x-sdk-client"))
			assert.NotEmpty(t, r.Header.Get("x-sdk-version"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "visitor-1", body["visitorId"])
			assert.Equal(t, "anon-1", body["anonymousId"])
			assert.Equal(t, false, body["trigger_hit"])
			assert.Equal(t, map[string]any{"plan": "gold"}, body["context"])

			_, _ = w.Write([]byte(`{
				"panic": false,
				"campaigns": [{
					"id": "c1",
					"type": "ab",
					"slug": "checkout",
					"variationGroupId": "vg1",
					"variation": {
						"id": "v1",
						"reference": false,
						"modifications": {"type": "FLAG", "value": {"btn": "red", "size": 12}}
					}
				}]
			}`))
		}))
		t.Cleanup(srv.Close)

		monitor := decision.NewStatusMonitor(nil)
		src, err := decision.NewAPISource("env-1", "key-1", monitor, decision.WithAPIURL(srv.URL))
		require.NoError(t, err)
		require.NoError(t, src.Start(context.Background()))

		res, err := src.GetModifications(context.Background(), decision.VisitorInfo{
			VisitorID:   "visitor-1",
			AnonymousID: "anon-1",
			Context:     map[string]any{"plan": "gold"},
		})
		require.NoError(t, err)
		assert.Equal(t, decision.StatusReady, monitor.Current())

		require.Len(t, res.Modifications, 2)
		byKey := map[string]decision.Modification{}
		for _, mod := range res.Modifications {
			byKey[mod.Key] = mod
		}
		assert.Equal(t, "red", byKey["btn"].Value)
		assert.Equal(t, float64(12), byKey["size"].Value)
		assert.Equal(t, "c1", byKey["btn"].CampaignID)
		assert.Equal(t, "checkout", byKey["btn"].Slug)
		assert.Equal(t, "vg1", byKey["btn"].VariationGroupID)
		assert.Equal(t, "v1", byKey["btn"].VariationID)
		assert.Equal(t, map[string]string{"vg1": "v1"}, res.Assignments)
	})

	t.Run("PanicResponse", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"panic": true, "campaigns": []}`))
		}))
		t.Cleanup(srv.Close)

		monitor := decision.NewStatusMonitor(nil)
		src, err := decision.NewAPISource("env-1", "key-1", monitor, decision.WithAPIURL(srv.URL))
		require.NoError(t, err)

		res, err := src.GetModifications(context.Background(), decision.VisitorInfo{VisitorID: "v"})
		require.NoError(t, err)
		assert.Empty(t, res.Modifications)
		assert.Equal(t, decision.StatusPanic, monitor.Current())
	})

	t.Run("PanicClearsOnNextFetch", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"panic": false, "campaigns": []}`))
		}))
		t.Cleanup(srv.Close)

		monitor := decision.NewStatusMonitor(nil)
		monitor.Set(decision.StatusPanic)
		src, err := decision.NewAPISource("env-1", "key-1", monitor, decision.WithAPIURL(srv.URL))
		require.NoError(t, err)

		_, err = src.GetModifications(context.Background(), decision.VisitorInfo{VisitorID: "v"})
		require.NoError(t, err)
		assert.Equal(t, decision.StatusReady, monitor.Current())
	})

	t.Run("ServerError", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)

		src, err := decision.NewAPISource("env-1", "key-1", decision.NewStatusMonitor(nil),
			decision.WithAPIURL(srv.URL))
		require.NoError(t, err)

		_, err = src.GetModifications(context.Background(), decision.VisitorInfo{VisitorID: "v"})
		assert.ErrorIs(t, err, decision.ErrUnexpectedStatus)
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		t.Cleanup(srv.Close)

		src, err := decision.NewAPISource("env-1", "key-1", decision.NewStatusMonitor(nil),
			decision.WithAPIURL(srv.URL))
		require.NoError(t, err)

		_, err = src.GetModifications(context.Background(), decision.VisitorInfo{VisitorID: "v"})
		assert.ErrorIs(t, err, decision.ErrInvalidResponse)
	})

	t.Run("EmptyEnvID", func(t *testing.T) {
		t.Parallel()
		_, err := decision.NewAPISource("", "key", decision.NewStatusMonitor(nil))
		assert.ErrorIs(t, err, decision.ErrEmptyEnvID)
	})
}
