package decision_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagship-io/flagship-go/pkg/decision"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestParseModel(t *testing.T) {
	t.Parallel()

	t.Run("FullPayload", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{
			"panic": false,
			"campaigns": [{
				"id": "c1",
				"type": "ab",
				"slug": "checkout-test",
				"variationGroups": [{
					"id": "vg1",
					"targeting": {"targetingGroups": [{"targetings": [
						{"key": "fs_all_users", "operator": "EQUALS", "value": ""}
					]}]},
					"variations": [
						{"id": "v1", "reference": true, "allocation": 50,
						 "modifications": {"type": "FLAG", "value": {"btn": "blue"}}},
						{"id": "v2", "allocation": 50,
						 "modifications": {"type": "FLAG", "value": {"btn": "red"}}}
					]
				}]
			}]
		}`)
		model, err := decision.ParseModel(payload, nil)
		require.NoError(t, err)
		assert.False(t, model.Panic)
		require.Len(t, model.Campaigns, 1)
		c := model.Campaigns[0]
		assert.Equal(t, "c1", c.ID)
		assert.Equal(t, "checkout-test", c.Slug)
		require.Len(t, c.VariationGroups, 1)
		require.Len(t, c.VariationGroups[0].Variations, 2)
		assert.True(t, c.VariationGroups[0].Variations[0].Reference)
		assert.Equal(t, "blue", c.VariationGroups[0].Variations[0].Modifications.Value["btn"])
		assert.False(t, model.FetchedAt.IsZero())
	})

	t.Run("PanicFlag", func(t *testing.T) {
		t.Parallel()
		model, err := decision.ParseModel([]byte(`{"panic": true, "campaigns": []}`), nil)
		require.NoError(t, err)
		assert.True(t, model.Panic)
		assert.Empty(t, model.Campaigns)
	})

	t.Run("MalformedEnvelope", func(t *testing.T) {
		t.Parallel()
		_, err := decision.ParseModel([]byte(`{"campaigns": "nope"`), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, decision.ErrInvalidResponse)
	})

	t.Run("MalformedCampaignIsSkipped", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{"campaigns": [
			{"id": "good", "variationGroups": []},
			"not-an-object",
			{"variationGroups": []}
		]}`)
		model, err := decision.ParseModel(payload, nil)
		require.NoError(t, err)
		require.Len(t, model.Campaigns, 1)
		assert.Equal(t, "good", model.Campaigns[0].ID)
	})

	t.Run("InvalidVariationsAreDropped", func(t *testing.T) {
		t.Parallel()
		payload := []byte(`{"campaigns": [{
			"id": "c1",
			"variationGroups": [
				{"id": "", "variations": []},
				{"id": "vg1", "variations": [
					{"id": "", "allocation": 50},
					{"id": "v-over", "allocation": 150},
					{"id": "v-neg", "allocation": -5},
					{"id": "v-ok", "allocation": 100}
				]}
			]
		}]}`)
		model, err := decision.ParseModel(payload, nil)
		require.NoError(t, err)
		require.Len(t, model.Campaigns, 1)
		groups := model.Campaigns[0].VariationGroups
		require.Len(t, groups, 1)
		require.Len(t, groups[0].Variations, 1)
		assert.Equal(t, "v-ok", groups[0].Variations[0].ID)
	})
}

func TestLoadModelFile(t *testing.T) {
	t.Parallel()

	t.Run("YAML", func(t *testing.T) {
		t.Parallel()
		path := t.TempDir() + "/campaigns.yaml"
		content := `
panic: false
campaigns:
  - id: c1
    type: toggle
    variationGroups:
      - id: vg1
        variations:
          - id: v1
            allocation: 100
            modifications:
              type: FLAG
              value:
                enabled: true
`
		require.NoError(t, writeFile(path, content))
		model, err := decision.LoadModelFile(path, nil)
		require.NoError(t, err)
		require.Len(t, model.Campaigns, 1)
		assert.Equal(t, true, model.Campaigns[0].VariationGroups[0].Variations[0].Modifications.Value["enabled"])
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()
		path := t.TempDir() + "/campaigns.json"
		require.NoError(t, writeFile(path, `{"campaigns": [{"id": "c1", "variationGroups": []}]}`))
		model, err := decision.LoadModelFile(path, nil)
		require.NoError(t, err)
		require.Len(t, model.Campaigns, 1)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()
		_, err := decision.LoadModelFile(t.TempDir()+"/nope.json", nil)
		require.Error(t, err)
	})
}
