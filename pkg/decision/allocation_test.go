package decision_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagship-io/flagship-go/pkg/decision"
)

func twoArmGroup() *decision.VariationGroup {
	return &decision.VariationGroup{
		ID: "vg-1",
		Variations: []decision.Variation{
			{ID: "v-control", Reference: true, Allocation: 50},
			{ID: "v-treatment", Allocation: 50},
		},
	}
}

func TestSelectVariation(t *testing.T) {
	t.Parallel()

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		group := twoArmGroup()
		first, isNew := decision.SelectVariation(group, "visitor-42", nil)
		require.NotNil(t, first)
		assert.True(t, isNew)

		for i := 0; i < 10; i++ {
			again, isNew := decision.SelectVariation(group, "visitor-42", nil)
			require.NotNil(t, again)
			assert.True(t, isNew)
			assert.Equal(t, first.ID, again.ID)
		}
	})

	t.Run("StickyAssignmentWins", func(t *testing.T) {
		t.Parallel()
		group := twoArmGroup()
		fresh, _ := decision.SelectVariation(group, "visitor-42", nil)
		require.NotNil(t, fresh)

		// Pin the visitor to the other arm; the hash must not be consulted.
		other := "v-control"
		if fresh.ID == other {
			other = "v-treatment"
		}
		history := map[string]string{"vg-1": other}
		v, isNew := decision.SelectVariation(group, "visitor-42", history)
		require.NotNil(t, v)
		assert.False(t, isNew)
		assert.Equal(t, other, v.ID)
	})

	t.Run("RemovedVariationExcludesVisitor", func(t *testing.T) {
		t.Parallel()
		group := twoArmGroup()
		history := map[string]string{"vg-1": "v-deleted"}
		v, isNew := decision.SelectVariation(group, "visitor-42", history)
		assert.Nil(t, v)
		assert.False(t, isNew)
	})

	t.Run("ZeroAllocationNeverSelected", func(t *testing.T) {
		t.Parallel()
		group := &decision.VariationGroup{
			ID: "vg-zero",
			Variations: []decision.Variation{
				{ID: "v-off", Allocation: 0},
				{ID: "v-on", Allocation: 100},
			},
		}
		for i := 0; i < 100; i++ {
			v, _ := decision.SelectVariation(group, fmt.Sprintf("visitor-%d", i), nil)
			require.NotNil(t, v)
			assert.Equal(t, "v-on", v.ID)
		}
	})

	t.Run("PartialAllocationExcludesRemainder", func(t *testing.T) {
		t.Parallel()
		group := &decision.VariationGroup{
			ID: "vg-partial",
			Variations: []decision.Variation{
				{ID: "v-a", Allocation: 10},
			},
		}
		selected := 0
		const n = 10_000
		for i := 0; i < n; i++ {
			if v, _ := decision.SelectVariation(group, fmt.Sprintf("visitor-%d", i), nil); v != nil {
				selected++
			}
		}
		// ~10% of buckets fall under the single arm.
		assert.InDelta(t, n/10, selected, 300)
	})

	t.Run("FairSplit", func(t *testing.T) {
		t.Parallel()
		group := twoArmGroup()
		counts := map[string]int{}
		const n = 10_000
		for i := 0; i < n; i++ {
			v, _ := decision.SelectVariation(group, fmt.Sprintf("visitor-%d", i), nil)
			require.NotNil(t, v)
			counts[v.ID]++
		}
		assert.InDelta(t, n/2, counts["v-control"], 300)
		assert.InDelta(t, n/2, counts["v-treatment"], 300)
	})

	t.Run("DifferentGroupsHashIndependently", func(t *testing.T) {
		t.Parallel()
		a := twoArmGroup()
		b := twoArmGroup()
		b.ID = "vg-2"
		diverged := false
		for i := 0; i < 200; i++ {
			id := fmt.Sprintf("visitor-%d", i)
			va, _ := decision.SelectVariation(a, id, nil)
			vb, _ := decision.SelectVariation(b, id, nil)
			require.NotNil(t, va)
			require.NotNil(t, vb)
			if va.ID != vb.ID {
				diverged = true
				break
			}
		}
		assert.True(t, diverged, "expected at least one visitor bucketed differently across groups")
	})
}
