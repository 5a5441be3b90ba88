package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagship-io/flagship-go/pkg/decision"
)

func singlePredicate(key string, op decision.Operator, value any) decision.TargetingGroups {
	return decision.TargetingGroups{
		Groups: []decision.TargetingList{
			{Targetings: []decision.Targeting{{Key: key, Operator: op, Value: value}}},
		},
	}
}

func TestTargetingMatch(t *testing.T) {
	t.Parallel()

	ctx := map[string]any{
		"plan":    "gold",
		"age":     float64(30),
		"visits":  7,
		"beta":    true,
		"city":    "Paris",
		"referer": "https://partner.example.com/landing",
	}

	cases := []struct {
		name string
		key  string
		op   decision.Operator
		val  any
		want bool
	}{
		{"EqualsString", "plan", decision.OpEquals, "gold", true},
		{"EqualsStringMiss", "plan", decision.OpEquals, "silver", false},
		{"NotEquals", "plan", decision.OpNotEquals, "silver", true},
		{"EqualsBool", "beta", decision.OpEquals, true, true},
		{"Contains", "referer", decision.OpContains, "partner", true},
		{"NotContains", "referer", decision.OpNotContains, "competitor", true},
		{"GreaterThan", "age", decision.OpGreaterThan, float64(18), true},
		{"GreaterThanMiss", "age", decision.OpGreaterThan, float64(30), false},
		{"GreaterOrEqual", "age", decision.OpGreaterOrEqual, float64(30), true},
		{"LowerThan", "age", decision.OpLowerThan, float64(65), true},
		{"LowerOrEqual", "age", decision.OpLowerOrEqual, float64(30), true},
		{"StartsWith", "city", decision.OpStartsWith, "Par", true},
		{"EndsWith", "city", decision.OpEndsWith, "ris", true},
		{"IntContextAgainstFloatTarget", "visits", decision.OpGreaterThan, 6.5, true},
		{"NumberAsStringNeverMatches", "age", decision.OpEquals, "30", false},
		{"MissingKey", "unknown", decision.OpEquals, "x", false},
		{"TypeMismatchIsFalse", "plan", decision.OpGreaterThan, float64(3), false},
		{"UnknownOperator", "plan", decision.Operator("BETWEEN"), "gold", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tg := singlePredicate(tc.key, tc.op, tc.val)
			assert.Equal(t, tc.want, tg.Match("visitor-1", ctx))
		})
	}
}

func TestTargetingReservedKeys(t *testing.T) {
	t.Parallel()

	t.Run("AllUsersMatchesWithoutContext", func(t *testing.T) {
		t.Parallel()
		tg := singlePredicate(decision.AllUsersKey, decision.OpEquals, "")
		assert.True(t, tg.Match("anyone", nil))
	})

	t.Run("AllUsersRequiresEquals", func(t *testing.T) {
		t.Parallel()
		tg := singlePredicate(decision.AllUsersKey, decision.OpNotEquals, "")
		assert.False(t, tg.Match("anyone", nil))
	})

	t.Run("VisitorIDKey", func(t *testing.T) {
		t.Parallel()
		tg := singlePredicate(decision.VisitorIDKey, decision.OpEquals, "visitor-1")
		assert.True(t, tg.Match("visitor-1", nil))
		assert.False(t, tg.Match("visitor-2", nil))
	})
}

func TestTargetingListValues(t *testing.T) {
	t.Parallel()

	ctx := map[string]any{"plan": "gold"}

	t.Run("EqualsAnyOf", func(t *testing.T) {
		t.Parallel()
		tg := singlePredicate("plan", decision.OpEquals, []any{"silver", "gold"})
		assert.True(t, tg.Match("v", ctx))
	})

	t.Run("EqualsNoneMatch", func(t *testing.T) {
		t.Parallel()
		tg := singlePredicate("plan", decision.OpEquals, []any{"silver", "bronze"})
		assert.False(t, tg.Match("v", ctx))
	})

	t.Run("NotEqualsNoneOf", func(t *testing.T) {
		t.Parallel()
		tg := singlePredicate("plan", decision.OpNotEquals, []any{"silver", "bronze"})
		assert.True(t, tg.Match("v", ctx))
		tg = singlePredicate("plan", decision.OpNotEquals, []any{"silver", "gold"})
		assert.False(t, tg.Match("v", ctx))
	})

	t.Run("ListWithOrderingOperatorIsFalse", func(t *testing.T) {
		t.Parallel()
		tg := singlePredicate("plan", decision.OpGreaterThan, []any{"a"})
		assert.False(t, tg.Match("v", ctx))
	})
}

func TestTargetingBooleanStructure(t *testing.T) {
	t.Parallel()

	ctx := map[string]any{"plan": "gold", "age": float64(30)}

	t.Run("EmptyTreeMatchesEveryone", func(t *testing.T) {
		t.Parallel()
		assert.True(t, decision.TargetingGroups{}.Match("v", nil))
	})

	t.Run("ListIsConjunction", func(t *testing.T) {
		t.Parallel()
		tg := decision.TargetingGroups{Groups: []decision.TargetingList{{
			Targetings: []decision.Targeting{
				{Key: "plan", Operator: decision.OpEquals, Value: "gold"},
				{Key: "age", Operator: decision.OpGreaterThan, Value: float64(40)},
			},
		}}}
		assert.False(t, tg.Match("v", ctx))
	})

	t.Run("GroupsAreDisjunction", func(t *testing.T) {
		t.Parallel()
		tg := decision.TargetingGroups{Groups: []decision.TargetingList{
			{Targetings: []decision.Targeting{{Key: "plan", Operator: decision.OpEquals, Value: "silver"}}},
			{Targetings: []decision.Targeting{{Key: "age", Operator: decision.OpGreaterThan, Value: float64(18)}}},
		}}
		assert.True(t, tg.Match("v", ctx))
	})
}
