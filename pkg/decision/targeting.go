package decision

import "strings"

// Operator is a targeting comparison operator.
type Operator string

const (
	OpEquals         Operator = "EQUALS"
	OpNotEquals      Operator = "NOT_EQUALS"
	OpContains       Operator = "CONTAINS"
	OpNotContains    Operator = "NOT_CONTAINS"
	OpGreaterThan    Operator = "GREATER_THAN"
	OpLowerThan      Operator = "LOWER_THAN"
	OpGreaterOrEqual Operator = "GREATER_THAN_OR_EQUALS"
	OpLowerOrEqual   Operator = "LOWER_THAN_OR_EQUALS"
	OpStartsWith     Operator = "STARTS_WITH"
	OpEndsWith       Operator = "ENDS_WITH"
)

// Reserved targeting keys interpreted by the evaluator instead of being
// looked up in the visitor context.
const (
	// AllUsersKey matches every visitor under EQUALS regardless of context.
	AllUsersKey = "fs_all_users"
	// VisitorIDKey targets the visitor id itself.
	VisitorIDKey = "fs_users"
)

// TargetingGroups is a disjunction of targeting lists: the visitor matches
// when at least one list matches. An empty tree matches unconditionally.
type TargetingGroups struct {
	Groups []TargetingList `json:"targetingGroups"`
}

// TargetingList is a conjunction of predicates: every predicate must match.
type TargetingList struct {
	Targetings []Targeting `json:"targetings"`
}

// Targeting is a single (key, operator, value) predicate.
type Targeting struct {
	Key      string   `json:"key"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Match evaluates the predicate tree against the visitor id and context.
// It never fails: unknown operators, missing context keys and operand type
// mismatches all evaluate to false.
func (tg TargetingGroups) Match(visitorID string, context map[string]any) bool {
	if len(tg.Groups) == 0 {
		return true
	}
	for _, list := range tg.Groups {
		if list.match(visitorID, context) {
			return true
		}
	}
	return false
}

func (tl TargetingList) match(visitorID string, context map[string]any) bool {
	for _, t := range tl.Targetings {
		if !t.match(visitorID, context) {
			return false
		}
	}
	return true
}

func (t Targeting) match(visitorID string, context map[string]any) bool {
	if t.Key == AllUsersKey {
		return t.Operator == OpEquals
	}

	var ctxValue any
	if t.Key == VisitorIDKey {
		ctxValue = visitorID
	} else {
		v, ok := context[t.Key]
		if !ok {
			return false
		}
		ctxValue = v
	}

	// A list comparison value switches EQUALS/CONTAINS to any-of semantics
	// and NOT_EQUALS/NOT_CONTAINS to none-of semantics.
	if values, ok := t.Value.([]any); ok {
		switch t.Operator {
		case OpEquals, OpContains:
			for _, v := range values {
				if compare(t.Operator, ctxValue, v) {
					return true
				}
			}
			return false
		case OpNotEquals, OpNotContains:
			for _, v := range values {
				if !compare(t.Operator, ctxValue, v) {
					return false
				}
			}
			return true
		default:
			return false
		}
	}

	return compare(t.Operator, ctxValue, t.Value)
}

// compare applies the operator to a context value and a single targeting
// operand. Numeric operands compare as float64 regardless of the declared
// subtype, so an int context value equals a float targeting value when they
// are numerically equal.
func compare(op Operator, ctxValue, target any) bool {
	if cf, cok := toFloat(ctxValue); cok {
		if tf, tok := toFloat(target); tok {
			return compareNumbers(op, cf, tf)
		}
		return false
	}

	switch cv := ctxValue.(type) {
	case string:
		tv, ok := target.(string)
		if !ok {
			return false
		}
		return compareStrings(op, cv, tv)
	case bool:
		tv, ok := target.(bool)
		if !ok {
			return false
		}
		switch op {
		case OpEquals:
			return cv == tv
		case OpNotEquals:
			return cv != tv
		default:
			return false
		}
	default:
		return false
	}
}

func compareNumbers(op Operator, a, b float64) bool {
	switch op {
	case OpEquals:
		return a == b
	case OpNotEquals:
		return a != b
	case OpGreaterThan:
		return a > b
	case OpLowerThan:
		return a < b
	case OpGreaterOrEqual:
		return a >= b
	case OpLowerOrEqual:
		return a <= b
	default:
		return false
	}
}

func compareStrings(op Operator, a, b string) bool {
	switch op {
	case OpEquals:
		return a == b
	case OpNotEquals:
		return a != b
	case OpContains:
		return strings.Contains(a, b)
	case OpNotContains:
		return !strings.Contains(a, b)
	case OpGreaterThan:
		return a > b
	case OpLowerThan:
		return a < b
	case OpGreaterOrEqual:
		return a >= b
	case OpLowerOrEqual:
		return a <= b
	case OpStartsWith:
		return strings.HasPrefix(a, b)
	case OpEndsWith:
		return strings.HasSuffix(a, b)
	default:
		return false
	}
}

// toFloat normalizes every numeric type the context accepts to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
