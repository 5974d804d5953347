package sheetsync

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition is a single filter on a record field
type Condition struct {
	Field    string      // フィールド名
	Operator string      // ==, !=, >, >=, <, <=, in
	Value    interface{} // for "in": []interface{} or []string
}

// Query selects the records a push covers. Conditions are ANDed.
type Query struct {
	Conditions []Condition
	Limit      int
}

// IdentityQuery matches the single record whose identity field equals id.
func IdentityQuery(identityField, id string) Query {
	return Query{Conditions: []Condition{{Field: identityField, Operator: "==", Value: id}}}
}

// Matches reports whether the record satisfies every condition
func (q Query) Matches(r *Record) bool {
	for _, c := range q.Conditions {
		if !c.matches(r) {
			return false
		}
	}
	return true
}

// Apply filters records, preserving order
func (q Query) Apply(records []*Record) []*Record {
	results := make([]*Record, 0, len(records))
	for _, r := range records {
		if !q.Matches(r) {
			continue
		}
		results = append(results, r)
		if q.Limit > 0 && len(results) == q.Limit {
			break
		}
	}
	return results
}

// Validate checks operators and operand shapes
func (q Query) Validate() error {
	for i, c := range q.Conditions {
		if c.Field == "" {
			return fmt.Errorf("empty field name in condition %d", i)
		}
		switch c.Operator {
		case "==", "!=", ">", ">=", "<", "<=":
		case "in":
			if _, ok := inList(c.Value); !ok {
				return fmt.Errorf("operator 'in' requires a list value in condition %d", i)
			}
		default:
			return fmt.Errorf("invalid operator '%s' in condition %d", c.Operator, i)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	return nil
}

func (c Condition) matches(r *Record) bool {
	v, ok := r.Values[c.Field]
	if !ok {
		v = nil
	}

	switch c.Operator {
	case "==":
		return equalValues(v, c.Value)
	case "!=":
		return !equalValues(v, c.Value)
	case ">", ">=", "<", "<=":
		a, aok := toNumber(v)
		b, bok := toNumber(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		default:
			return a <= b
		}
	case "in":
		list, _ := inList(c.Value)
		for _, item := range list {
			if equalValues(v, item) {
				return true
			}
		}
	}
	return false
}

// equalValues compares numerically when both sides are numbers, otherwise as text.
func equalValues(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// toNumber converts numeric values and numeric strings (store columns are often TEXT).
func toNumber(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

func inList(v interface{}) ([]interface{}, bool) {
	switch val := v.(type) {
	case []interface{}:
		return val, true
	case []string:
		list := make([]interface{}, len(val))
		for i, s := range val {
			list[i] = s
		}
		return list, true
	}
	return nil, false
}
