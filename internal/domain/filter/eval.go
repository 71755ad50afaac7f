package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomkralidis/gocsw/internal/domain/geo"
)

// Getter returns the value a record holds for a public property. Missing
// values are reported with ok=false.
type Getter func(property string) (value string, ok bool)

// Matches evaluates the expression tree directly against a record, using the
// same semantics the SQL compilation produces. The in-memory store and the
// admin tooling use this path.
func Matches(e Expr, anytext string, get Getter) (bool, error) {
	switch t := e.(type) {
	case Comparison:
		return matchComparison(t, get)
	case AnyText:
		return strings.Contains(strings.ToLower(anytext), strings.ToLower(t.Text)), nil
	case Spatial:
		value, ok := get(t.Property)
		if !ok {
			return false, nil
		}
		return geo.Evaluate(value, t.WKT, geo.Predicate(t.Predicate), t.Distance)
	case And:
		for _, sub := range t.Exprs {
			ok, err := Matches(sub, anytext, get)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, sub := range t.Exprs {
			ok, err := Matches(sub, anytext, get)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		ok, err := Matches(t.Expr, anytext, get)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
	return false, fmt.Errorf("%w: unknown expression %T", ErrInvalidFilter, e)
}

func matchComparison(cmp Comparison, get Getter) (bool, error) {
	value, ok := get(cmp.Property)

	if cmp.Op == OpIsNull {
		return !ok || value == "", nil
	}
	if !ok || value == "" {
		return false, nil
	}

	switch cmp.Op {
	case OpEqual:
		return value == cmp.Value, nil
	case OpNotEqual:
		return value != cmp.Value, nil
	case OpLessThan:
		return compare(value, cmp.Value) < 0, nil
	case OpLessEqual:
		return compare(value, cmp.Value) <= 0, nil
	case OpGreaterThan:
		return compare(value, cmp.Value) > 0, nil
	case OpGreaterEqual:
		return compare(value, cmp.Value) >= 0, nil
	case OpLike:
		return matchLike(value, cmp.Value), nil
	case OpBetween:
		return compare(value, cmp.Values[0]) >= 0 && compare(value, cmp.Values[1]) <= 0, nil
	case OpIn:
		for _, v := range cmp.Values {
			if value == v {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, cmp.Op)
}

// compare orders two values numerically when both parse as numbers,
// lexically otherwise.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// matchLike evaluates a SQL LIKE pattern with % wildcards,
// case-insensitively.
func matchLike(value, pattern string) bool {
	value = strings.ToLower(value)
	pattern = strings.ToLower(pattern)

	parts := strings.Split(pattern, "%")

	// No wildcards means exact match.
	if len(parts) == 1 {
		return value == pattern
	}

	if parts[0] != "" && !strings.HasPrefix(value, parts[0]) {
		return false
	}
	if last := parts[len(parts)-1]; last != "" && !strings.HasSuffix(value, last) {
		return false
	}

	pos := 0
	for _, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(value[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	return true
}
