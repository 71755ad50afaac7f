// Package filter provides the typed constraint model used to query the
// catalogue. A constraint is built as an expression tree and either compiled
// to parameterized SQL by the Postgres store or evaluated directly by the
// in-memory store.
package filter

import (
	"errors"
	"fmt"
)

// Operator enumerates the comparison operators a property filter supports.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "ne"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "le"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "ge"
	OpLike         Operator = "like"
	OpBetween      Operator = "between"
	OpIn           Operator = "in"
	OpIsNull       Operator = "isnull"
)

// SpatialPredicate enumerates the supported spatial operators.
type SpatialPredicate string

const (
	SpatialBBox       SpatialPredicate = "bbox"
	SpatialIntersects SpatialPredicate = "intersects"
	SpatialContains   SpatialPredicate = "contains"
	SpatialWithin     SpatialPredicate = "within"
	SpatialTouches    SpatialPredicate = "touches"
	SpatialCrosses    SpatialPredicate = "crosses"
	SpatialDisjoint   SpatialPredicate = "disjoint"
	SpatialOverlaps   SpatialPredicate = "overlaps"
	SpatialEquals     SpatialPredicate = "equals"
	SpatialBeyond     SpatialPredicate = "beyond"
	SpatialDWithin    SpatialPredicate = "dwithin"
)

// ErrInvalidFilter indicates a structurally invalid constraint.
var ErrInvalidFilter = errors.New("invalid filter")

// Expr is a node in a constraint expression tree.
type Expr interface {
	// Validate checks the node against the property resolver without
	// executing it.
	Validate(resolve Resolver) error
}

// Resolver maps a public property name to its backing column. The spatial
// flag marks geometry-valued properties.
type Resolver func(property string) (column string, spatial bool, err error)

// Comparison filters on a single property.
type Comparison struct {
	Property string
	Op       Operator
	Value    string
	// Values carries the operand list for OpBetween (2) and OpIn (1..n).
	Values []string
}

// Validate implements Expr.
func (c Comparison) Validate(resolve Resolver) error {
	if _, _, err := resolve(c.Property); err != nil {
		return err
	}
	switch c.Op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual, OpLike:
		if c.Value == "" {
			return fmt.Errorf("%w: %s comparison on %q requires a value", ErrInvalidFilter, c.Op, c.Property)
		}
	case OpBetween:
		if len(c.Values) != 2 {
			return fmt.Errorf("%w: between on %q requires exactly two values", ErrInvalidFilter, c.Property)
		}
	case OpIn:
		if len(c.Values) == 0 {
			return fmt.Errorf("%w: in on %q requires at least one value", ErrInvalidFilter, c.Property)
		}
	case OpIsNull:
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, c.Op)
	}
	return nil
}

// AnyText filters on the record's full-text field.
type AnyText struct {
	Text string
}

// Validate implements Expr.
func (a AnyText) Validate(Resolver) error {
	if a.Text == "" {
		return fmt.Errorf("%w: anytext requires search terms", ErrInvalidFilter)
	}
	return nil
}

// Spatial filters on a geometry-valued property against a query geometry.
type Spatial struct {
	Property  string
	Predicate SpatialPredicate
	WKT       string
	// Distance is the operand for beyond and dwithin, in the units of the
	// record CRS.
	Distance float64
}

// Validate implements Expr.
func (s Spatial) Validate(resolve Resolver) error {
	_, spatial, err := resolve(s.Property)
	if err != nil {
		return err
	}
	if !spatial {
		return fmt.Errorf("%w: property %q is not geometry valued", ErrInvalidFilter, s.Property)
	}
	if s.WKT == "" {
		return fmt.Errorf("%w: spatial predicate requires a geometry", ErrInvalidFilter)
	}
	switch s.Predicate {
	case SpatialBBox, SpatialIntersects, SpatialContains, SpatialWithin, SpatialTouches,
		SpatialCrosses, SpatialDisjoint, SpatialOverlaps, SpatialEquals, SpatialBeyond, SpatialDWithin:
		return nil
	}
	return fmt.Errorf("%w: invalid spatial query predicate: %s", ErrInvalidFilter, s.Predicate)
}

// And combines sub-expressions that must all match.
type And struct {
	Exprs []Expr
}

// Validate implements Expr.
func (a And) Validate(resolve Resolver) error {
	if len(a.Exprs) == 0 {
		return fmt.Errorf("%w: empty conjunction", ErrInvalidFilter)
	}
	for _, e := range a.Exprs {
		if err := e.Validate(resolve); err != nil {
			return err
		}
	}
	return nil
}

// Or combines sub-expressions of which at least one must match.
type Or struct {
	Exprs []Expr
}

// Validate implements Expr.
func (o Or) Validate(resolve Resolver) error {
	if len(o.Exprs) == 0 {
		return fmt.Errorf("%w: empty disjunction", ErrInvalidFilter)
	}
	for _, e := range o.Exprs {
		if err := e.Validate(resolve); err != nil {
			return err
		}
	}
	return nil
}

// Not inverts a sub-expression.
type Not struct {
	Expr Expr
}

// Validate implements Expr.
func (n Not) Validate(resolve Resolver) error {
	if n.Expr == nil {
		return fmt.Errorf("%w: empty negation", ErrInvalidFilter)
	}
	return n.Expr.Validate(resolve)
}
