package filter

import (
	"fmt"
	"strings"
)

// SQLOptions controls how an expression tree compiles to SQL.
type SQLOptions struct {
	// Resolve maps public property names to columns.
	Resolve Resolver

	// GeometryColumn is the native geometry column spatial predicates are
	// evaluated against.
	GeometryColumn string

	// FTS selects the tsvector match for anytext filters. When false the
	// compiler falls back to a case-insensitive LIKE.
	FTS bool

	// ArgOffset shifts the first placeholder number, for callers that have
	// already bound arguments on the same statement.
	ArgOffset int
}

// compiler tracks placeholder numbering while walking the tree.
type compiler struct {
	opts SQLOptions
	args []any
}

// CompileSQL turns an expression tree into a parameterized WHERE fragment
// using $n placeholders.
func CompileSQL(e Expr, opts SQLOptions) (string, []any, error) {
	if e == nil {
		return "", nil, nil
	}
	if err := e.Validate(opts.Resolve); err != nil {
		return "", nil, err
	}

	c := compiler{opts: opts}
	sql, err := c.compile(e)
	if err != nil {
		return "", nil, err
	}
	return sql, c.args, nil
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", c.opts.ArgOffset+len(c.args))
}

func (c *compiler) compile(e Expr) (string, error) {
	switch t := e.(type) {
	case Comparison:
		return c.comparison(t)
	case AnyText:
		return c.anyText(t)
	case Spatial:
		return c.spatial(t)
	case And:
		return c.combine(t.Exprs, " AND ")
	case Or:
		return c.combine(t.Exprs, " OR ")
	case Not:
		inner, err := c.compile(t.Expr)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	}
	return "", fmt.Errorf("%w: unknown expression %T", ErrInvalidFilter, e)
}

func (c *compiler) combine(exprs []Expr, sep string) (string, error) {
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		p, err := c.compile(e)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compiler) comparison(cmp Comparison) (string, error) {
	column, _, err := c.opts.Resolve(cmp.Property)
	if err != nil {
		return "", err
	}

	switch cmp.Op {
	case OpEqual:
		return fmt.Sprintf("%s = %s", column, c.bind(cmp.Value)), nil
	case OpNotEqual:
		return fmt.Sprintf("%s != %s", column, c.bind(cmp.Value)), nil
	case OpLessThan:
		return fmt.Sprintf("%s < %s", column, c.bind(cmp.Value)), nil
	case OpLessEqual:
		return fmt.Sprintf("%s <= %s", column, c.bind(cmp.Value)), nil
	case OpGreaterThan:
		return fmt.Sprintf("%s > %s", column, c.bind(cmp.Value)), nil
	case OpGreaterEqual:
		return fmt.Sprintf("%s >= %s", column, c.bind(cmp.Value)), nil
	case OpLike:
		return fmt.Sprintf("%s ILIKE %s", column, c.bind(cmp.Value)), nil
	case OpBetween:
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, c.bind(cmp.Values[0]), c.bind(cmp.Values[1])), nil
	case OpIn:
		placeholders := make([]string, 0, len(cmp.Values))
		for _, v := range cmp.Values {
			placeholders = append(placeholders, c.bind(v))
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), nil
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", column), nil
	}
	return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, cmp.Op)
}

func (c *compiler) anyText(a AnyText) (string, error) {
	if c.opts.FTS {
		return fmt.Sprintf("anytext_tsvector @@ plainto_tsquery('english', %s)", c.bind(a.Text)), nil
	}
	return fmt.Sprintf("anytext ILIKE %s", c.bind("%"+a.Text+"%")), nil
}

func (c *compiler) spatial(s Spatial) (string, error) {
	geom := c.opts.GeometryColumn
	if geom == "" {
		return "", fmt.Errorf("%w: no geometry column configured for spatial predicate", ErrInvalidFilter)
	}

	queryGeom := fmt.Sprintf("ST_GeomFromText(%s, 4326)", c.bind(s.WKT))

	switch s.Predicate {
	case SpatialBBox, SpatialIntersects:
		return fmt.Sprintf("ST_Intersects(%s, %s)", geom, queryGeom), nil
	case SpatialContains:
		return fmt.Sprintf("ST_Contains(%s, %s)", geom, queryGeom), nil
	case SpatialWithin:
		return fmt.Sprintf("ST_Within(%s, %s)", geom, queryGeom), nil
	case SpatialTouches:
		return fmt.Sprintf("ST_Touches(%s, %s)", geom, queryGeom), nil
	case SpatialCrosses:
		return fmt.Sprintf("ST_Crosses(%s, %s)", geom, queryGeom), nil
	case SpatialDisjoint:
		return fmt.Sprintf("ST_Disjoint(%s, %s)", geom, queryGeom), nil
	case SpatialOverlaps:
		return fmt.Sprintf("ST_Overlaps(%s, %s)", geom, queryGeom), nil
	case SpatialEquals:
		return fmt.Sprintf("ST_Equals(%s, %s)", geom, queryGeom), nil
	case SpatialBeyond:
		return fmt.Sprintf("ST_Distance(%s, %s) > %s", geom, queryGeom, c.bind(s.Distance)), nil
	case SpatialDWithin:
		return fmt.Sprintf("ST_DWithin(%s, %s, %s)", geom, queryGeom, c.bind(s.Distance)), nil
	}
	return "", fmt.Errorf("%w: invalid spatial query predicate: %s", ErrInvalidFilter, s.Predicate)
}
