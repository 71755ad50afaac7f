package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGetter(values map[string]string) Getter {
	return func(property string) (string, bool) {
		v, ok := values[property]
		return v, ok && v != ""
	}
}

func TestMatches_Comparisons(t *testing.T) {
	t.Parallel()

	get := testGetter(map[string]string{
		"title":      "Lorem ipsum dolor sit amet",
		"updated":    "2021-06-15",
		"cloudcover": "25",
	})

	tests := []struct {
		name string
		expr Expr
		want bool
	}{
		{name: "equal", expr: Comparison{Property: "title", Op: OpEqual, Value: "Lorem ipsum dolor sit amet"}, want: true},
		{name: "equal mismatch", expr: Comparison{Property: "title", Op: OpEqual, Value: "other"}, want: false},
		{name: "not equal", expr: Comparison{Property: "title", Op: OpNotEqual, Value: "other"}, want: true},
		{name: "numeric less than", expr: Comparison{Property: "cloudcover", Op: OpLessThan, Value: "30"}, want: true},
		{name: "numeric comparison is not lexical", expr: Comparison{Property: "cloudcover", Op: OpGreaterThan, Value: "100"}, want: false},
		{name: "date range", expr: Comparison{Property: "updated", Op: OpBetween, Values: []string{"2021-01-01", "2021-12-31"}}, want: true},
		{name: "like prefix", expr: Comparison{Property: "title", Op: OpLike, Value: "lorem%"}, want: true},
		{name: "like infix", expr: Comparison{Property: "title", Op: OpLike, Value: "%dolor%"}, want: true},
		{name: "like mismatch", expr: Comparison{Property: "title", Op: OpLike, Value: "%missing%"}, want: false},
		{name: "in", expr: Comparison{Property: "updated", Op: OpIn, Values: []string{"2021-06-15", "2022-01-01"}}, want: true},
		{name: "is null on present value", expr: Comparison{Property: "title", Op: OpIsNull}, want: false},
		{name: "is null on missing value", expr: Comparison{Property: "platform", Op: OpIsNull}, want: true},
		{name: "missing value never compares", expr: Comparison{Property: "platform", Op: OpEqual, Value: "x"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Matches(tt.expr, "", get)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_AnyText(t *testing.T) {
	t.Parallel()

	got, err := Matches(AnyText{Text: "IPSUM"}, "Lorem ipsum dolor", testGetter(nil))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Matches(AnyText{Text: "absent"}, "Lorem ipsum dolor", testGetter(nil))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMatches_Spatial(t *testing.T) {
	t.Parallel()

	get := testGetter(map[string]string{
		"bbox": "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))",
	})

	got, err := Matches(Spatial{
		Property:  "bbox",
		Predicate: SpatialIntersects,
		WKT:       "POLYGON((0.5 0.5, 2 0.5, 2 2, 0.5 2, 0.5 0.5))",
	}, "", get)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Matches(Spatial{
		Property:  "bbox",
		Predicate: SpatialIntersects,
		WKT:       "POLYGON((10 10, 11 10, 11 11, 10 11, 10 10))",
	}, "", get)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMatches_BooleanComposition(t *testing.T) {
	t.Parallel()

	get := testGetter(map[string]string{"title": "ocean data"})

	expr := And{Exprs: []Expr{
		Comparison{Property: "title", Op: OpLike, Value: "%ocean%"},
		Not{Expr: Comparison{Property: "title", Op: OpEqual, Value: "x"}},
	}}

	got, err := Matches(expr, "", get)
	require.NoError(t, err)
	assert.True(t, got)

	expr = And{Exprs: []Expr{
		Comparison{Property: "title", Op: OpLike, Value: "%ocean%"},
		Comparison{Property: "title", Op: OpEqual, Value: "x"},
	}}

	got, err = Matches(expr, "", get)
	require.NoError(t, err)
	assert.False(t, got)

	or := Or{Exprs: []Expr{
		Comparison{Property: "title", Op: OpEqual, Value: "x"},
		Comparison{Property: "title", Op: OpLike, Value: "ocean%"},
	}}

	got, err = Matches(or, "", get)
	require.NoError(t, err)
	assert.True(t, got)
}
