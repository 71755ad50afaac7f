package records

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/internal/domain/geo"
)

func TestRecordPayload_ToDomain(t *testing.T) {
	t.Parallel()

	p := recordPayload{
		ID:          "rec-1",
		Title:       "coastal imagery",
		Description: "imagery of the coast",
		Collection:  "coll-1",
		BBox:        []float64{-180, -90, 180, 90},
		Document:    "<csw:Record/>",
	}

	rec, err := p.toDomain()
	require.NoError(t, err)

	assert.Equal(t, "rec-1", rec.Identifier)
	assert.Equal(t, "imagery of the coast", rec.Abstract)
	assert.Equal(t, "coll-1", rec.ParentIdentifier)

	b, err := geo.ParseBound(rec.WKTGeometry)
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}, b)
	assert.Equal(t, "coastal imagery imagery of the coast", rec.AnyText,
		"anytext is derived from the descriptive fields when not given")
}

func TestRecordPayload_ToDomainKeepsExplicitAnyText(t *testing.T) {
	t.Parallel()

	p := recordPayload{ID: "rec-1", Title: "ignored", AnyText: "explicit text", Document: "<x/>"}

	rec, err := p.toDomain()
	require.NoError(t, err)
	assert.Equal(t, "explicit text", rec.AnyText)
}

func TestRecordPayload_ToDomainRejectsBadBBox(t *testing.T) {
	t.Parallel()

	p := recordPayload{ID: "rec-1", Document: "<x/>", BBox: []float64{1, 2, 3}}
	_, err := p.toDomain()
	require.Error(t, err)
}

func TestFromDomain(t *testing.T) {
	t.Parallel()

	rec := &catalog.Record{
		Identifier:       "rec-1",
		Abstract:         "an abstract",
		ParentIdentifier: "coll-1",
		InsertDate:       time.Date(2021, 6, 15, 12, 30, 0, 0, time.UTC),
		WKTGeometry:      "POLYGON((0 0, 10 0, 10 5, 0 5, 0 0))",
	}

	p := fromDomain(rec)
	assert.Equal(t, "rec-1", p.ID)
	assert.Equal(t, "an abstract", p.Description)
	assert.Equal(t, "coll-1", p.Collection)
	assert.Equal(t, "2021-06-15T12:30:00Z", p.Updated)
	assert.Equal(t, []float64{0, 0, 10, 5}, p.BBox)
}

func TestParseSearch(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET",
		"/v1/records?q=erosion&bbox=0,0,10,10&type=dataset&sortby=-title&limit=5&offset=20", nil)

	req, err := parseSearch(r)
	require.NoError(t, err)

	and, ok := req.Constraint.(filter.And)
	require.True(t, ok)
	require.Len(t, and.Exprs, 3)

	assert.Equal(t, filter.AnyText{Text: "erosion"}, and.Exprs[0])

	spatial, ok := and.Exprs[1].(filter.Spatial)
	require.True(t, ok)
	assert.Equal(t, filter.SpatialBBox, spatial.Predicate)
	assert.Equal(t, spatial.WKT, req.RankGeometry, "bbox searches rank by overlap")

	assert.Equal(t, filter.Comparison{Property: "type", Op: filter.OpEqual, Value: "dataset"}, and.Exprs[2])

	require.NotNil(t, req.Sort)
	assert.Equal(t, "title", req.Sort.Property)
	assert.Equal(t, catalog.SortDescending, req.Sort.Order)

	assert.Equal(t, 5, req.Limit)
	assert.Equal(t, 20, req.Offset)
}

func TestParseSearch_SingleParameter(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/v1/records?q=ocean", nil)
	req, err := parseSearch(r)
	require.NoError(t, err)

	assert.Equal(t, filter.AnyText{Text: "ocean"}, req.Constraint)
	assert.Nil(t, req.Sort)
}

func TestParseSearch_SpatialSort(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/v1/records?sortby=bbox", nil)
	req, err := parseSearch(r)
	require.NoError(t, err)

	require.NotNil(t, req.Sort)
	assert.True(t, req.Sort.Spatial)
	assert.Equal(t, catalog.SortAscending, req.Sort.Order)
}

func TestParseSearch_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown sort property", query: "sortby=nope"},
		{name: "malformed bbox", query: "bbox=1,2,3"},
		{name: "inverted bbox", query: "bbox=10,10,0,0"},
		{name: "negative limit", query: "limit=-1"},
		{name: "non numeric offset", query: "offset=abc"},
		{name: "fully open datetime", query: "datetime=../.."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("GET", "/v1/records?"+tt.query, nil)
			_, err := parseSearch(r)
			assert.Error(t, err)
		})
	}
}

func TestParseDatetime(t *testing.T) {
	t.Parallel()

	expr, err := parseDatetime("2021-06-15")
	require.NoError(t, err)
	assert.Equal(t, filter.Comparison{Property: "datetime", Op: filter.OpEqual, Value: "2021-06-15"}, expr)

	expr, err = parseDatetime("2021-01-01/2021-12-31")
	require.NoError(t, err)
	and, ok := expr.(filter.And)
	require.True(t, ok)
	require.Len(t, and.Exprs, 2)
	assert.Equal(t, filter.Comparison{Property: "time_begin", Op: filter.OpLessEqual, Value: "2021-12-31"}, and.Exprs[0])
	assert.Equal(t, filter.Comparison{Property: "time_end", Op: filter.OpGreaterEqual, Value: "2021-01-01"}, and.Exprs[1])

	expr, err = parseDatetime("2021-01-01/..")
	require.NoError(t, err)
	assert.Equal(t, filter.Comparison{Property: "time_end", Op: filter.OpGreaterEqual, Value: "2021-01-01"}, expr)

	expr, err = parseDatetime("../2021-12-31")
	require.NoError(t, err)
	assert.Equal(t, filter.Comparison{Property: "time_begin", Op: filter.OpLessEqual, Value: "2021-12-31"}, expr)
}

func TestParseBBox(t *testing.T) {
	t.Parallel()

	wkt, err := parseBBox("-10, -5, 10, 5")
	require.NoError(t, err)

	b, err := geo.ParseBound(wkt)
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{-10, -5}, Max: orb.Point{10, 5}}, b)
}
