// Package geo provides the geometry support the catalogue needs: WKT
// parsing, bounding-box predicate evaluation, and spatial result ranking.
// Record geometries are stored as bounding boxes, so predicates operate on
// geometry bounds.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
)

// Predicate enumerates the spatial operators Evaluate understands.
type Predicate string

const (
	PredicateBBox       Predicate = "bbox"
	PredicateIntersects Predicate = "intersects"
	PredicateContains   Predicate = "contains"
	PredicateWithin     Predicate = "within"
	PredicateTouches    Predicate = "touches"
	PredicateCrosses    Predicate = "crosses"
	PredicateDisjoint   Predicate = "disjoint"
	PredicateOverlaps   Predicate = "overlaps"
	PredicateEquals     Predicate = "equals"
	PredicateBeyond     Predicate = "beyond"
	PredicateDWithin    Predicate = "dwithin"
)

// ParseBound parses a WKT geometry and returns its bounding box.
func ParseBound(s string) (orb.Bound, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("parsing wkt geometry: %w", err)
	}
	return g.Bound(), nil
}

// Evaluate runs a spatial predicate between a record geometry and a query
// geometry, both WKT. Malformed record geometries evaluate false rather than
// failing the whole query; an unknown predicate is an error.
func Evaluate(targetWKT, queryWKT string, predicate Predicate, distance float64) (bool, error) {
	target, err := ParseBound(targetWKT)
	if err != nil {
		return false, nil
	}
	query, err := ParseBound(queryWKT)
	if err != nil {
		return false, nil
	}

	switch predicate {
	case PredicateBBox, PredicateIntersects:
		return target.Intersects(query), nil
	case PredicateContains:
		return contains(target, query), nil
	case PredicateWithin:
		return contains(query, target), nil
	case PredicateTouches:
		return touches(target, query), nil
	case PredicateCrosses:
		return target.Intersects(query) && !contains(target, query) && !contains(query, target), nil
	case PredicateDisjoint:
		return !target.Intersects(query), nil
	case PredicateOverlaps:
		return target.Intersects(query) && !touches(target, query), nil
	case PredicateEquals:
		return target.Equal(query), nil
	case PredicateBeyond:
		return separation(target, query) > distance, nil
	case PredicateDWithin:
		return separation(target, query) <= distance, nil
	}

	return false, fmt.Errorf("invalid spatial query predicate: %s", predicate)
}

// Area returns the planar area of a WKT geometry, 0 for empty or malformed
// input.
func Area(s string) float64 {
	if s == "" {
		return 0
	}
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return 0
	}
	return math.Abs(planar.Area(g))
}

// OverlayRank derives the spatial overlay rank of a record geometry against
// a query geometry as per Lanfear (2006),
// http://pubs.usgs.gov/of/2006/1279/2006-1279.pdf. Rank is (X/Q)*(X/T) with
// X the intersection area, Q the query area and T the target area; 0 when
// either geometry is missing or has no area. Record geometries are bounding
// boxes, so the intersection is the query geometry clipped to the record
// bound.
func OverlayRank(targetWKT, queryWKT string) float64 {
	if targetWKT == "" || queryWKT == "" {
		return 0
	}

	target, err := wkt.Unmarshal(targetWKT)
	if err != nil {
		return 0
	}
	query, err := wkt.Unmarshal(queryWKT)
	if err != nil {
		return 0
	}

	t := math.Abs(planar.Area(target))
	q := math.Abs(planar.Area(query))
	if t == 0 || q == 0 {
		return 0
	}

	var x float64
	if clipped := clip.Geometry(target.Bound(), query); clipped != nil {
		x = math.Abs(planar.Area(clipped))
	}
	return (x / q) * (x / t)
}

func contains(outer, inner orb.Bound) bool {
	return outer.Min[0] <= inner.Min[0] && outer.Max[0] >= inner.Max[0] &&
		outer.Min[1] <= inner.Min[1] && outer.Max[1] >= inner.Max[1]
}

// touches reports boxes that share a boundary but no interior.
func touches(a, b orb.Bound) bool {
	if !a.Intersects(b) {
		return false
	}

	sharesEdgeX := a.Min[0] == b.Max[0] || a.Max[0] == b.Min[0]
	sharesEdgeY := a.Min[1] == b.Max[1] || a.Max[1] == b.Min[1]
	return sharesEdgeX || sharesEdgeY
}

// separation returns the shortest distance between two bounds, 0 when they
// intersect.
func separation(a, b orb.Bound) float64 {
	dx := math.Max(0, math.Max(a.Min[0]-b.Max[0], b.Min[0]-a.Max[0]))
	dy := math.Max(0, math.Max(a.Min[1]-b.Max[1], b.Min[1]-a.Max[1]))
	return math.Hypot(dx, dy)
}

// BoundToWKT renders a bounding box as a POLYGON WKT string, the form record
// geometries are stored in.
func BoundToWKT(b orb.Bound) string {
	return wkt.MarshalString(b.ToPolygon())
}
