package records

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	appcatalog "github.com/tomkralidis/gocsw/internal/app/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/internal/domain/geo"
)

// recordPayload is the JSON representation of a metadata record.
type recordPayload struct {
	ID               string            `json:"id" validate:"required"`
	Typename         string            `json:"typename,omitempty"`
	Type             string            `json:"type,omitempty"`
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	Keywords         string            `json:"keywords,omitempty"`
	Edition          string            `json:"edition,omitempty"`
	Language         string            `json:"language,omitempty"`
	Format           string            `json:"format,omitempty"`
	Collection       string            `json:"collection,omitempty"`
	Date             string            `json:"date,omitempty"`
	TimeBegin        string            `json:"time_begin,omitempty"`
	TimeEnd          string            `json:"time_end,omitempty"`
	Creator          string            `json:"creator,omitempty"`
	Publisher        string            `json:"publisher,omitempty"`
	Organization     string            `json:"organization,omitempty"`
	Platform         string            `json:"platform,omitempty"`
	Instrument       string            `json:"instrument,omitempty"`
	SensorType       string            `json:"sensortype,omitempty"`
	Updated          string            `json:"updated,omitempty"`
	BBox             []float64         `json:"bbox,omitempty"`
	Links            []catalog.Link    `json:"links,omitempty"`
	Contacts         []catalog.Contact `json:"contacts,omitempty"`
	Bands            []catalog.Band    `json:"bands,omitempty"`

	// Document is the source metadata document the record was derived
	// from; it seeds the full-text index when anytext is not given.
	Document string `json:"document,omitempty" validate:"required"`
	AnyText  string `json:"anytext,omitempty"`
}

// toDomain converts the payload into a domain record.
func (p recordPayload) toDomain() (*catalog.Record, error) {
	rec := &catalog.Record{
		Identifier:       p.ID,
		Typename:         p.Typename,
		Type:             p.Type,
		Title:            p.Title,
		Abstract:         p.Description,
		Keywords:         p.Keywords,
		Edition:          p.Edition,
		Language:         p.Language,
		Format:           p.Format,
		ParentIdentifier: p.Collection,
		Date:             p.Date,
		TimeBegin:        p.TimeBegin,
		TimeEnd:          p.TimeEnd,
		Creator:          p.Creator,
		Publisher:        p.Publisher,
		Organization:     p.Organization,
		Platform:         p.Platform,
		Instrument:       p.Instrument,
		SensorType:       p.SensorType,
		Links:            p.Links,
		Contacts:         p.Contacts,
		Bands:            p.Bands,
		XML:              p.Document,
		AnyText:          p.AnyText,
	}

	if len(p.BBox) > 0 {
		if len(p.BBox) != 4 {
			return nil, fmt.Errorf("bbox must have 4 values, got %d", len(p.BBox))
		}
		rec.WKTGeometry = geo.BoundToWKT(orb.Bound{
			Min: orb.Point{p.BBox[0], p.BBox[1]},
			Max: orb.Point{p.BBox[2], p.BBox[3]},
		})
	}

	if rec.AnyText == "" {
		rec.AnyText = anyText(p)
	}

	return rec, nil
}

// anyText derives the full-text blob from the descriptive fields.
func anyText(p recordPayload) string {
	parts := make([]string, 0, 8)
	for _, s := range []string{p.Title, p.Description, p.Keywords, p.Creator, p.Publisher, p.Organization, p.Platform, p.Instrument} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// fromDomain converts a domain record into its JSON representation.
func fromDomain(rec *catalog.Record) recordPayload {
	p := recordPayload{
		ID:           rec.Identifier,
		Typename:     rec.Typename,
		Type:         rec.Type,
		Title:        rec.Title,
		Description:  rec.Abstract,
		Keywords:     rec.Keywords,
		Edition:      rec.Edition,
		Language:     rec.Language,
		Format:       rec.Format,
		Collection:   rec.ParentIdentifier,
		Date:         rec.Date,
		TimeBegin:    rec.TimeBegin,
		TimeEnd:      rec.TimeEnd,
		Creator:      rec.Creator,
		Publisher:    rec.Publisher,
		Organization: rec.Organization,
		Platform:     rec.Platform,
		Instrument:   rec.Instrument,
		SensorType:   rec.SensorType,
		Links:        rec.Links,
		Contacts:     rec.Contacts,
		Bands:        rec.Bands,
	}

	if !rec.InsertDate.IsZero() {
		p.Updated = rec.InsertDate.UTC().Format("2006-01-02T15:04:05Z")
	}

	if rec.WKTGeometry != "" {
		if b, err := geo.ParseBound(rec.WKTGeometry); err == nil {
			p.BBox = []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
		}
	}

	return p
}

func fromDomainSlice(recs []*catalog.Record) []recordPayload {
	out := make([]recordPayload, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromDomain(rec))
	}
	return out
}

// parseSearch translates the search query parameters into a service
// request: q (full text), bbox, datetime (instant or interval), type,
// plus sortby/limit/offset paging.
func parseSearch(r *http.Request) (appcatalog.SearchRequest, error) {
	var req appcatalog.SearchRequest
	qp := r.URL.Query()

	var exprs []filter.Expr

	if q := qp.Get("q"); q != "" {
		exprs = append(exprs, filter.AnyText{Text: q})
	}

	if bbox := qp.Get("bbox"); bbox != "" {
		wkt, err := parseBBox(bbox)
		if err != nil {
			return req, err
		}
		exprs = append(exprs, filter.Spatial{
			Property:  "bbox",
			Predicate: filter.SpatialBBox,
			WKT:       wkt,
		})
		req.RankGeometry = wkt
	}

	if dt := qp.Get("datetime"); dt != "" {
		expr, err := parseDatetime(dt)
		if err != nil {
			return req, err
		}
		exprs = append(exprs, expr)
	}

	if typ := qp.Get("type"); typ != "" {
		exprs = append(exprs, filter.Comparison{Property: "type", Op: filter.OpEqual, Value: typ})
	}

	switch len(exprs) {
	case 0:
	case 1:
		req.Constraint = exprs[0]
	default:
		req.Constraint = filter.And{Exprs: exprs}
	}

	if sortBy := qp.Get("sortby"); sortBy != "" {
		sort := catalog.SortSpec{Property: sortBy, Order: catalog.SortAscending}
		if strings.HasPrefix(sortBy, "-") {
			sort.Property = sortBy[1:]
			sort.Order = catalog.SortDescending
		}
		q, err := catalog.ResolveQueryable(sort.Property)
		if err != nil {
			return req, fmt.Errorf("cannot sort on %s", sort.Property)
		}
		sort.Spatial = q.Spatial
		req.Sort = &sort
	}

	var err error
	if req.Limit, err = parsePositiveInt(qp.Get("limit"), "limit"); err != nil {
		return req, err
	}
	if req.Offset, err = parsePositiveInt(qp.Get("offset"), "offset"); err != nil {
		return req, err
	}

	return req, nil
}

// parseBBox converts a "minx,miny,maxx,maxy" parameter into polygon WKT.
func parseBBox(s string) (string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return "", fmt.Errorf("bbox must be minx,miny,maxx,maxy")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return "", fmt.Errorf("invalid bbox coordinate %q", part)
		}
		coords[i] = v
	}
	if coords[0] > coords[2] || coords[1] > coords[3] {
		return "", fmt.Errorf("bbox minimum exceeds maximum")
	}

	return geo.BoundToWKT(orb.Bound{
		Min: orb.Point{coords[0], coords[1]},
		Max: orb.Point{coords[2], coords[3]},
	}), nil
}

// parseDatetime converts an instant or a "start/end" interval (either end
// may be open, "..") into a temporal constraint. Intervals match records
// whose own time range intersects the interval.
func parseDatetime(s string) (filter.Expr, error) {
	if !strings.Contains(s, "/") {
		return filter.Comparison{Property: "datetime", Op: filter.OpEqual, Value: s}, nil
	}

	parts := strings.SplitN(s, "/", 2)
	start, end := parts[0], parts[1]
	if start == ".." {
		start = ""
	}
	if end == ".." {
		end = ""
	}
	if start == "" && end == "" {
		return nil, fmt.Errorf("datetime interval cannot be open on both ends")
	}

	var exprs []filter.Expr
	if end != "" {
		exprs = append(exprs, filter.Comparison{Property: "time_begin", Op: filter.OpLessEqual, Value: end})
	}
	if start != "" {
		exprs = append(exprs, filter.Comparison{Property: "time_end", Op: filter.OpGreaterEqual, Value: start})
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return filter.And{Exprs: exprs}, nil
}

func parsePositiveInt(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
