package catalog

import (
	"fmt"
	"strings"
	"time"
)

// ValueOf returns the value a record holds for a public queryable property.
// ok is false when the record has no value for it.
func (r *Record) ValueOf(property string) (string, bool) {
	q, err := ResolveQueryable(property)
	if err != nil {
		return "", false
	}

	v := r.columnValue(q.Column)
	return v, v != ""
}

// SetValue assigns a queryable property on the record. Used by
// constraint-based property updates.
func (r *Record) SetValue(property, value string) error {
	q, err := ResolveQueryable(property)
	if err != nil {
		return err
	}

	switch q.Column {
	case "identifier":
		return fmt.Errorf("%w: identifier is immutable", ErrInvalidRecord)
	case "typename":
		r.Typename = value
	case "parentidentifier":
		r.ParentIdentifier = value
	case "title":
		r.Title = value
	case "abstract":
		r.Abstract = value
	case "keywords":
		r.Keywords = value
	case "edition":
		r.Edition = value
	case "type":
		r.Type = value
	case "date":
		r.Date = value
	case "time_begin":
		r.TimeBegin = value
	case "time_end":
		r.TimeEnd = value
	case "platform":
		r.Platform = value
	case "instrument":
		r.Instrument = value
	case "sensortype":
		r.SensorType = value
	case "illuminationelevationangle":
		r.OffNadir = value
	case "wkt_geometry":
		r.WKTGeometry = value
	case "mdsource":
		r.Source = value
	case "format":
		r.Format = value
	case "language":
		r.Language = value
	case "relation":
		r.Relation = value
	case "organization":
		r.Organization = value
	default:
		return fmt.Errorf("%w: property %s cannot be updated", ErrInvalidQueryable, property)
	}
	return nil
}

// anyTextProperties are the textual queryables folded into the anytext
// full-text blob, in a stable order.
var anyTextProperties = []string{
	"type", "title", "description", "keywords", "edition", "format",
	"relation", "organization", "platform", "instrument", "sensortype",
	"language",
}

// DeriveAnyText rebuilds the full-text blob from the record's textual
// queryable values. Property-based updates call this so the stored anytext
// keeps tracking the columns it is derived from.
func (r *Record) DeriveAnyText() string {
	parts := make([]string, 0, len(anyTextProperties))
	for _, p := range anyTextProperties {
		if v, ok := r.ValueOf(p); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// AnyTextColumns returns the backing columns of the anytext source
// properties, in derivation order.
func AnyTextColumns() []string {
	cols := make([]string, 0, len(anyTextProperties))
	for _, p := range anyTextProperties {
		cols = append(cols, queryables[p].Column)
	}
	return cols
}

func (r *Record) columnValue(column string) string {
	switch column {
	case "identifier":
		return r.Identifier
	case "typename":
		return r.Typename
	case "parentidentifier":
		return r.ParentIdentifier
	case "insert_date":
		if r.InsertDate.IsZero() {
			return ""
		}
		return r.InsertDate.UTC().Format(time.RFC3339)
	case "title":
		return r.Title
	case "abstract":
		return r.Abstract
	case "keywords":
		return r.Keywords
	case "edition":
		return r.Edition
	case "anytext":
		return r.AnyText
	case "wkt_geometry":
		return r.WKTGeometry
	case "type":
		return r.Type
	case "date":
		return r.Date
	case "time_begin":
		return r.TimeBegin
	case "time_end":
		return r.TimeEnd
	case "platform":
		return r.Platform
	case "instrument":
		return r.Instrument
	case "sensortype":
		return r.SensorType
	case "illuminationelevationangle":
		return r.OffNadir
	case "mdsource":
		return r.Source
	case "format":
		return r.Format
	case "language":
		return r.Language
	case "relation":
		return r.Relation
	case "organization":
		return r.Organization
	}
	return ""
}
