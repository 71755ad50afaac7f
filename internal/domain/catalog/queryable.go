package catalog

import "fmt"

// Queryable describes a public search property and the record column that
// backs it.
type Queryable struct {
	Name    string
	Column  string
	Spatial bool
}

// queryables maps the public property names clients may filter and sort on
// to their backing columns.
var queryables = map[string]Queryable{
	"identifier":       {Name: "identifier", Column: "identifier"},
	"type":             {Name: "type", Column: "type"},
	"typename":         {Name: "typename", Column: "typename"},
	"parentidentifier": {Name: "parentidentifier", Column: "parentidentifier"},
	"collections":      {Name: "collections", Column: "parentidentifier"},
	"updated":          {Name: "updated", Column: "insert_date"},
	"title":            {Name: "title", Column: "title"},
	"description":      {Name: "description", Column: "abstract"},
	"keywords":         {Name: "keywords", Column: "keywords"},
	"edition":          {Name: "edition", Column: "edition"},
	"anytext":          {Name: "anytext", Column: "anytext"},
	"bbox":             {Name: "bbox", Column: "wkt_geometry", Spatial: true},
	"date":             {Name: "date", Column: "date"},
	"datetime":         {Name: "datetime", Column: "date"},
	"time_begin":       {Name: "time_begin", Column: "time_begin"},
	"time_end":         {Name: "time_end", Column: "time_end"},
	"platform":         {Name: "platform", Column: "platform"},
	"instrument":       {Name: "instrument", Column: "instrument"},
	"sensortype":       {Name: "sensortype", Column: "sensortype"},
	"off_nadir":        {Name: "off_nadir", Column: "illuminationelevationangle"},
	"source":           {Name: "source", Column: "mdsource"},
	"format":           {Name: "format", Column: "format"},
	"language":         {Name: "language", Column: "language"},
	"relation":         {Name: "relation", Column: "relation"},
	"organization":     {Name: "organization", Column: "organization"},
}

// ResolveQueryable maps a public property name to its backing queryable.
func ResolveQueryable(name string) (Queryable, error) {
	q, ok := queryables[name]
	if !ok {
		return Queryable{}, fmt.Errorf("%w: %s", ErrInvalidQueryable, name)
	}
	return q, nil
}

// DescribeQueryables returns the JSON Schema style description of every
// public queryable property.
func DescribeQueryables() map[string]PropertySchema {
	out := make(map[string]PropertySchema, len(queryables))
	for name := range queryables {
		ps := PropertySchema{Title: name, Type: "string"}
		switch name {
		case "identifier":
			ps.OGCRole = "id"
		case "bbox":
			ps = PropertySchema{Title: name, Ref: "https://geojson.org/schema/Polygon.json"}
		}
		out[name] = ps
	}
	return out
}

// Queryables returns every public queryable, keyed by property name.
func Queryables() map[string]Queryable {
	out := make(map[string]Queryable, len(queryables))
	for k, v := range queryables {
		out[k] = v
	}
	return out
}
