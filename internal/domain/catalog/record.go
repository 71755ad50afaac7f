// Package catalog defines the core domain types for the metadata catalogue:
// records, queryables, and the repository contracts the storage layer
// implements.
package catalog

import (
	"fmt"
	"time"
)

// Default values applied to records that omit them.
const (
	DefaultTypename     = "csw:Record"
	DefaultSchema       = "http://www.opengis.net/cat/csw/2.0.2"
	DefaultSource       = "local"
	DefaultMetadataType = "application/xml"
)

// TypenameCollection marks records that describe a collection rather than a
// dataset.
const TypenameCollection = "stac:Collection"

// Link describes a distribution link attached to a record.
type Link struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Protocol    string `json:"protocol,omitempty"`
	URL         string `json:"url"`
}

// Contact describes a responsible party attached to a record.
type Contact struct {
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
	Position     string `json:"position,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
}

// Band describes a sensor band for earth observation records.
type Band struct {
	Name  string   `json:"name"`
	Units string   `json:"units,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Record is a single metadata record in the repository. String fields that
// are empty are stored as NULL; the core fields are always populated.
type Record struct {
	// Core. Nothing happens without these.
	Identifier   string
	Typename     string
	Schema       string
	Source       string
	InsertDate   time.Time
	XML          string
	AnyText      string
	Metadata     string
	MetadataType string
	Language     string

	// Identification.
	Type             string
	Title            string
	TitleAlternate   string
	Abstract         string
	Edition          string
	Keywords         string
	KeywordsType     string
	Themes           string
	ParentIdentifier string
	Relation         string
	TimeBegin        string
	TimeEnd          string
	TopicCategory    string
	ResourceLanguage string

	// Attribution.
	Creator      string
	Publisher    string
	Contributor  string
	Organization string

	// Security.
	SecurityConstraints string
	AccessConstraints   string
	OtherConstraints    string

	// Dates. Stored as text to preserve the source encoding, matching the
	// catalogue's heterogeneous metadata inputs.
	Date            string
	DateRevision    string
	DateCreation    string
	DatePublication string
	DateModified    string

	Format string

	// Geospatial.
	CRS           string
	GeodesCode    string
	Denominator   string
	DistanceValue string
	DistanceUOM   string
	WKTGeometry   string
	VertExtentMin *float64
	VertExtentMax *float64

	// Service description.
	ServiceType          string
	ServiceTypeVersion   string
	Operation            string
	CouplingType         string
	OperatesOn           string
	OperatesOnIdentifier string
	OperatesOnName       string

	// INSPIRE conformance.
	Degree                  string
	Classification          string
	ConditionsApplyingToUse string
	Lineage                 string
	ResponsiblePartyRole    string
	SpecificationTitle      string
	SpecificationDate       string
	SpecificationDateType   string

	// Earth observation.
	Platform   string
	Instrument string
	SensorType string
	CloudCover string
	Bands      []Band
	OffNadir   string

	// Distribution.
	Links    []Link
	Contacts []Contact
}

// ApplyDefaults fills the defaultable core fields on a record that omits
// them. InsertDate is stamped with now when unset.
func (r *Record) ApplyDefaults(now time.Time) {
	if r.Typename == "" {
		r.Typename = DefaultTypename
	}
	if r.Schema == "" {
		r.Schema = DefaultSchema
	}
	if r.Source == "" {
		r.Source = DefaultSource
	}
	if r.MetadataType == "" {
		r.MetadataType = DefaultMetadataType
	}
	if r.InsertDate.IsZero() {
		r.InsertDate = now
	}
}

// Validate enforces the core record invariants before persistence.
func (r *Record) Validate() error {
	switch {
	case r.Identifier == "":
		return fmt.Errorf("%w: identifier is required", ErrInvalidRecord)
	case r.Typename == "":
		return fmt.Errorf("%w: typename is required", ErrInvalidRecord)
	case r.Schema == "":
		return fmt.Errorf("%w: schema is required", ErrInvalidRecord)
	case r.Source == "":
		return fmt.Errorf("%w: source is required", ErrInvalidRecord)
	case r.XML == "":
		return fmt.Errorf("%w: xml document is required", ErrInvalidRecord)
	case r.AnyText == "":
		return fmt.Errorf("%w: anytext is required", ErrInvalidRecord)
	case r.InsertDate.IsZero():
		return fmt.Errorf("%w: insert date is required", ErrInvalidRecord)
	}
	return nil
}

// IsCollection reports whether the record describes a collection.
func (r *Record) IsCollection() bool { return r.Typename == TypenameCollection }
