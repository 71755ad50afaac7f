package db

import "github.com/jackc/pgx/v5/pgtype"

// Record mirrors one row of the records table. Core columns are NOT NULL;
// everything else is nullable.
type Record struct {
	Identifier   string
	Typename     string
	Schema       string
	Mdsource     string
	InsertDate   pgtype.Timestamptz
	Xml          string
	Anytext      string
	Metadata     pgtype.Text
	MetadataType string
	Language     pgtype.Text

	Type             pgtype.Text
	Title            pgtype.Text
	TitleAlternate   pgtype.Text
	Abstract         pgtype.Text
	Edition          pgtype.Text
	Keywords         pgtype.Text
	Keywordstype     pgtype.Text
	Themes           pgtype.Text
	Parentidentifier pgtype.Text
	Relation         pgtype.Text
	TimeBegin        pgtype.Text
	TimeEnd          pgtype.Text
	Topicategory     pgtype.Text
	Resourcelanguage pgtype.Text

	Creator      pgtype.Text
	Publisher    pgtype.Text
	Contributor  pgtype.Text
	Organization pgtype.Text

	Securityconstraints pgtype.Text
	Accessconstraints   pgtype.Text
	Otherconstraints    pgtype.Text

	Date            pgtype.Text
	DateRevision    pgtype.Text
	DateCreation    pgtype.Text
	DatePublication pgtype.Text
	DateModified    pgtype.Text

	Format pgtype.Text

	Crs           pgtype.Text
	Geodescode    pgtype.Text
	Denominator   pgtype.Text
	Distancevalue pgtype.Text
	Distanceuom   pgtype.Text
	WktGeometry   pgtype.Text
	VertExtentMin pgtype.Float8
	VertExtentMax pgtype.Float8

	Servicetype          pgtype.Text
	Servicetypeversion   pgtype.Text
	Operation            pgtype.Text
	Couplingtype         pgtype.Text
	Operateson           pgtype.Text
	Operatesonidentifier pgtype.Text
	Operatesonname       pgtype.Text

	Degree                          pgtype.Text
	Classification                  pgtype.Text
	Conditionapplyingtoaccessanduse pgtype.Text
	Lineage                         pgtype.Text
	Responsiblepartyrole            pgtype.Text
	Specificationtitle              pgtype.Text
	Specificationdate               pgtype.Text
	Specificationdatetype           pgtype.Text

	Platform                   pgtype.Text
	Instrument                 pgtype.Text
	Sensortype                 pgtype.Text
	Cloudcover                 pgtype.Text
	Bands                      []byte
	Illuminationelevationangle pgtype.Text

	Links    []byte
	Contacts []byte
}
