package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// RecordColumns is the canonical column list for the records table, in the
// order every statement and scan in this package uses.
const RecordColumns = `identifier, typename, "schema", mdsource, insert_date, xml, anytext,
metadata, metadata_type, language, type, title, title_alternate, abstract, edition,
keywords, keywordstype, themes, parentidentifier, relation, time_begin, time_end,
topicategory, resourcelanguage, creator, publisher, contributor, organization,
securityconstraints, accessconstraints, otherconstraints, date, date_revision,
date_creation, date_publication, date_modified, format, crs, geodescode, denominator,
distancevalue, distanceuom, wkt_geometry, vert_extent_min, vert_extent_max,
servicetype, servicetypeversion, operation, couplingtype, operateson,
operatesonidentifier, operatesonname, degree, classification,
conditionapplyingtoaccessanduse, lineage, responsiblepartyrole, specificationtitle,
specificationdate, specificationdatetype, platform, instrument, sensortype,
cloudcover, bands, illuminationelevationangle, links, contacts`

// scanDest returns the scan destinations for a record row, in RecordColumns
// order.
func scanDest(r *Record) []any {
	return []any{
		&r.Identifier, &r.Typename, &r.Schema, &r.Mdsource, &r.InsertDate, &r.Xml, &r.Anytext,
		&r.Metadata, &r.MetadataType, &r.Language, &r.Type, &r.Title, &r.TitleAlternate, &r.Abstract, &r.Edition,
		&r.Keywords, &r.Keywordstype, &r.Themes, &r.Parentidentifier, &r.Relation, &r.TimeBegin, &r.TimeEnd,
		&r.Topicategory, &r.Resourcelanguage, &r.Creator, &r.Publisher, &r.Contributor, &r.Organization,
		&r.Securityconstraints, &r.Accessconstraints, &r.Otherconstraints, &r.Date, &r.DateRevision,
		&r.DateCreation, &r.DatePublication, &r.DateModified, &r.Format, &r.Crs, &r.Geodescode, &r.Denominator,
		&r.Distancevalue, &r.Distanceuom, &r.WktGeometry, &r.VertExtentMin, &r.VertExtentMax,
		&r.Servicetype, &r.Servicetypeversion, &r.Operation, &r.Couplingtype, &r.Operateson,
		&r.Operatesonidentifier, &r.Operatesonname, &r.Degree, &r.Classification,
		&r.Conditionapplyingtoaccessanduse, &r.Lineage, &r.Responsiblepartyrole, &r.Specificationtitle,
		&r.Specificationdate, &r.Specificationdatetype, &r.Platform, &r.Instrument, &r.Sensortype,
		&r.Cloudcover, &r.Bands, &r.Illuminationelevationangle, &r.Links, &r.Contacts,
	}
}

// args returns the bind arguments for a record, in RecordColumns order.
func (r *Record) args() []any {
	return []any{
		r.Identifier, r.Typename, r.Schema, r.Mdsource, r.InsertDate, r.Xml, r.Anytext,
		r.Metadata, r.MetadataType, r.Language, r.Type, r.Title, r.TitleAlternate, r.Abstract, r.Edition,
		r.Keywords, r.Keywordstype, r.Themes, r.Parentidentifier, r.Relation, r.TimeBegin, r.TimeEnd,
		r.Topicategory, r.Resourcelanguage, r.Creator, r.Publisher, r.Contributor, r.Organization,
		r.Securityconstraints, r.Accessconstraints, r.Otherconstraints, r.Date, r.DateRevision,
		r.DateCreation, r.DatePublication, r.DateModified, r.Format, r.Crs, r.Geodescode, r.Denominator,
		r.Distancevalue, r.Distanceuom, r.WktGeometry, r.VertExtentMin, r.VertExtentMax,
		r.Servicetype, r.Servicetypeversion, r.Operation, r.Couplingtype, r.Operateson,
		r.Operatesonidentifier, r.Operatesonname, r.Degree, r.Classification,
		r.Conditionapplyingtoaccessanduse, r.Lineage, r.Responsiblepartyrole, r.Specificationtitle,
		r.Specificationdate, r.Specificationdatetype, r.Platform, r.Instrument, r.Sensortype,
		r.Cloudcover, r.Bands, r.Illuminationelevationangle, r.Links, r.Contacts,
	}
}

// recordPlaceholders is $1..$68 in RecordColumns order.
const recordPlaceholders = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33,
$34, $35, $36, $37, $38, $39, $40, $41, $42, $43, $44, $45, $46, $47, $48, $49, $50, $51,
$52, $53, $54, $55, $56, $57, $58, $59, $60, $61, $62, $63, $64, $65, $66, $67, $68`

const createRecord = `INSERT INTO records (` + RecordColumns + `)
VALUES (` + recordPlaceholders + `)`

// CreateRecord inserts a new record row.
func (q *Queries) CreateRecord(ctx context.Context, arg Record) error {
	_, err := q.db.Exec(ctx, createRecord, arg.args()...)
	return err
}

const updateRecord = `UPDATE records SET
(` + RecordColumns + `) = ROW(` + recordPlaceholders + `)
WHERE identifier = $1`

// UpdateRecord replaces every column of an existing record, keyed by
// identifier. Returns the number of rows updated.
func (q *Queries) UpdateRecord(ctx context.Context, arg Record) (int64, error) {
	tag, err := q.db.Exec(ctx, updateRecord, arg.args()...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getRecord = `SELECT ` + RecordColumns + ` FROM records WHERE identifier = $1`

// GetRecord fetches one record by identifier.
func (q *Queries) GetRecord(ctx context.Context, identifier string) (Record, error) {
	var r Record
	err := q.db.QueryRow(ctx, getRecord, identifier).Scan(scanDest(&r)...)
	return r, err
}

const listRecordsByIdentifiers = `SELECT ` + RecordColumns + ` FROM records WHERE identifier = ANY($1)`

// ListRecordsByIdentifiers fetches the records whose identifier appears in
// the given list.
func (q *Queries) ListRecordsByIdentifiers(ctx context.Context, identifiers []string) ([]Record, error) {
	rows, err := q.db.Query(ctx, listRecordsByIdentifiers, identifiers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return CollectRecords(rows)
}

const listRecordsBySource = `SELECT ` + RecordColumns + ` FROM records WHERE mdsource = $1`

// ListRecordsBySource fetches the records harvested from a source.
func (q *Queries) ListRecordsBySource(ctx context.Context, source string) ([]Record, error) {
	rows, err := q.db.Query(ctx, listRecordsBySource, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return CollectRecords(rows)
}

const listCollectionParents = `SELECT DISTINCT parentidentifier FROM records WHERE parentidentifier IS NOT NULL`

// ListCollectionParents returns the distinct parent identifiers present in
// the repository.
func (q *Queries) ListCollectionParents(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listCollectionParents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parents []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

const deleteRecordsByParents = `DELETE FROM records WHERE parentidentifier = ANY($1)`

// DeleteRecordsByParents removes the child records of the given parents,
// returning how many were deleted.
func (q *Queries) DeleteRecordsByParents(ctx context.Context, parents []string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteRecordsByParents, parents)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getLatestInsertTime = `SELECT MAX(insert_date) FROM records`

// GetLatestInsertTime returns the most recent insert date in the repository.
func (q *Queries) GetLatestInsertTime(ctx context.Context) (pgtype.Timestamptz, error) {
	var ts pgtype.Timestamptz
	err := q.db.QueryRow(ctx, getLatestInsertTime).Scan(&ts)
	return ts, err
}

const getEarliestInsertTime = `SELECT MIN(insert_date) FROM records`

// GetEarliestInsertTime returns the oldest insert date in the repository.
func (q *Queries) GetEarliestInsertTime(ctx context.Context) (pgtype.Timestamptz, error) {
	var ts pgtype.Timestamptz
	err := q.db.QueryRow(ctx, getEarliestInsertTime).Scan(&ts)
	return ts, err
}

// CollectRecords scans every row into a Record slice.
func CollectRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(scanDest(&r)...); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
