package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tomkralidis/gocsw/internal/db"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
)

// text maps an empty string to NULL; the nullable record columns all follow
// this convention.
func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func float8(f *float64) pgtype.Float8 {
	if f == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *f, Valid: true}
}

func textValue(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

func float8Value(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// toDBRecord converts a domain record into its row representation. The
// repeated-value fields (links, contacts, bands) are serialized to JSON.
func toDBRecord(rec *catalog.Record) (db.Record, error) {
	row := db.Record{
		Identifier:   rec.Identifier,
		Typename:     rec.Typename,
		Schema:       rec.Schema,
		Mdsource:     rec.Source,
		InsertDate:   pgtype.Timestamptz{Time: rec.InsertDate, Valid: true},
		Xml:          rec.XML,
		Anytext:      rec.AnyText,
		Metadata:     text(rec.Metadata),
		MetadataType: rec.MetadataType,
		Language:     text(rec.Language),

		Type:             text(rec.Type),
		Title:            text(rec.Title),
		TitleAlternate:   text(rec.TitleAlternate),
		Abstract:         text(rec.Abstract),
		Edition:          text(rec.Edition),
		Keywords:         text(rec.Keywords),
		Keywordstype:     text(rec.KeywordsType),
		Themes:           text(rec.Themes),
		Parentidentifier: text(rec.ParentIdentifier),
		Relation:         text(rec.Relation),
		TimeBegin:        text(rec.TimeBegin),
		TimeEnd:          text(rec.TimeEnd),
		Topicategory:     text(rec.TopicCategory),
		Resourcelanguage: text(rec.ResourceLanguage),

		Creator:      text(rec.Creator),
		Publisher:    text(rec.Publisher),
		Contributor:  text(rec.Contributor),
		Organization: text(rec.Organization),

		Securityconstraints: text(rec.SecurityConstraints),
		Accessconstraints:   text(rec.AccessConstraints),
		Otherconstraints:    text(rec.OtherConstraints),

		Date:            text(rec.Date),
		DateRevision:    text(rec.DateRevision),
		DateCreation:    text(rec.DateCreation),
		DatePublication: text(rec.DatePublication),
		DateModified:    text(rec.DateModified),

		Format: text(rec.Format),

		Crs:           text(rec.CRS),
		Geodescode:    text(rec.GeodesCode),
		Denominator:   text(rec.Denominator),
		Distancevalue: text(rec.DistanceValue),
		Distanceuom:   text(rec.DistanceUOM),
		WktGeometry:   text(rec.WKTGeometry),
		VertExtentMin: float8(rec.VertExtentMin),
		VertExtentMax: float8(rec.VertExtentMax),

		Servicetype:          text(rec.ServiceType),
		Servicetypeversion:   text(rec.ServiceTypeVersion),
		Operation:            text(rec.Operation),
		Couplingtype:         text(rec.CouplingType),
		Operateson:           text(rec.OperatesOn),
		Operatesonidentifier: text(rec.OperatesOnIdentifier),
		Operatesonname:       text(rec.OperatesOnName),

		Degree:                          text(rec.Degree),
		Classification:                  text(rec.Classification),
		Conditionapplyingtoaccessanduse: text(rec.ConditionsApplyingToUse),
		Lineage:                         text(rec.Lineage),
		Responsiblepartyrole:            text(rec.ResponsiblePartyRole),
		Specificationtitle:              text(rec.SpecificationTitle),
		Specificationdate:               text(rec.SpecificationDate),
		Specificationdatetype:           text(rec.SpecificationDateType),

		Platform:                   text(rec.Platform),
		Instrument:                 text(rec.Instrument),
		Sensortype:                 text(rec.SensorType),
		Cloudcover:                 text(rec.CloudCover),
		Illuminationelevationangle: text(rec.OffNadir),
	}

	if len(rec.Bands) > 0 {
		b, err := json.Marshal(rec.Bands)
		if err != nil {
			return db.Record{}, fmt.Errorf("failed to marshal bands: %w", err)
		}
		row.Bands = b
	}
	if len(rec.Links) > 0 {
		b, err := json.Marshal(rec.Links)
		if err != nil {
			return db.Record{}, fmt.Errorf("failed to marshal links: %w", err)
		}
		row.Links = b
	}
	if len(rec.Contacts) > 0 {
		b, err := json.Marshal(rec.Contacts)
		if err != nil {
			return db.Record{}, fmt.Errorf("failed to marshal contacts: %w", err)
		}
		row.Contacts = b
	}

	return row, nil
}

// toDomainRecord converts a row back into a domain record.
func toDomainRecord(row db.Record) (*catalog.Record, error) {
	rec := &catalog.Record{
		Identifier:   row.Identifier,
		Typename:     row.Typename,
		Schema:       row.Schema,
		Source:       row.Mdsource,
		InsertDate:   row.InsertDate.Time,
		XML:          row.Xml,
		AnyText:      row.Anytext,
		Metadata:     textValue(row.Metadata),
		MetadataType: row.MetadataType,
		Language:     textValue(row.Language),

		Type:             textValue(row.Type),
		Title:            textValue(row.Title),
		TitleAlternate:   textValue(row.TitleAlternate),
		Abstract:         textValue(row.Abstract),
		Edition:          textValue(row.Edition),
		Keywords:         textValue(row.Keywords),
		KeywordsType:     textValue(row.Keywordstype),
		Themes:           textValue(row.Themes),
		ParentIdentifier: textValue(row.Parentidentifier),
		Relation:         textValue(row.Relation),
		TimeBegin:        textValue(row.TimeBegin),
		TimeEnd:          textValue(row.TimeEnd),
		TopicCategory:    textValue(row.Topicategory),
		ResourceLanguage: textValue(row.Resourcelanguage),

		Creator:      textValue(row.Creator),
		Publisher:    textValue(row.Publisher),
		Contributor:  textValue(row.Contributor),
		Organization: textValue(row.Organization),

		SecurityConstraints: textValue(row.Securityconstraints),
		AccessConstraints:   textValue(row.Accessconstraints),
		OtherConstraints:    textValue(row.Otherconstraints),

		Date:            textValue(row.Date),
		DateRevision:    textValue(row.DateRevision),
		DateCreation:    textValue(row.DateCreation),
		DatePublication: textValue(row.DatePublication),
		DateModified:    textValue(row.DateModified),

		Format: textValue(row.Format),

		CRS:           textValue(row.Crs),
		GeodesCode:    textValue(row.Geodescode),
		Denominator:   textValue(row.Denominator),
		DistanceValue: textValue(row.Distancevalue),
		DistanceUOM:   textValue(row.Distanceuom),
		WKTGeometry:   textValue(row.WktGeometry),
		VertExtentMin: float8Value(row.VertExtentMin),
		VertExtentMax: float8Value(row.VertExtentMax),

		ServiceType:          textValue(row.Servicetype),
		ServiceTypeVersion:   textValue(row.Servicetypeversion),
		Operation:            textValue(row.Operation),
		CouplingType:         textValue(row.Couplingtype),
		OperatesOn:           textValue(row.Operateson),
		OperatesOnIdentifier: textValue(row.Operatesonidentifier),
		OperatesOnName:       textValue(row.Operatesonname),

		Degree:                  textValue(row.Degree),
		Classification:          textValue(row.Classification),
		ConditionsApplyingToUse: textValue(row.Conditionapplyingtoaccessanduse),
		Lineage:                 textValue(row.Lineage),
		ResponsiblePartyRole:    textValue(row.Responsiblepartyrole),
		SpecificationTitle:      textValue(row.Specificationtitle),
		SpecificationDate:       textValue(row.Specificationdate),
		SpecificationDateType:   textValue(row.Specificationdatetype),

		Platform:   textValue(row.Platform),
		Instrument: textValue(row.Instrument),
		SensorType: textValue(row.Sensortype),
		CloudCover: textValue(row.Cloudcover),
		OffNadir:   textValue(row.Illuminationelevationangle),
	}

	if len(row.Bands) > 0 {
		if err := json.Unmarshal(row.Bands, &rec.Bands); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bands: %w", err)
		}
	}
	if len(row.Links) > 0 {
		if err := json.Unmarshal(row.Links, &rec.Links); err != nil {
			return nil, fmt.Errorf("failed to unmarshal links: %w", err)
		}
	}
	if len(row.Contacts) > 0 {
		if err := json.Unmarshal(row.Contacts, &rec.Contacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contacts: %w", err)
		}
	}

	return rec, nil
}

func toDomainRecords(rows []db.Record) ([]*catalog.Record, error) {
	out := make([]*catalog.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toDomainRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
