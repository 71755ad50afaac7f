package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	appcatalog "github.com/tomkralidis/gocsw/internal/app/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/internal/domain/geo"
)

// recordDocument is the on-disk JSON representation of a record used by
// load-records and export-records.
type recordDocument struct {
	ID          string            `json:"id"`
	Typename    string            `json:"typename,omitempty"`
	Type        string            `json:"type,omitempty"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Keywords    string            `json:"keywords,omitempty"`
	Language    string            `json:"language,omitempty"`
	Format      string            `json:"format,omitempty"`
	Collection  string            `json:"collection,omitempty"`
	Date        string            `json:"date,omitempty"`
	TimeBegin   string            `json:"time_begin,omitempty"`
	TimeEnd     string            `json:"time_end,omitempty"`
	Platform    string            `json:"platform,omitempty"`
	Instrument  string            `json:"instrument,omitempty"`
	BBox        []float64         `json:"bbox,omitempty"`
	Links       []catalog.Link    `json:"links,omitempty"`
	Contacts    []catalog.Contact `json:"contacts,omitempty"`
	Document    string            `json:"document,omitempty"`
	AnyText     string            `json:"anytext,omitempty"`
}

func (d recordDocument) toDomain() (*catalog.Record, error) {
	rec := &catalog.Record{
		Identifier:       d.ID,
		Typename:         d.Typename,
		Type:             d.Type,
		Title:            d.Title,
		Abstract:         d.Description,
		Keywords:         d.Keywords,
		Language:         d.Language,
		Format:           d.Format,
		ParentIdentifier: d.Collection,
		Date:             d.Date,
		TimeBegin:        d.TimeBegin,
		TimeEnd:          d.TimeEnd,
		Platform:         d.Platform,
		Instrument:       d.Instrument,
		Links:            d.Links,
		Contacts:         d.Contacts,
		XML:              d.Document,
		AnyText:          d.AnyText,
	}

	if len(d.BBox) > 0 {
		if len(d.BBox) != 4 {
			return nil, fmt.Errorf("bbox must have 4 values, got %d", len(d.BBox))
		}
		rec.WKTGeometry = geo.BoundToWKT(orb.Bound{
			Min: orb.Point{d.BBox[0], d.BBox[1]},
			Max: orb.Point{d.BBox[2], d.BBox[3]},
		})
	}

	if rec.AnyText == "" {
		parts := make([]string, 0, 4)
		for _, s := range []string{d.Title, d.Description, d.Keywords, d.Platform} {
			if s != "" {
				parts = append(parts, s)
			}
		}
		rec.AnyText = strings.Join(parts, " ")
	}

	return rec, nil
}

func toDocument(rec *catalog.Record) recordDocument {
	doc := recordDocument{
		ID:          rec.Identifier,
		Typename:    rec.Typename,
		Type:        rec.Type,
		Title:       rec.Title,
		Description: rec.Abstract,
		Keywords:    rec.Keywords,
		Language:    rec.Language,
		Format:      rec.Format,
		Collection:  rec.ParentIdentifier,
		Date:        rec.Date,
		TimeBegin:   rec.TimeBegin,
		TimeEnd:     rec.TimeEnd,
		Platform:    rec.Platform,
		Instrument:  rec.Instrument,
		Links:       rec.Links,
		Contacts:    rec.Contacts,
		Document:    rec.XML,
		AnyText:     rec.AnyText,
	}

	if rec.WKTGeometry != "" {
		if b, err := geo.ParseBound(rec.WKTGeometry); err == nil {
			doc.BBox = []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
		}
	}

	return doc
}

var (
	loadUpdate bool
	loadRate   float64
)

var loadRecordsCmd = &cobra.Command{
	Use:   "load-records <directory>",
	Short: "Bulk ingest a directory of JSON record documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		paths, err := filepath.Glob(filepath.Join(args[0], "*.json"))
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no .json files in %s", args[0])
		}

		records := make([]*catalog.Record, 0, len(paths))
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			var doc recordDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}

			rec, err := doc.toDomain()
			if err != nil {
				return fmt.Errorf("converting %s: %w", path, err)
			}
			records = append(records, rec)
		}

		result, err := e.catalog.LoadRecords(ctx, records, appcatalog.LoadOptions{
			Update:    loadUpdate,
			PerSecond: rate.Limit(loadRate),
		})
		if err != nil {
			return err
		}

		cmd.Printf("loaded %d records: %d inserted, %d updated, %d failed\n",
			len(records), result.Inserted, result.Updated, result.Failed)
		return nil
	},
}

var exportDir string

var exportRecordsCmd = &cobra.Command{
	Use:   "export-records",
	Short: "Export every record to a directory of JSON documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		if err := os.MkdirAll(exportDir, 0o755); err != nil {
			return err
		}

		const pageSize = 500
		var exported int
		for offset := 0; ; offset += pageSize {
			result, err := e.repo.Query(ctx, catalog.QuerySpec{
				Sort:          &catalog.SortSpec{Property: "identifier", Order: catalog.SortAscending},
				MaxRecords:    pageSize,
				StartPosition: offset,
			})
			if err != nil {
				return err
			}
			if len(result.Records) == 0 {
				break
			}

			for _, rec := range result.Records {
				data, err := json.MarshalIndent(toDocument(rec), "", "  ")
				if err != nil {
					return err
				}

				name := strings.NewReplacer("/", "_", ":", "_").Replace(rec.Identifier) + ".json"
				if err := os.WriteFile(filepath.Join(exportDir, name), data, 0o644); err != nil {
					return err
				}
				exported++
			}

			if offset+pageSize >= result.Total {
				break
			}
		}

		cmd.Printf("exported %d records to %s\n", exported, exportDir)
		return nil
	},
}

var (
	deleteIDs []string
	deleteAll bool
)

var deleteRecordsCmd = &cobra.Command{
	Use:   "delete-records",
	Short: "Delete records by identifier, or the whole repository with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(deleteIDs) == 0 && !deleteAll {
			return fmt.Errorf("nothing to delete: pass --id or --all")
		}

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		var constraint filter.Expr
		if len(deleteIDs) > 0 {
			constraint = filter.Comparison{
				Property: "identifier",
				Op:       filter.OpIn,
				Values:   deleteIDs,
			}
		}

		deleted, err := e.catalog.Delete(ctx, constraint)
		if err != nil {
			return err
		}

		cmd.Printf("deleted %d records\n", deleted)
		return nil
	},
}

func init() {
	loadRecordsCmd.Flags().BoolVar(&loadUpdate, "update", false, "replace records whose identifier already exists")
	loadRecordsCmd.Flags().Float64Var(&loadRate, "rate", 0, "maximum records per second, 0 for unthrottled")

	exportRecordsCmd.Flags().StringVar(&exportDir, "dir", "records-export", "directory to write the documents to")

	deleteRecordsCmd.Flags().StringSliceVar(&deleteIDs, "id", nil, "identifier to delete, repeatable")
	deleteRecordsCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every record in the repository")
}
