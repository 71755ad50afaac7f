package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
)

func newRecord(id string, mutate ...func(*catalog.Record)) *catalog.Record {
	rec := &catalog.Record{
		Identifier: id,
		XML:        "<csw:Record/>",
		AnyText:    "lorem ipsum " + id,
		InsertDate: time.Date(2021, 6, 15, 0, 0, 0, 0, time.UTC),
	}
	rec.ApplyDefaults(rec.InsertDate)
	for _, m := range mutate {
		m(rec)
	}
	return rec
}

func seedStore(t *testing.T, records ...*catalog.Record) *RecordStore {
	t.Helper()

	store := NewRecordStore()
	for _, rec := range records {
		require.NoError(t, store.Insert(context.Background(), rec))
	}
	return store
}

func TestRecordStore_InsertRejectsDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t, newRecord("rec-1"))

	err := store.Insert(ctx, newRecord("rec-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrDuplicateRecord)
}

func TestRecordStore_UpdateRequiresExistingRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t, newRecord("rec-1"))

	updated := newRecord("rec-1", func(r *catalog.Record) { r.Title = "revised" })
	require.NoError(t, store.Update(ctx, updated))

	got, err := store.QueryIDs(ctx, []string{"rec-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "revised", got[0].Title)

	err = store.Update(ctx, newRecord("missing"))
	assert.ErrorIs(t, err, catalog.ErrRecordNotFound)
}

func TestRecordStore_InsertIsolatesCallerRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rec := newRecord("rec-1", func(r *catalog.Record) { r.Title = "original" })
	store := seedStore(t, rec)

	rec.Title = "mutated after insert"

	got, err := store.QueryIDs(ctx, []string{"rec-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "original", got[0].Title)
}

func TestRecordStore_QueryConstraintAndPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) { r.Platform = "landsat-8" }),
		newRecord("rec-2", func(r *catalog.Record) { r.Platform = "landsat-8" }),
		newRecord("rec-3", func(r *catalog.Record) { r.Platform = "landsat-8" }),
		newRecord("rec-4", func(r *catalog.Record) { r.Platform = "sentinel-2" }),
	)

	result, err := store.Query(ctx, catalog.QuerySpec{
		Constraint: filter.Comparison{Property: "platform", Op: filter.OpEqual, Value: "landsat-8"},
		MaxRecords: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total, "total counts all matches before paging")
	require.Len(t, result.Records, 2)
	assert.Equal(t, "rec-1", result.Records[0].Identifier)
	assert.Equal(t, "rec-2", result.Records[1].Identifier)

	result, err = store.Query(ctx, catalog.QuerySpec{
		Constraint:    filter.Comparison{Property: "platform", Op: filter.OpEqual, Value: "landsat-8"},
		MaxRecords:    2,
		StartPosition: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "rec-3", result.Records[0].Identifier)
}

func TestRecordStore_QueryFullText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) { r.AnyText = "coastal erosion monitoring" }),
		newRecord("rec-2", func(r *catalog.Record) { r.AnyText = "forest cover change" }),
	)

	result, err := store.Query(ctx, catalog.QuerySpec{
		Constraint: filter.AnyText{Text: "erosion"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "rec-1", result.Records[0].Identifier)
}

func TestRecordStore_QuerySorting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) { r.Title = "charlie" }),
		newRecord("rec-2", func(r *catalog.Record) { r.Title = "alpha" }),
		newRecord("rec-3", func(r *catalog.Record) { r.Title = "bravo" }),
	)

	result, err := store.Query(ctx, catalog.QuerySpec{
		Sort: &catalog.SortSpec{Property: "title", Order: catalog.SortAscending},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	assert.Equal(t, "alpha", result.Records[0].Title)
	assert.Equal(t, "charlie", result.Records[2].Title)

	result, err = store.Query(ctx, catalog.QuerySpec{
		Sort: &catalog.SortSpec{Property: "title", Order: catalog.SortDescending},
	})
	require.NoError(t, err)
	assert.Equal(t, "charlie", result.Records[0].Title)

	_, err = store.Query(ctx, catalog.QuerySpec{
		Sort: &catalog.SortSpec{Property: "nope"},
	})
	assert.ErrorIs(t, err, catalog.ErrInvalidSortProperty)
}

func TestRecordStore_QuerySpatialAreaSort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("big", func(r *catalog.Record) {
			r.WKTGeometry = "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))"
		}),
		newRecord("small", func(r *catalog.Record) {
			r.WKTGeometry = "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"
		}),
	)

	result, err := store.Query(ctx, catalog.QuerySpec{
		Sort: &catalog.SortSpec{Property: "bbox", Order: catalog.SortAscending, Spatial: true},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "small", result.Records[0].Identifier)
	assert.Equal(t, "big", result.Records[1].Identifier)
}

func TestRecordStore_QueryOverlayRanking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Both records intersect the query box; the exact footprint outranks the
	// much larger one because it is more specific.
	store := seedStore(t,
		newRecord("broad", func(r *catalog.Record) {
			r.WKTGeometry = "POLYGON((0 0, 100 0, 100 100, 0 100, 0 0))"
		}),
		newRecord("exact", func(r *catalog.Record) {
			r.WKTGeometry = "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"
		}),
		newRecord("elsewhere", func(r *catalog.Record) {
			r.WKTGeometry = "POLYGON((50 50, 60 50, 60 60, 50 60, 50 50))"
		}),
	)

	result, err := store.Query(ctx, catalog.QuerySpec{
		Constraint: filter.Spatial{
			Property:  "bbox",
			Predicate: filter.SpatialBBox,
			WKT:       "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))",
		},
		Rank: &catalog.RankSpec{GeometryWKT: "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"},
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "exact", result.Records[0].Identifier)
	assert.Equal(t, "broad", result.Records[1].Identifier)
}

func TestRecordStore_DeleteCascadesToChildRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("coll-1", func(r *catalog.Record) { r.Typename = catalog.TypenameCollection }),
		newRecord("item-1", func(r *catalog.Record) { r.ParentIdentifier = "coll-1" }),
		newRecord("item-2", func(r *catalog.Record) { r.ParentIdentifier = "coll-1" }),
		newRecord("parent-1"),
		newRecord("child-1", func(r *catalog.Record) { r.ParentIdentifier = "parent-1" }),
		newRecord("unrelated"),
	)

	deleted, err := store.Delete(ctx, filter.Comparison{
		Property: "identifier", Op: filter.OpEqual, Value: "coll-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, deleted, "collection delete takes its members with it")

	deleted, err = store.Delete(ctx, filter.Comparison{
		Property: "identifier", Op: filter.OpEqual, Value: "parent-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted, "every deleted record takes its children with it")

	remaining, err := store.Query(ctx, catalog.QuerySpec{})
	require.NoError(t, err)
	require.Len(t, remaining.Records, 1)
	assert.Equal(t, "unrelated", remaining.Records[0].Identifier)
}

func TestRecordStore_UpdateProperties(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) { r.Platform = "landsat-8" }),
		newRecord("rec-2", func(r *catalog.Record) { r.Platform = "landsat-8" }),
		newRecord("rec-3", func(r *catalog.Record) { r.Platform = "sentinel-2" }),
	)

	updated, err := store.UpdateProperties(ctx,
		filter.Comparison{Property: "platform", Op: filter.OpEqual, Value: "landsat-8"},
		[]catalog.PropertyUpdate{{Property: "title", Value: "relabeled"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	got, err := store.QueryIDs(ctx, []string{"rec-1", "rec-3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "relabeled", got[0].Title)
	assert.Empty(t, got[1].Title)

	_, err = store.UpdateProperties(ctx, nil,
		[]catalog.PropertyUpdate{{Property: "identifier", Value: "x"}})
	assert.ErrorIs(t, err, catalog.ErrInvalidRecord)

	_, err = store.UpdateProperties(ctx, nil, nil)
	assert.ErrorIs(t, err, filter.ErrInvalidFilter)
}

func TestRecordStore_QueryDomain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) { r.Platform = "landsat-8" }),
		newRecord("rec-2", func(r *catalog.Record) { r.Platform = "landsat-8" }),
		newRecord("rec-3", func(r *catalog.Record) { r.Platform = "sentinel-2" }),
		newRecord("rec-4"),
	)

	values, err := store.QueryDomain(ctx, "platform", catalog.DomainModeList)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "landsat-8", values[0].Value)
	assert.Equal(t, "sentinel-2", values[1].Value)

	values, err = store.QueryDomain(ctx, "platform", catalog.DomainModeCount)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "landsat-8", values[0].Value)
	assert.Equal(t, 2, values[0].Count)
	assert.Equal(t, 1, values[1].Count)

	values, err = store.QueryDomain(ctx, "platform", catalog.DomainModeRange)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "landsat-8", values[0].Value)
	assert.Equal(t, "sentinel-2", values[1].Value)

	_, err = store.QueryDomain(ctx, "nope", catalog.DomainModeList)
	assert.ErrorIs(t, err, catalog.ErrInvalidQueryable)

	values, err = store.QueryDomain(ctx, "sensortype", catalog.DomainModeList)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRecordStore_QueryInsertTime(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	oldest := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newest := time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC)

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) { r.InsertDate = oldest }),
		newRecord("rec-2", func(r *catalog.Record) { r.InsertDate = newest }),
	)

	got, err := store.QueryInsertTime(ctx, catalog.InsertNewest)
	require.NoError(t, err)
	assert.Equal(t, newest, got)

	got, err = store.QueryInsertTime(ctx, catalog.InsertOldest)
	require.NoError(t, err)
	assert.Equal(t, oldest, got)

	empty := NewRecordStore()
	got, err = empty.QueryInsertTime(ctx, catalog.InsertNewest)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestRecordStore_QuerySource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) { r.Source = "https://example.org/csw" }),
		newRecord("rec-2"),
	)

	records, err := store.QuerySource(ctx, "https://example.org/csw")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].Identifier)
}

func TestRecordStore_QueryCollections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("coll-1", func(r *catalog.Record) {
			r.Typename = catalog.TypenameCollection
			r.Title = "imagery"
		}),
		newRecord("coll-2", func(r *catalog.Record) {
			r.Typename = catalog.TypenameCollection
			r.Title = "bathymetry"
		}),
		newRecord("coll-3", func(r *catalog.Record) {
			r.Typename = catalog.TypenameCollection
			r.Title = "empty collection"
		}),
		newRecord("item-1", func(r *catalog.Record) { r.ParentIdentifier = "coll-1" }),
		newRecord("item-2", func(r *catalog.Record) { r.ParentIdentifier = "coll-2" }),
		newRecord("orphan", func(r *catalog.Record) { r.ParentIdentifier = "gone" }),
	)

	records, err := store.QueryCollections(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, records, 3, "collections without members are still collections")
	assert.Equal(t, "coll-1", records[0].Identifier)
	assert.Equal(t, "coll-2", records[1].Identifier)
	assert.Equal(t, "coll-3", records[2].Identifier)

	records, err = store.QueryCollections(ctx,
		filter.Comparison{Property: "title", Op: filter.OpEqual, Value: "imagery"}, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "coll-1", records[0].Identifier)

	records, err = store.QueryCollections(ctx, nil, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordStore_RepositoryFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewRecordStore(WithRepositoryFilter(filter.Comparison{
		Property: "platform", Op: filter.OpEqual, Value: "landsat-8",
	}))

	visible := newRecord("rec-1", func(r *catalog.Record) {
		r.Platform = "landsat-8"
		r.Source = "https://example.org/csw"
	})
	masked := newRecord("rec-2", func(r *catalog.Record) {
		r.Platform = "sentinel-2"
		r.Source = "https://example.org/csw"
		r.InsertDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	maskedColl := newRecord("coll-1", func(r *catalog.Record) {
		r.Typename = catalog.TypenameCollection
		r.Platform = "sentinel-2"
	})
	require.NoError(t, store.Insert(ctx, visible))
	require.NoError(t, store.Insert(ctx, masked))
	require.NoError(t, store.Insert(ctx, maskedColl))

	result, err := store.Query(ctx, catalog.QuerySpec{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)

	got, err := store.QueryIDs(ctx, []string{"rec-1", "rec-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rec-1", got[0].Identifier)

	values, err := store.QueryDomain(ctx, "platform", catalog.DomainModeList)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "landsat-8", values[0].Value)

	records, err := store.QuerySource(ctx, "https://example.org/csw")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].Identifier)

	newest, err := store.QueryInsertTime(ctx, catalog.InsertNewest)
	require.NoError(t, err)
	assert.Equal(t, visible.InsertDate, newest, "masked records do not move the repository update time")

	collections, err := store.QueryCollections(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, collections)
}

func TestRecordStore_UpdatePropertiesRebuildsAnyText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := seedStore(t,
		newRecord("rec-1", func(r *catalog.Record) {
			r.Title = "coastal erosion"
			r.AnyText = "coastal erosion"
		}),
	)

	updated, err := store.UpdateProperties(ctx,
		filter.Comparison{Property: "identifier", Op: filter.OpEqual, Value: "rec-1"},
		[]catalog.PropertyUpdate{{Property: "title", Value: "beach monitoring"}},
	)
	require.NoError(t, err)
	require.Equal(t, 1, updated)

	result, err := store.Query(ctx, catalog.QuerySpec{Constraint: filter.AnyText{Text: "monitoring"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)

	result, err = store.Query(ctx, catalog.QuerySpec{Constraint: filter.AnyText{Text: "erosion"}})
	require.NoError(t, err)
	assert.Zero(t, result.Total, "the old title no longer matches full-text searches")
}

func TestRecordStore_Describe(t *testing.T) {
	t.Parallel()

	schemas, err := NewRecordStore().Describe(context.Background())
	require.NoError(t, err)
	assert.Contains(t, schemas, "identifier")
	assert.Contains(t, schemas, "bbox")
}
