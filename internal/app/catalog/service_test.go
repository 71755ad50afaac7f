package catalog_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	appcatalog "github.com/tomkralidis/gocsw/internal/app/catalog"
	"github.com/tomkralidis/gocsw/internal/app/notify"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/internal/infra/storage/catalog/memory"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
)

func newTestService(t *testing.T, maxRecords int) (*appcatalog.Service, *memory.RecordStore, *notify.CollectingNotifier) {
	t.Helper()

	store := memory.NewRecordStore()
	notifier := notify.NewCollectingNotifier()
	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)
	svc := appcatalog.NewService(store, store, notifier, log, noop.NewTracerProvider().Tracer("test"), maxRecords)
	return svc, store, notifier
}

func testRecord(id string) *catalog.Record {
	return &catalog.Record{
		Identifier: id,
		XML:        "<csw:Record/>",
		AnyText:    "lorem ipsum " + id,
	}
}

func TestService_InsertAppliesDefaultsAndNotifies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, notifier := newTestService(t, 0)

	rec := testRecord("rec-1")
	require.NoError(t, svc.Insert(ctx, rec))

	assert.Equal(t, catalog.DefaultTypename, rec.Typename)
	assert.False(t, rec.InsertDate.IsZero())

	got, err := svc.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", got.Identifier)

	changes := notifier.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, notify.ChangeCreated, changes[0].Type)
	assert.Equal(t, "rec-1", changes[0].Identifier)
}

func TestService_InsertRejectsInvalidRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, notifier := newTestService(t, 0)

	err := svc.Insert(ctx, &catalog.Record{Identifier: "rec-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrInvalidRecord)
	assert.Empty(t, notifier.Changes(), "invalid records must not notify")
}

func TestService_UpdateRefreshesInsertDate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, notifier := newTestService(t, 0)

	rec := testRecord("rec-1")
	require.NoError(t, svc.Insert(ctx, rec))
	firstInsert := rec.InsertDate

	time.Sleep(10 * time.Millisecond)

	updated := testRecord("rec-1")
	updated.Title = "revised"
	require.NoError(t, svc.Update(ctx, updated))
	assert.True(t, updated.InsertDate.After(firstInsert))

	changes := notifier.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, notify.ChangeUpdated, changes[1].Type)
}

func TestService_DeleteRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, notifier := newTestService(t, 0)

	require.NoError(t, svc.Insert(ctx, testRecord("rec-1")))
	require.NoError(t, svc.DeleteRecord(ctx, "rec-1"))

	_, err := svc.GetRecord(ctx, "rec-1")
	assert.ErrorIs(t, err, catalog.ErrRecordNotFound)

	err = svc.DeleteRecord(ctx, "rec-1")
	assert.ErrorIs(t, err, catalog.ErrRecordNotFound)

	changes := notifier.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, notify.ChangeDeleted, changes[1].Type)
}

func TestService_SearchClampsPageSize(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _ := newTestService(t, 3)

	for _, id := range []string{"rec-1", "rec-2", "rec-3", "rec-4", "rec-5"} {
		require.NoError(t, svc.Insert(ctx, testRecord(id)))
	}

	result, err := svc.Search(ctx, appcatalog.SearchRequest{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Len(t, result.Records, 3, "page size never exceeds the configured maximum")

	result, err = svc.Search(ctx, appcatalog.SearchRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
}

func TestService_SearchRejectsUnknownSortProperty(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, 0)

	_, err := svc.Search(context.Background(), appcatalog.SearchRequest{
		Sort: &catalog.SortSpec{Property: "nope"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrInvalidSortProperty)
}

func TestService_SearchRanksByQueryGeometry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _ := newTestService(t, 0)

	broad := testRecord("broad")
	broad.WKTGeometry = "POLYGON((0 0, 100 0, 100 100, 0 100, 0 0))"
	exact := testRecord("exact")
	exact.WKTGeometry = "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"
	require.NoError(t, svc.Insert(ctx, broad))
	require.NoError(t, svc.Insert(ctx, exact))

	result, err := svc.Search(ctx, appcatalog.SearchRequest{
		RankGeometry: "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))",
	})
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "exact", result.Records[0].Identifier)
}

func TestService_LoadRecords(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _ := newTestService(t, 0)

	require.NoError(t, svc.Insert(ctx, testRecord("existing")))

	records := []*catalog.Record{
		testRecord("new-1"),
		testRecord("existing"),
		{Identifier: "invalid"},
	}

	result, err := svc.LoadRecords(ctx, records, appcatalog.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.Failed, "duplicates fail when update is off")
}

func TestService_LoadRecordsWithUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _ := newTestService(t, 0)

	require.NoError(t, svc.Insert(ctx, testRecord("existing")))

	updated := testRecord("existing")
	updated.Title = "refreshed"

	result, err := svc.LoadRecords(ctx, []*catalog.Record{updated, testRecord("new-1")},
		appcatalog.LoadOptions{Update: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Failed)

	got, err := svc.GetRecord(ctx, "existing")
	require.NoError(t, err)
	assert.Equal(t, "refreshed", got.Title)
}

func TestService_DeleteByConstraint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _ := newTestService(t, 0)

	landsat := testRecord("rec-1")
	landsat.Platform = "landsat-8"
	require.NoError(t, svc.Insert(ctx, landsat))
	require.NoError(t, svc.Insert(ctx, testRecord("rec-2")))

	deleted, err := svc.Delete(ctx, filter.Comparison{
		Property: "platform", Op: filter.OpEqual, Value: "landsat-8",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestService_AwaitRepository(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, 0)
	require.NoError(t, svc.AwaitRepository(context.Background()))
}

func TestService_GetCollections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _ := newTestService(t, 0)

	coll := testRecord("coll-1")
	coll.Typename = catalog.TypenameCollection
	item := testRecord("item-1")
	item.ParentIdentifier = "coll-1"
	require.NoError(t, svc.Insert(ctx, coll))
	require.NoError(t, svc.Insert(ctx, item))

	collections, err := svc.GetCollections(ctx, 0)
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, "coll-1", collections[0].Identifier)
}
