package records_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tomkralidis/gocsw/internal/api/routes/records"
	appcatalog "github.com/tomkralidis/gocsw/internal/app/catalog"
	"github.com/tomkralidis/gocsw/internal/infra/storage/catalog/memory"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
	"github.com/tomkralidis/gocsw/pkg/web"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)
	tracer := noop.NewTracerProvider().Tracer("test")

	store := memory.NewRecordStore()
	svc := appcatalog.NewService(store, store, nil, log, tracer, 0)

	app := web.NewApp(func(ctx context.Context, msg string, args ...any) {}, tracer)
	records.Routes(app, records.Config{Log: log, Catalog: svc})
	return app
}

func doJSON(t *testing.T, api http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	w := httptest.NewRecorder()
	api.ServeHTTP(w, httptest.NewRequest(method, target, reader))

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

const recordBody = `{
	"id": "rec-1",
	"title": "coastal imagery",
	"description": "imagery of the coast",
	"platform": "landsat-8",
	"bbox": [0, 0, 10, 10],
	"document": "<csw:Record/>"
}`

func TestRecordsAPI_CreateAndGet(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, resp := doJSON(t, api, http.MethodPost, "/v1/records", recordBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "created", resp["status"])
	assert.Equal(t, "rec-1", resp["identifier"])

	w, resp = doJSON(t, api, http.MethodGet, "/v1/records/rec-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rec-1", resp["id"])
	assert.Equal(t, "coastal imagery", resp["title"])
	assert.Equal(t, "imagery of the coast", resp["description"])
}

func TestRecordsAPI_CreateDuplicateConflicts(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, _ := doJSON(t, api, http.MethodPost, "/v1/records", recordBody)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, api, http.MethodPost, "/v1/records", recordBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_exists", resp["code"])
}

func TestRecordsAPI_CreateRejectsMissingFields(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, _ := doJSON(t, api, http.MethodPost, "/v1/records", `{"title": "no id"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordsAPI_GetMissingRecord(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, resp := doJSON(t, api, http.MethodGet, "/v1/records/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp["code"])
}

func TestRecordsAPI_Search(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, _ := doJSON(t, api, http.MethodPost, "/v1/records", recordBody)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, api, http.MethodGet, "/v1/records?q=coastal", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp["total"])
	assert.Equal(t, float64(1), resp["returned"])

	w, resp = doJSON(t, api, http.MethodGet, "/v1/records?q=nothing-matches", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp["total"])

	w, resp = doJSON(t, api, http.MethodGet, "/v1/records?bbox=bogus", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", resp["code"])
}

func TestRecordsAPI_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, _ := doJSON(t, api, http.MethodPost, "/v1/records", recordBody)
	require.Equal(t, http.StatusOK, w.Code)

	updated := strings.Replace(recordBody, "coastal imagery", "revised title", 1)
	w, resp := doJSON(t, api, http.MethodPut, "/v1/records/rec-1", updated)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "updated", resp["status"])

	w, resp = doJSON(t, api, http.MethodGet, "/v1/records/rec-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "revised title", resp["title"])

	w, resp = doJSON(t, api, http.MethodDelete, "/v1/records/rec-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", resp["status"])

	w, _ = doJSON(t, api, http.MethodDelete, "/v1/records/rec-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordsAPI_Queryables(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, resp := doJSON(t, api, http.MethodGet, "/v1/queryables", "")
	require.Equal(t, http.StatusOK, w.Code)

	queryables, ok := resp["queryables"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, queryables, "identifier")
	assert.Contains(t, queryables, "bbox")
}

func TestRecordsAPI_Domain(t *testing.T) {
	t.Parallel()
	api := newTestAPI(t)

	w, _ := doJSON(t, api, http.MethodPost, "/v1/records", recordBody)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, api, http.MethodGet, "/v1/domain/platform", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "platform", resp["property"])

	values, ok := resp["values"].([]any)
	require.True(t, ok)
	require.Len(t, values, 1)

	w, resp = doJSON(t, api, http.MethodGet, "/v1/domain/unknown-property", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", resp["code"])
}
