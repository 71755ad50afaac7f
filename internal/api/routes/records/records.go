// Package records provides the HTTP handlers for catalogue record search
// and transactions.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tomkralidis/gocsw/internal/api/errs"
	appcatalog "github.com/tomkralidis/gocsw/internal/app/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
	"github.com/tomkralidis/gocsw/pkg/web"
)

// Config contains the dependencies needed by the record handlers.
type Config struct {
	Log     *logger.Logger
	Catalog *appcatalog.Service
}

// Routes binds all the record endpoints.
func Routes(app *web.App, cfg Config) {
	app.HandlerFunc(http.MethodGet, "", "/v1/records", search(cfg))
	app.HandlerFunc(http.MethodGet, "", "/v1/records/{id}", get(cfg))
	app.HandlerFunc(http.MethodPost, "", "/v1/records", create(cfg))
	app.HandlerFunc(http.MethodPut, "", "/v1/records/{id}", update(cfg))
	app.HandlerFunc(http.MethodDelete, "", "/v1/records/{id}", remove(cfg))
	app.HandlerFunc(http.MethodGet, "", "/v1/collections", collections(cfg))
	app.HandlerFunc(http.MethodGet, "", "/v1/queryables", queryables(cfg))
	app.HandlerFunc(http.MethodGet, "", "/v1/domain/{property}", domain(cfg))
}

// searchResponse represents one page of search results.
type searchResponse struct {
	Total    int             `json:"total"`
	Returned int             `json:"returned"`
	Records  []recordPayload `json:"records"`
}

// Encode implements the web.Encoder interface.
func (sr searchResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// recordResponse represents a single record.
type recordResponse struct {
	recordPayload
}

// Encode implements the web.Encoder interface.
func (rr recordResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(rr.recordPayload)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// transactionResponse represents the outcome of a record transaction.
type transactionResponse struct {
	Status     string `json:"status"`
	Identifier string `json:"identifier"`
}

// Encode implements the web.Encoder interface.
func (tr transactionResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// collectionsResponse represents the collections of the catalogue.
type collectionsResponse struct {
	Collections []recordPayload `json:"collections"`
}

// Encode implements the web.Encoder interface.
func (cr collectionsResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(cr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// queryablesResponse represents the exposed record properties.
type queryablesResponse struct {
	Queryables map[string]catalog.PropertySchema `json:"queryables"`
}

// Encode implements the web.Encoder interface.
func (qr queryablesResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(qr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// domainResponse represents the value domain of one property.
type domainResponse struct {
	Property string                `json:"property"`
	Mode     string                `json:"mode"`
	Values   []catalog.DomainValue `json:"values"`
}

// Encode implements the web.Encoder interface.
func (dr domainResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(dr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func search(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		req, err := parseSearch(r)
		if err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		result, err := cfg.Catalog.Search(ctx, req)
		if err != nil {
			if isClientErr(err) {
				return errs.New(errs.InvalidArgument, err)
			}
			return errs.New(errs.Internal, err)
		}

		return searchResponse{
			Total:    result.Total,
			Returned: len(result.Records),
			Records:  fromDomainSlice(result.Records),
		}
	}
}

func get(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		rec, err := cfg.Catalog.GetRecord(ctx, web.Param(r, "id"))
		if err != nil {
			if errors.Is(err, catalog.ErrRecordNotFound) {
				return errs.New(errs.NotFound, err)
			}
			return errs.New(errs.Internal, err)
		}

		return recordResponse{fromDomain(rec)}
	}
}

func create(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var payload recordPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}
		if err := errs.Check(payload); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		rec, err := payload.toDomain()
		if err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := cfg.Catalog.Insert(ctx, rec); err != nil {
			switch {
			case errors.Is(err, catalog.ErrDuplicateRecord):
				return errs.New(errs.AlreadyExists, err)
			case errors.Is(err, catalog.ErrInvalidRecord):
				return errs.New(errs.InvalidArgument, err)
			}
			return errs.New(errs.Internal, err)
		}

		return transactionResponse{Status: "created", Identifier: rec.Identifier}
	}
}

func update(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		var payload recordPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}
		payload.ID = web.Param(r, "id")
		if err := errs.Check(payload); err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		rec, err := payload.toDomain()
		if err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		if err := cfg.Catalog.Update(ctx, rec); err != nil {
			switch {
			case errors.Is(err, catalog.ErrRecordNotFound):
				return errs.New(errs.NotFound, err)
			case errors.Is(err, catalog.ErrInvalidRecord):
				return errs.New(errs.InvalidArgument, err)
			}
			return errs.New(errs.Internal, err)
		}

		return transactionResponse{Status: "updated", Identifier: rec.Identifier}
	}
}

func remove(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		id := web.Param(r, "id")

		if err := cfg.Catalog.DeleteRecord(ctx, id); err != nil {
			if errors.Is(err, catalog.ErrRecordNotFound) {
				return errs.New(errs.NotFound, err)
			}
			return errs.New(errs.Internal, err)
		}

		return transactionResponse{Status: "deleted", Identifier: id}
	}
}

func collections(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		limit, err := parsePositiveInt(r.URL.Query().Get("limit"), "limit")
		if err != nil {
			return errs.New(errs.InvalidArgument, err)
		}

		recs, err := cfg.Catalog.GetCollections(ctx, limit)
		if err != nil {
			return errs.New(errs.Internal, err)
		}

		return collectionsResponse{Collections: fromDomainSlice(recs)}
	}
}

func queryables(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		schema, err := cfg.Catalog.DescribeQueryables(ctx)
		if err != nil {
			return errs.New(errs.Internal, err)
		}

		return queryablesResponse{Queryables: schema}
	}
}

func domain(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		property := web.Param(r, "property")

		mode := catalog.DomainMode(r.URL.Query().Get("mode"))
		if mode == "" {
			mode = catalog.DomainModeList
		}

		values, err := cfg.Catalog.GetDomain(ctx, property, mode)
		if err != nil {
			if isClientErr(err) {
				return errs.New(errs.InvalidArgument, err)
			}
			return errs.New(errs.Internal, err)
		}

		return domainResponse{
			Property: property,
			Mode:     string(mode),
			Values:   values,
		}
	}
}

// isClientErr reports whether the failure was caused by the request rather
// than the repository.
func isClientErr(err error) bool {
	return errors.Is(err, catalog.ErrInvalidQueryable) ||
		errors.Is(err, catalog.ErrInvalidSortProperty) ||
		errors.Is(err, filter.ErrInvalidFilter)
}
