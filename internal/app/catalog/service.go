// Package catalog provides the application service coordinating metadata
// record operations: searching, transactions, bulk ingest, and repository
// maintenance.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tomkralidis/gocsw/internal/app/notify"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
)

// DefaultMaxRecords caps one page of search results when the deployment
// does not configure its own limit.
const DefaultMaxRecords = 10

// SearchRequest describes one records search.
type SearchRequest struct {
	Constraint   filter.Expr
	Sort         *catalog.SortSpec
	RankGeometry string
	Limit        int
	Offset       int
}

// LoadOptions controls bulk ingest behavior.
type LoadOptions struct {
	// Update replaces records whose identifier already exists instead of
	// counting them as failures.
	Update bool

	// PerSecond throttles ingest; zero means unthrottled.
	PerSecond rate.Limit
}

// LoadResult summarizes a bulk ingest run.
type LoadResult struct {
	Inserted int
	Updated  int
	Failed   int
}

// Service coordinates catalogue operations over a record repository,
// emitting change notifications for every transaction.
type Service struct {
	repo       catalog.RecordRepository
	maint      catalog.MaintainableRepository
	notifier   notify.Notifier
	log        *logger.Logger
	tracer     trace.Tracer
	maxRecords int
}

// NewService creates the catalogue service. maxRecords caps one page of
// search results; zero selects DefaultMaxRecords.
func NewService(
	repo catalog.RecordRepository,
	maint catalog.MaintainableRepository,
	notifier notify.Notifier,
	log *logger.Logger,
	tracer trace.Tracer,
	maxRecords int,
) *Service {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &Service{
		repo:       repo,
		maint:      maint,
		notifier:   notifier,
		log:        log,
		tracer:     tracer,
		maxRecords: maxRecords,
	}
}

// Search runs a records query, validating the sort property and clamping
// the page size to the configured maximum.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*catalog.QueryResult, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.search")
	defer span.End()

	searchesTotal.Inc()

	if req.Sort != nil {
		if _, err := catalog.ResolveQueryable(req.Sort.Property); err != nil {
			return nil, fmt.Errorf("%w: cannot sort on %s", catalog.ErrInvalidSortProperty, req.Sort.Property)
		}
	}

	limit := req.Limit
	if limit <= 0 || limit > s.maxRecords {
		limit = s.maxRecords
	}

	spec := catalog.QuerySpec{
		Constraint:    req.Constraint,
		Sort:          req.Sort,
		MaxRecords:    limit,
		StartPosition: req.Offset,
	}
	if req.RankGeometry != "" {
		spec.Rank = &catalog.RankSpec{GeometryWKT: req.RankGeometry}
	}

	return s.repo.Query(ctx, spec)
}

// GetRecord fetches a single record by identifier.
func (s *Service) GetRecord(ctx context.Context, id string) (*catalog.Record, error) {
	records, err := s.repo.QueryIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", catalog.ErrRecordNotFound, id)
	}
	return records[0], nil
}

// GetRecords fetches records by identifier; missing identifiers are simply
// absent from the result.
func (s *Service) GetRecords(ctx context.Context, ids []string) ([]*catalog.Record, error) {
	return s.repo.QueryIDs(ctx, ids)
}

// GetDomain summarizes the values of a queryable property.
func (s *Service) GetDomain(ctx context.Context, property string, mode catalog.DomainMode) ([]catalog.DomainValue, error) {
	return s.repo.QueryDomain(ctx, property, mode)
}

// GetCollections returns the collection records of the catalogue.
func (s *Service) GetCollections(ctx context.Context, limit int) ([]*catalog.Record, error) {
	if limit <= 0 || limit > s.maxRecords {
		limit = s.maxRecords
	}
	return s.repo.QueryCollections(ctx, nil, limit)
}

// DescribeQueryables returns the schema of the exposed record properties.
func (s *Service) DescribeQueryables(ctx context.Context) (map[string]catalog.PropertySchema, error) {
	return s.repo.Describe(ctx)
}

// InsertTime returns the newest or oldest repository update time.
func (s *Service) InsertTime(ctx context.Context, direction catalog.InsertDirection) (time.Time, error) {
	return s.repo.QueryInsertTime(ctx, direction)
}

// Insert stores a new record, stamping defaults, and emits a created
// notification.
func (s *Service) Insert(ctx context.Context, record *catalog.Record) (err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.insert")
	defer span.End()
	defer func() { observeTransaction("insert", err) }()

	record.ApplyDefaults(time.Now().UTC())
	if err := record.Validate(); err != nil {
		return err
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return err
	}

	s.publish(ctx, notify.NewRecordChange(notify.ChangeCreated, record.Identifier, record.Typename))
	return nil
}

// Update replaces an existing record wholesale, refreshing its insert date,
// and emits an updated notification.
func (s *Service) Update(ctx context.Context, record *catalog.Record) (err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update")
	defer span.End()
	defer func() { observeTransaction("update", err) }()

	record.ApplyDefaults(time.Now().UTC())
	record.InsertDate = time.Now().UTC()
	if err := record.Validate(); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return err
	}

	s.publish(ctx, notify.NewRecordChange(notify.ChangeUpdated, record.Identifier, record.Typename))
	return nil
}

// UpdateProperties assigns new values to queryable properties on every
// record matching the constraint, returning how many records changed.
func (s *Service) UpdateProperties(ctx context.Context, constraint filter.Expr, updates []catalog.PropertyUpdate) (int, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_properties")
	defer span.End()

	return s.repo.UpdateProperties(ctx, constraint, updates)
}

// Delete removes every record matching the constraint, returning how many
// records were removed including cascaded child records.
func (s *Service) Delete(ctx context.Context, constraint filter.Expr) (deleted int, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.delete")
	defer span.End()
	defer func() { observeTransaction("delete", err) }()

	return s.repo.Delete(ctx, constraint)
}

// DeleteRecord removes one record by identifier and emits a deleted
// notification.
func (s *Service) DeleteRecord(ctx context.Context, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.delete_record")
	defer span.End()
	defer func() { observeTransaction("delete", err) }()

	deleted, err := s.repo.Delete(ctx, filter.Comparison{
		Property: "identifier",
		Op:       filter.OpEqual,
		Value:    id,
	})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", catalog.ErrRecordNotFound, id)
	}

	s.publish(ctx, notify.NewRecordChange(notify.ChangeDeleted, id, ""))
	return nil
}

// LoadRecords bulk-ingests records, optionally throttled and optionally
// replacing existing identifiers. Invalid records are counted as failures
// rather than aborting the run.
func (s *Service) LoadRecords(ctx context.Context, records []*catalog.Record, opts LoadOptions) (LoadResult, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.load_records")
	defer span.End()

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.PerSecond > 0 {
		limiter = rate.NewLimiter(opts.PerSecond, 1)
	}

	var result LoadResult
	for _, record := range records {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}

		err := s.Insert(ctx, record)
		switch {
		case err == nil:
			result.Inserted++

		case errors.Is(err, catalog.ErrDuplicateRecord) && opts.Update:
			if err := s.Update(ctx, record); err != nil {
				s.log.Error(ctx, "bulk load: update failed", "identifier", record.Identifier, "err", err)
				result.Failed++
				continue
			}
			result.Updated++

		default:
			s.log.Error(ctx, "bulk load: insert failed", "identifier", record.Identifier, "err", err)
			result.Failed++
		}
	}

	return result, nil
}

// AwaitRepository pings the repository with exponential backoff until it
// answers or the context expires.
func (s *Service) AwaitRepository(ctx context.Context) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 2 * time.Minute
	expBackoff.InitialInterval = time.Second

	operation := func() error {
		if err := s.maint.Ping(ctx); err != nil {
			s.log.Info(ctx, "repository not ready", "err", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return fmt.Errorf("repository unavailable: %w", err)
	}
	return nil
}

// publish sends a change notification. Failures are logged rather than
// failing the transaction that already committed.
func (s *Service) publish(ctx context.Context, change notify.RecordChange) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.RecordChanged(ctx, change); err != nil {
		s.log.Error(ctx, "failed to publish record change",
			"identifier", change.Identifier,
			"change_type", change.Type,
			"err", err,
		)
	}
}
