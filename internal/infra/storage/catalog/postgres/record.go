// Package postgres provides the PostgreSQL/PostGIS implementation of the
// catalogue's record repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tomkralidis/gocsw/internal/db"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/internal/infra/storage"
)

// geometryColumn is the native PostGIS geometry, maintained by trigger from
// the wkt_geometry column.
const geometryColumn = "wkb_geometry"

var _ catalog.RecordRepository = (*recordStore)(nil)
var _ catalog.MaintainableRepository = (*recordStore)(nil)

// recordStore manages metadata record persistence in PostgreSQL.
type recordStore struct {
	q      *db.Queries
	db     *pgxpool.Pool
	tracer trace.Tracer

	// repoFilter, when set, is ANDed into every query so the store only
	// exposes the configured subset of the records table.
	repoFilter filter.Expr
}

// StoreOption configures a record store.
type StoreOption func(*recordStore)

// WithRepositoryFilter restricts every query to records matching the given
// constraint.
func WithRepositoryFilter(expr filter.Expr) StoreOption {
	return func(s *recordStore) { s.repoFilter = expr }
}

// NewRecordStore creates a new PostgreSQL-backed record repository.
func NewRecordStore(pool *pgxpool.Pool, tracer trace.Tracer, opts ...StoreOption) *recordStore {
	s := &recordStore{
		q:      db.New(pool),
		db:     pool,
		tracer: tracer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// defaultDBAttributes defines standard OpenTelemetry attributes for database
// operations.
var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

// resolveColumn adapts the queryable registry to the filter compiler.
func resolveColumn(property string) (string, bool, error) {
	q, err := catalog.ResolveQueryable(property)
	if err != nil {
		return "", false, err
	}
	return q.Column, q.Spatial, nil
}

// constrain combines the repository filter with a query constraint.
func (s *recordStore) constrain(expr filter.Expr) filter.Expr {
	if s.repoFilter == nil {
		return expr
	}
	if expr == nil {
		return s.repoFilter
	}
	return filter.And{Exprs: []filter.Expr{s.repoFilter, expr}}
}

// whereClause compiles a constraint into a WHERE fragment with leading
// " WHERE ", or an empty string for an unconstrained query.
func (s *recordStore) whereClause(expr filter.Expr, argOffset int) (string, []any, error) {
	expr = s.constrain(expr)
	if expr == nil {
		return "", nil, nil
	}

	clause, args, err := filter.CompileSQL(expr, filter.SQLOptions{
		Resolve:        resolveColumn,
		GeometryColumn: geometryColumn,
		FTS:            true,
		ArgOffset:      argOffset,
	})
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + clause, args, nil
}

// maskSQL compiles the repository filter into a bare SQL fragment, empty
// when no filter is configured.
func (s *recordStore) maskSQL(argOffset int) (string, []any, error) {
	if s.repoFilter == nil {
		return "", nil, nil
	}
	return filter.CompileSQL(s.repoFilter, filter.SQLOptions{
		Resolve:        resolveColumn,
		GeometryColumn: geometryColumn,
		FTS:            true,
		ArgOffset:      argOffset,
	})
}

// Insert persists a new metadata record. Inserting an identifier that
// already exists returns catalog.ErrDuplicateRecord.
func (s *recordStore) Insert(ctx context.Context, record *catalog.Record) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("identifier", record.Identifier),
		attribute.String("typename", record.Typename),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.insert", dbAttrs, func(ctx context.Context) error {
		row, err := toDBRecord(record)
		if err != nil {
			return err
		}

		if err := s.q.CreateRecord(ctx, row); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return fmt.Errorf("%w: %s", catalog.ErrDuplicateRecord, record.Identifier)
			}
			return fmt.Errorf("insert error: %w", err)
		}
		return nil
	})
}

// Update replaces an existing record wholesale, keyed by identifier.
func (s *recordStore) Update(ctx context.Context, record *catalog.Record) error {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("identifier", record.Identifier),
	)

	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.update", dbAttrs, func(ctx context.Context) error {
		row, err := toDBRecord(record)
		if err != nil {
			return err
		}

		rowsAffected, err := s.q.UpdateRecord(ctx, row)
		if err != nil {
			return fmt.Errorf("update error: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: %s", catalog.ErrRecordNotFound, record.Identifier)
		}
		return nil
	})
}

// UpdateProperties assigns new values to queryable properties on every
// record matching the constraint, returning the number of records updated.
// The anytext blob of each touched record is re-derived from its updated
// columns in the same transaction.
func (s *recordStore) UpdateProperties(ctx context.Context, constraint filter.Expr, updates []catalog.PropertyUpdate) (int, error) {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.Int("update_count", len(updates)),
	)

	var updated int
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.update_properties", dbAttrs, func(ctx context.Context) error {
		if len(updates) == 0 {
			return fmt.Errorf("%w: no property updates given", filter.ErrInvalidFilter)
		}

		assignments := make([]string, 0, len(updates))
		values := make([]any, 0, len(updates))
		for _, u := range updates {
			q, err := catalog.ResolveQueryable(u.Property)
			if err != nil {
				return err
			}
			if q.Column == "identifier" {
				return fmt.Errorf("%w: identifier is immutable", catalog.ErrInvalidQueryable)
			}
			values = append(values, u.Value)
			assignments = append(assignments, fmt.Sprintf("%s = $%d", q.Column, len(values)))
		}

		where, whereArgs, err := s.whereClause(constraint, 0)
		if err != nil {
			return err
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction error: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		rows, err := tx.Query(ctx, "SELECT identifier FROM records"+where, whereArgs...)
		if err != nil {
			return fmt.Errorf("select error: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("collect error: %w", err)
		}

		updated = len(ids)
		if len(ids) == 0 {
			return tx.Commit(ctx)
		}

		sql := fmt.Sprintf("UPDATE records SET %s WHERE identifier = ANY($%d)",
			strings.Join(assignments, ", "), len(values)+1)
		if _, err := tx.Exec(ctx, sql, append(values, ids)...); err != nil {
			return fmt.Errorf("update properties error: %w", err)
		}

		// Rebuild the derived anytext of the touched rows.
		anytextSQL := "UPDATE records SET anytext = concat_ws(' ', " +
			strings.Join(catalog.AnyTextColumns(), ", ") + ") WHERE identifier = ANY($1)"
		if _, err := tx.Exec(ctx, anytextSQL, ids); err != nil {
			return fmt.Errorf("anytext rebuild error: %w", err)
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Delete removes every record matching the constraint. A deleted record also
// takes the records it is the parent of with it. Returns the total number of
// records removed.
func (s *recordStore) Delete(ctx context.Context, constraint filter.Expr) (int, error) {
	var deleted int
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.delete", defaultDBAttributes, func(ctx context.Context) error {
		where, args, err := s.whereClause(constraint, 0)
		if err != nil {
			return err
		}

		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction error: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		// Every deleted record cascades to its children.
		rows, err := tx.Query(ctx, "SELECT identifier FROM records"+where, args...)
		if err != nil {
			return fmt.Errorf("select parents error: %w", err)
		}
		parents, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("collect parents error: %w", err)
		}

		qtx := s.q.WithTx(tx)

		var cascaded int64
		if len(parents) > 0 {
			cascaded, err = qtx.DeleteRecordsByParents(ctx, parents)
			if err != nil {
				return fmt.Errorf("cascade delete error: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, "DELETE FROM records"+where, args...)
		if err != nil {
			return fmt.Errorf("delete error: %w", err)
		}

		deleted = int(tag.RowsAffected() + cascaded)
		return tx.Commit(ctx)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Query runs a constrained, sorted, paged records query. The total count is
// taken before paging is applied.
func (s *recordStore) Query(ctx context.Context, spec catalog.QuerySpec) (*catalog.QueryResult, error) {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.Int("max_records", spec.MaxRecords),
		attribute.Int("start_position", spec.StartPosition),
	)

	var result catalog.QueryResult
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.query", dbAttrs, func(ctx context.Context) error {
		where, args, err := s.whereClause(spec.Constraint, 0)
		if err != nil {
			return err
		}

		if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM records"+where, args...).Scan(&result.Total); err != nil {
			return fmt.Errorf("count error: %w", err)
		}

		orderBy, args, err := orderClause(spec, args)
		if err != nil {
			return err
		}

		sql := "SELECT " + db.RecordColumns + " FROM records" + where + orderBy
		if spec.MaxRecords > 0 {
			args = append(args, spec.MaxRecords)
			sql += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		if spec.StartPosition > 0 {
			args = append(args, spec.StartPosition)
			sql += fmt.Sprintf(" OFFSET $%d", len(args))
		}

		rows, err := s.db.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("query error: %w", err)
		}
		defer rows.Close()

		dbRecords, err := db.CollectRecords(rows)
		if err != nil {
			return fmt.Errorf("scan error: %w", err)
		}

		result.Records, err = toDomainRecords(dbRecords)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// orderClause renders the ORDER BY fragment for a query spec. Spatial sorts
// order by geometry area; rank orders by spatial overlay relevance against
// the query geometry, most relevant first.
func orderClause(spec catalog.QuerySpec, args []any) (string, []any, error) {
	if spec.Rank != nil {
		args = append(args, spec.Rank.GeometryWKT)
		qgeom := fmt.Sprintf("ST_GeomFromText($%d, 4326)", len(args))
		overlap := fmt.Sprintf("ST_Area(ST_Intersection(%s, %s))", geometryColumn, qgeom)
		rank := fmt.Sprintf(
			"COALESCE((%s / NULLIF(ST_Area(%s), 0)) * (%s / NULLIF(ST_Area(%s), 0)), 0)",
			overlap, qgeom, overlap, geometryColumn,
		)
		return " ORDER BY " + rank + " DESC", args, nil
	}

	if spec.Sort == nil {
		return "", args, nil
	}

	q, err := catalog.ResolveQueryable(spec.Sort.Property)
	if err != nil {
		return "", nil, fmt.Errorf("%w: cannot sort on %s", catalog.ErrInvalidSortProperty, spec.Sort.Property)
	}

	order := spec.Sort.Order
	if order == "" {
		order = catalog.SortAscending
	}

	if q.Spatial {
		return fmt.Sprintf(" ORDER BY ST_Area(%s) %s", geometryColumn, order), args, nil
	}
	return fmt.Sprintf(" ORDER BY %s %s", q.Column, order), args, nil
}

// QueryIDs fetches records by identifier. Missing identifiers are simply
// absent from the result.
func (s *recordStore) QueryIDs(ctx context.Context, ids []string) ([]*catalog.Record, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int("id_count", len(ids)))

	var records []*catalog.Record
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.query_ids", dbAttrs, func(ctx context.Context) error {
		var dbRecords []db.Record

		if s.repoFilter == nil {
			rows, err := s.q.ListRecordsByIdentifiers(ctx, ids)
			if err != nil {
				return fmt.Errorf("select error: %w", err)
			}
			dbRecords = rows
		} else {
			mask, maskArgs, err := s.maskSQL(1)
			if err != nil {
				return err
			}
			sql := "SELECT " + db.RecordColumns + " FROM records WHERE identifier = ANY($1) AND (" + mask + ")"
			rows, err := s.db.Query(ctx, sql, append([]any{ids}, maskArgs...)...)
			if err != nil {
				return fmt.Errorf("select error: %w", err)
			}
			defer rows.Close()

			dbRecords, err = db.CollectRecords(rows)
			if err != nil {
				return fmt.Errorf("scan error: %w", err)
			}
		}

		var err error
		records, err = toDomainRecords(dbRecords)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// QueryDomain summarizes the values of a queryable property: the distinct
// values, their min/max range, or per-value frequencies.
func (s *recordStore) QueryDomain(ctx context.Context, property string, mode catalog.DomainMode) ([]catalog.DomainValue, error) {
	dbAttrs := append(
		defaultDBAttributes,
		attribute.String("property", property),
		attribute.String("mode", string(mode)),
	)

	var values []catalog.DomainValue
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.query_domain", dbAttrs, func(ctx context.Context) error {
		q, err := catalog.ResolveQueryable(property)
		if err != nil {
			return err
		}

		mask, maskArgs, err := s.maskSQL(0)
		if err != nil {
			return err
		}

		switch mode {
		case catalog.DomainModeRange:
			var min, max *string
			sql := fmt.Sprintf("SELECT MIN(%s::text), MAX(%s::text) FROM records", q.Column, q.Column)
			if mask != "" {
				sql += " WHERE " + mask
			}
			if err := s.db.QueryRow(ctx, sql, maskArgs...).Scan(&min, &max); err != nil {
				return fmt.Errorf("domain range error: %w", err)
			}
			if min != nil {
				values = append(values, catalog.DomainValue{Value: *min})
			}
			if max != nil {
				values = append(values, catalog.DomainValue{Value: *max})
			}
			return nil

		case catalog.DomainModeCount:
			sql := fmt.Sprintf("SELECT %s::text, COUNT(*) FROM records WHERE %s IS NOT NULL", q.Column, q.Column)
			if mask != "" {
				sql += " AND (" + mask + ")"
			}
			sql += fmt.Sprintf(" GROUP BY %s ORDER BY COUNT(*) DESC", q.Column)
			rows, err := s.db.Query(ctx, sql, maskArgs...)
			if err != nil {
				return fmt.Errorf("domain count error: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var dv catalog.DomainValue
				if err := rows.Scan(&dv.Value, &dv.Count); err != nil {
					return fmt.Errorf("domain scan error: %w", err)
				}
				values = append(values, dv)
			}
			return rows.Err()

		case catalog.DomainModeList, "":
			sql := fmt.Sprintf("SELECT DISTINCT %s::text FROM records WHERE %s IS NOT NULL", q.Column, q.Column)
			if mask != "" {
				sql += " AND (" + mask + ")"
			}
			sql += fmt.Sprintf(" ORDER BY %s::text", q.Column)
			rows, err := s.db.Query(ctx, sql, maskArgs...)
			if err != nil {
				return fmt.Errorf("domain list error: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var dv catalog.DomainValue
				if err := rows.Scan(&dv.Value); err != nil {
					return fmt.Errorf("domain scan error: %w", err)
				}
				values = append(values, dv)
			}
			return rows.Err()
		}

		return fmt.Errorf("invalid domain mode: %s", mode)
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// QueryInsertTime returns the newest or oldest insert date in the
// repository, the zero time when the repository is empty.
func (s *recordStore) QueryInsertTime(ctx context.Context, direction catalog.InsertDirection) (time.Time, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("direction", string(direction)))

	var t time.Time
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.query_insert_time", dbAttrs, func(ctx context.Context) error {
		if s.repoFilter == nil {
			fetch := s.q.GetLatestInsertTime
			if direction == catalog.InsertOldest {
				fetch = s.q.GetEarliestInsertTime
			}

			ts, err := fetch(ctx)
			if err != nil {
				return fmt.Errorf("insert time error: %w", err)
			}
			if ts.Valid {
				t = ts.Time
			}
			return nil
		}

		agg := "MAX"
		if direction == catalog.InsertOldest {
			agg = "MIN"
		}
		mask, maskArgs, err := s.maskSQL(0)
		if err != nil {
			return err
		}

		var ts *time.Time
		sql := "SELECT " + agg + "(insert_date) FROM records WHERE " + mask
		if err := s.db.QueryRow(ctx, sql, maskArgs...).Scan(&ts); err != nil {
			return fmt.Errorf("insert time error: %w", err)
		}
		if ts != nil {
			t = *ts
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// QuerySource fetches every record harvested from the given source.
func (s *recordStore) QuerySource(ctx context.Context, source string) ([]*catalog.Record, error) {
	dbAttrs := append(defaultDBAttributes, attribute.String("source", source))

	var records []*catalog.Record
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.query_source", dbAttrs, func(ctx context.Context) error {
		var dbRecords []db.Record

		if s.repoFilter == nil {
			rows, err := s.q.ListRecordsBySource(ctx, source)
			if err != nil {
				return fmt.Errorf("select error: %w", err)
			}
			dbRecords = rows
		} else {
			mask, maskArgs, err := s.maskSQL(1)
			if err != nil {
				return err
			}
			sql := "SELECT " + db.RecordColumns + " FROM records WHERE mdsource = $1 AND (" + mask + ")"
			rows, err := s.db.Query(ctx, sql, append([]any{source}, maskArgs...)...)
			if err != nil {
				return fmt.Errorf("select error: %w", err)
			}
			defer rows.Close()

			dbRecords, err = db.CollectRecords(rows)
			if err != nil {
				return fmt.Errorf("scan error: %w", err)
			}
		}

		var err error
		records, err = toDomainRecords(dbRecords)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// QueryCollections returns the records that other records declare as their
// parent, together with the records typed as collections, optionally
// constrained and limited.
func (s *recordStore) QueryCollections(ctx context.Context, constraint filter.Expr, limit int) ([]*catalog.Record, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int("limit", limit))

	var records []*catalog.Record
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.query_collections", dbAttrs, func(ctx context.Context) error {
		var parents []string
		if s.repoFilter == nil {
			var err error
			parents, err = s.q.ListCollectionParents(ctx)
			if err != nil {
				return fmt.Errorf("select parents error: %w", err)
			}
		} else {
			mask, maskArgs, err := s.maskSQL(0)
			if err != nil {
				return err
			}
			rows, err := s.db.Query(ctx,
				"SELECT DISTINCT parentidentifier FROM records WHERE parentidentifier IS NOT NULL AND ("+mask+")",
				maskArgs...)
			if err != nil {
				return fmt.Errorf("select parents error: %w", err)
			}
			parents, err = pgx.CollectRows(rows, pgx.RowTo[string])
			if err != nil {
				return fmt.Errorf("collect parents error: %w", err)
			}
		}
		if parents == nil {
			parents = []string{}
		}

		args := []any{parents, catalog.TypenameCollection}
		sql := "SELECT " + db.RecordColumns + " FROM records WHERE (identifier = ANY($1) OR typename = $2)"

		if constraint = s.constrain(constraint); constraint != nil {
			clause, whereArgs, err := filter.CompileSQL(constraint, filter.SQLOptions{
				Resolve:        resolveColumn,
				GeometryColumn: geometryColumn,
				FTS:            true,
				ArgOffset:      len(args),
			})
			if err != nil {
				return err
			}
			sql += " AND (" + clause + ")"
			args = append(args, whereArgs...)
		}

		sql += " ORDER BY identifier"

		if limit > 0 {
			args = append(args, limit)
			sql += fmt.Sprintf(" LIMIT $%d", len(args))
		}

		rows, err := s.db.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("query error: %w", err)
		}
		defer rows.Close()

		dbRecords, err := db.CollectRecords(rows)
		if err != nil {
			return fmt.Errorf("scan error: %w", err)
		}

		records, err = toDomainRecords(dbRecords)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Describe returns the schema of the exposed record properties.
func (s *recordStore) Describe(ctx context.Context) (map[string]catalog.PropertySchema, error) {
	var schema map[string]catalog.PropertySchema
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.describe", defaultDBAttributes, func(ctx context.Context) error {
		schema = catalog.DescribeQueryables()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schema, nil
}

// Ping verifies the database is reachable.
func (s *recordStore) Ping(ctx context.Context) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.ping", defaultDBAttributes, func(ctx context.Context) error {
		var version string
		if err := s.db.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
			return fmt.Errorf("ping error: %w", err)
		}
		return nil
	})
}

// Reindex rebuilds the indexes on the records table.
func (s *recordStore) Reindex(ctx context.Context) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.reindex", defaultDBAttributes, func(ctx context.Context) error {
		if _, err := s.db.Exec(ctx, "REINDEX TABLE records"); err != nil {
			return fmt.Errorf("reindex error: %w", err)
		}
		return nil
	})
}

// Optimize reclaims dead rows and refreshes planner statistics.
func (s *recordStore) Optimize(ctx context.Context) error {
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.record.optimize", defaultDBAttributes, func(ctx context.Context) error {
		if _, err := s.db.Exec(ctx, "VACUUM ANALYZE records"); err != nil {
			return fmt.Errorf("optimize error: %w", err)
		}
		return nil
	})
}
