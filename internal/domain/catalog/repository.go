package catalog

import (
	"context"
	"time"

	"github.com/tomkralidis/gocsw/internal/domain/filter"
)

// SortOrder enumerates sort directions.
type SortOrder string

const (
	SortAscending  SortOrder = "ASC"
	SortDescending SortOrder = "DESC"
)

// SortSpec describes how query results are ordered. Spatial sorts order by
// geometry area rather than the raw column value.
type SortSpec struct {
	Property string
	Order    SortOrder
	Spatial  bool
}

// RankSpec requests spatial relevance ranking of results against a query
// geometry, most relevant first.
type RankSpec struct {
	GeometryWKT string
}

// QuerySpec describes a records query: an optional constraint, ordering,
// and paging.
type QuerySpec struct {
	Constraint    filter.Expr
	Sort          *SortSpec
	Rank          *RankSpec
	MaxRecords    int
	StartPosition int
}

// QueryResult carries one page of matches plus the total number of records
// matching the constraint before paging.
type QueryResult struct {
	Total   int
	Records []*Record
}

// DomainMode selects how property domain values are summarized.
type DomainMode string

const (
	DomainModeList  DomainMode = "list"
	DomainModeRange DomainMode = "range"
	DomainModeCount DomainMode = "count"
)

// DomainValue is one value of a property domain, with its frequency when
// DomainModeCount was requested.
type DomainValue struct {
	Value string
	Count int
}

// InsertDirection selects the newest or oldest repository update time.
type InsertDirection string

const (
	InsertNewest InsertDirection = "max"
	InsertOldest InsertDirection = "min"
)

// PropertyUpdate assigns a new value to a single queryable property during a
// constraint-based update.
type PropertyUpdate struct {
	Property string
	Value    string
}

// PropertySchema describes one exposed record property for Describe.
type PropertySchema struct {
	Title   string `json:"title"`
	Type    string `json:"type,omitempty"`
	Ref     string `json:"$ref,omitempty"`
	OGCRole string `json:"x-ogc-role,omitempty"`
}

// RecordRepository defines the behavior the catalogue requires of its
// record store.
type RecordRepository interface {
	Insert(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	UpdateProperties(ctx context.Context, constraint filter.Expr, updates []PropertyUpdate) (int, error)
	Delete(ctx context.Context, constraint filter.Expr) (int, error)

	Query(ctx context.Context, spec QuerySpec) (*QueryResult, error)
	QueryIDs(ctx context.Context, ids []string) ([]*Record, error)
	QueryDomain(ctx context.Context, property string, mode DomainMode) ([]DomainValue, error)
	QueryInsertTime(ctx context.Context, direction InsertDirection) (time.Time, error)
	QuerySource(ctx context.Context, source string) ([]*Record, error)
	QueryCollections(ctx context.Context, constraint filter.Expr, limit int) ([]*Record, error)

	Describe(ctx context.Context) (map[string]PropertySchema, error)
}

// MaintainableRepository is implemented by stores that support repository
// maintenance operations.
type MaintainableRepository interface {
	Ping(ctx context.Context) error
	Reindex(ctx context.Context) error
	Optimize(ctx context.Context) error
}
