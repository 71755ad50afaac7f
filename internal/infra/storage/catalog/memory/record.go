// Package memory provides an in-memory implementation of the catalogue's
// record repository for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	"github.com/tomkralidis/gocsw/internal/domain/geo"
)

var _ catalog.RecordRepository = (*RecordStore)(nil)
var _ catalog.MaintainableRepository = (*RecordStore)(nil)

// RecordStore keeps metadata records in a map, keyed by identifier.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]*catalog.Record

	// repoFilter, when set, masks the store so only matching records are
	// visible to queries.
	repoFilter filter.Expr
}

// StoreOption configures a record store.
type StoreOption func(*RecordStore)

// WithRepositoryFilter restricts every query to records matching the given
// constraint.
func WithRepositoryFilter(expr filter.Expr) StoreOption {
	return func(s *RecordStore) { s.repoFilter = expr }
}

// NewRecordStore creates a new in-memory record repository.
func NewRecordStore(opts ...StoreOption) *RecordStore {
	s := &RecordStore{records: make(map[string]*catalog.Record)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores a new record, rejecting duplicate identifiers.
func (s *RecordStore) Insert(_ context.Context, record *catalog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.Identifier]; exists {
		return fmt.Errorf("%w: %s", catalog.ErrDuplicateRecord, record.Identifier)
	}
	s.records[record.Identifier] = cloneRecord(record)
	return nil
}

// Update replaces an existing record wholesale.
func (s *RecordStore) Update(_ context.Context, record *catalog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.Identifier]; !exists {
		return fmt.Errorf("%w: %s", catalog.ErrRecordNotFound, record.Identifier)
	}
	s.records[record.Identifier] = cloneRecord(record)
	return nil
}

// UpdateProperties assigns new values to queryable properties on every
// record matching the constraint.
func (s *RecordStore) UpdateProperties(_ context.Context, constraint filter.Expr, updates []catalog.PropertyUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(updates) == 0 {
		return 0, fmt.Errorf("%w: no property updates given", filter.ErrInvalidFilter)
	}

	matched, err := s.match(constraint)
	if err != nil {
		return 0, err
	}

	for _, rec := range matched {
		for _, u := range updates {
			if err := rec.SetValue(u.Property, u.Value); err != nil {
				return 0, err
			}
		}
		rec.AnyText = rec.DeriveAnyText()
	}
	return len(matched), nil
}

// Delete removes every record matching the constraint, cascading to the
// records that declare a deleted record as their parent.
func (s *RecordStore) Delete(_ context.Context, constraint filter.Expr) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched, err := s.match(constraint)
	if err != nil {
		return 0, err
	}

	parents := make(map[string]bool)
	for _, rec := range matched {
		parents[rec.Identifier] = true
		delete(s.records, rec.Identifier)
	}

	deleted := len(matched)
	for id, rec := range s.records {
		if parents[rec.ParentIdentifier] {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Query runs a constrained, sorted, paged records query.
func (s *RecordStore) Query(_ context.Context, spec catalog.QuerySpec) (*catalog.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched, err := s.match(spec.Constraint)
	if err != nil {
		return nil, err
	}

	if err := sortRecords(matched, spec); err != nil {
		return nil, err
	}

	result := &catalog.QueryResult{Total: len(matched)}

	start := spec.StartPosition
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if spec.MaxRecords > 0 && start+spec.MaxRecords < end {
		end = start + spec.MaxRecords
	}

	result.Records = make([]*catalog.Record, 0, end-start)
	for _, rec := range matched[start:end] {
		result.Records = append(result.Records, cloneRecord(rec))
	}
	return result, nil
}

// QueryIDs fetches records by identifier; missing identifiers are simply
// absent from the result.
func (s *RecordStore) QueryIDs(_ context.Context, ids []string) ([]*catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*catalog.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		visible, err := s.visible(rec)
		if err != nil {
			return nil, err
		}
		if visible {
			records = append(records, cloneRecord(rec))
		}
	}
	return records, nil
}

// QueryDomain summarizes the values of a queryable property.
func (s *RecordStore) QueryDomain(_ context.Context, property string, mode catalog.DomainMode) ([]catalog.DomainValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := catalog.ResolveQueryable(property); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, rec := range s.records {
		visible, err := s.visible(rec)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		if v, ok := rec.ValueOf(property); ok {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}

	distinct := make([]string, 0, len(counts))
	for v := range counts {
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	switch mode {
	case catalog.DomainModeRange:
		return []catalog.DomainValue{
			{Value: distinct[0]},
			{Value: distinct[len(distinct)-1]},
		}, nil

	case catalog.DomainModeCount:
		values := make([]catalog.DomainValue, 0, len(distinct))
		for _, v := range distinct {
			values = append(values, catalog.DomainValue{Value: v, Count: counts[v]})
		}
		sort.SliceStable(values, func(i, j int) bool { return values[i].Count > values[j].Count })
		return values, nil

	case catalog.DomainModeList, "":
		values := make([]catalog.DomainValue, 0, len(distinct))
		for _, v := range distinct {
			values = append(values, catalog.DomainValue{Value: v})
		}
		return values, nil
	}

	return nil, fmt.Errorf("invalid domain mode: %s", mode)
}

// QueryInsertTime returns the newest or oldest insert date, the zero time
// when the store is empty.
func (s *RecordStore) QueryInsertTime(_ context.Context, direction catalog.InsertDirection) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t time.Time
	for _, rec := range s.records {
		visible, err := s.visible(rec)
		if err != nil {
			return time.Time{}, err
		}
		if !visible {
			continue
		}
		if t.IsZero() {
			t = rec.InsertDate
			continue
		}
		if direction == catalog.InsertOldest {
			if rec.InsertDate.Before(t) {
				t = rec.InsertDate
			}
		} else if rec.InsertDate.After(t) {
			t = rec.InsertDate
		}
	}
	return t, nil
}

// QuerySource fetches every record harvested from the given source.
func (s *RecordStore) QuerySource(_ context.Context, source string) ([]*catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*catalog.Record
	for _, rec := range s.records {
		if rec.Source != source {
			continue
		}
		visible, err := s.visible(rec)
		if err != nil {
			return nil, err
		}
		if visible {
			records = append(records, cloneRecord(rec))
		}
	}
	sortByIdentifier(records)
	return records, nil
}

// QueryCollections returns the records that other records declare as their
// parent, together with the records typed as collections.
func (s *RecordStore) QueryCollections(_ context.Context, constraint filter.Expr, limit int) ([]*catalog.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := make(map[string]bool)
	for _, rec := range s.records {
		visible, err := s.visible(rec)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		if rec.ParentIdentifier != "" {
			candidates[rec.ParentIdentifier] = true
		}
		if rec.IsCollection() {
			candidates[rec.Identifier] = true
		}
	}

	var records []*catalog.Record
	for id := range candidates {
		rec, ok := s.records[id]
		if !ok {
			continue
		}
		visible, err := s.visible(rec)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		if constraint != nil {
			match, err := filter.Matches(constraint, rec.AnyText, getter(rec))
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
		}
		records = append(records, cloneRecord(rec))
	}

	sortByIdentifier(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Describe returns the schema of the exposed record properties.
func (s *RecordStore) Describe(context.Context) (map[string]catalog.PropertySchema, error) {
	return catalog.DescribeQueryables(), nil
}

// Ping reports the store as always reachable.
func (s *RecordStore) Ping(context.Context) error { return nil }

// Reindex is a no-op for the in-memory store.
func (s *RecordStore) Reindex(context.Context) error { return nil }

// Optimize is a no-op for the in-memory store.
func (s *RecordStore) Optimize(context.Context) error { return nil }

// match returns the records satisfying the constraint, ordered by
// identifier for deterministic results. Callers must hold the lock.
func (s *RecordStore) match(constraint filter.Expr) ([]*catalog.Record, error) {
	if constraint != nil {
		if err := constraint.Validate(resolveQueryable); err != nil {
			return nil, err
		}
	}

	var matched []*catalog.Record
	for _, rec := range s.records {
		visible, err := s.visible(rec)
		if err != nil {
			return nil, err
		}
		if !visible {
			continue
		}
		if constraint != nil {
			ok, err := filter.Matches(constraint, rec.AnyText, getter(rec))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, rec)
	}
	sortByIdentifier(matched)
	return matched, nil
}

// visible reports whether the repository filter exposes the record.
func (s *RecordStore) visible(rec *catalog.Record) (bool, error) {
	if s.repoFilter == nil {
		return true, nil
	}
	return filter.Matches(s.repoFilter, rec.AnyText, getter(rec))
}

func resolveQueryable(property string) (string, bool, error) {
	q, err := catalog.ResolveQueryable(property)
	if err != nil {
		return "", false, err
	}
	return q.Column, q.Spatial, nil
}

func getter(rec *catalog.Record) filter.Getter {
	return func(property string) (string, bool) { return rec.ValueOf(property) }
}

// sortRecords orders matched records per the query spec: by overlay rank,
// by geometry area for spatial sorts, or by property value.
func sortRecords(records []*catalog.Record, spec catalog.QuerySpec) error {
	if spec.Rank != nil {
		ranks := make(map[string]float64, len(records))
		for _, rec := range records {
			ranks[rec.Identifier] = geo.OverlayRank(rec.WKTGeometry, spec.Rank.GeometryWKT)
		}
		sort.SliceStable(records, func(i, j int) bool {
			return ranks[records[i].Identifier] > ranks[records[j].Identifier]
		})
		return nil
	}

	if spec.Sort == nil {
		return nil
	}

	q, err := catalog.ResolveQueryable(spec.Sort.Property)
	if err != nil {
		return fmt.Errorf("%w: cannot sort on %s", catalog.ErrInvalidSortProperty, spec.Sort.Property)
	}

	descending := spec.Sort.Order == catalog.SortDescending

	if q.Spatial {
		sort.SliceStable(records, func(i, j int) bool {
			less := geo.Area(records[i].WKTGeometry) < geo.Area(records[j].WKTGeometry)
			if descending {
				return !less
			}
			return less
		})
		return nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, _ := records[i].ValueOf(spec.Sort.Property)
		b, _ := records[j].ValueOf(spec.Sort.Property)
		if descending {
			return compareValues(a, b) > 0
		}
		return compareValues(a, b) < 0
	})
	return nil
}

// compareValues orders two values numerically when both parse as numbers,
// lexically otherwise.
func compareValues(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func sortByIdentifier(records []*catalog.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].Identifier < records[j].Identifier })
}

func cloneRecord(rec *catalog.Record) *catalog.Record {
	out := *rec
	if rec.Bands != nil {
		out.Bands = append([]catalog.Band(nil), rec.Bands...)
	}
	if rec.Links != nil {
		out.Links = append([]catalog.Link(nil), rec.Links...)
	}
	if rec.Contacts != nil {
		out.Contacts = append([]catalog.Contact(nil), rec.Contacts...)
	}
	if rec.VertExtentMin != nil {
		v := *rec.VertExtentMin
		out.VertExtentMin = &v
	}
	if rec.VertExtentMax != nil {
		v := *rec.VertExtentMax
		out.VertExtentMax = &v
	}
	return &out
}
