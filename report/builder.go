// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

// Package report implements the reporting engine on top of the CJA API:
// request building, paginated fetching, response decoding with column-name
// resolution, and the recursive multi-dimension breakdown traversal.
package report // import "github.com/querypath/cjareport/report"

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/querypath/cjareport/cja"
)

// MaxPageSize is the largest page size the service accepts. Requests for
// more rows are satisfied by additional pages, never by a larger page.
const MaxPageSize = 20000

// breakdownSep joins a dimension id and an item id into a breakdown filter
// token, e.g. "variables/page:::home".
const breakdownSep = ":::"

var dateRangePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T[0-9:.]+/\d{4}-\d{2}-\d{2}T[0-9:.]+$`)

// Builder accumulates the pieces of a report request document: dimension,
// metrics, per-metric filters, global filters and behavior settings. The
// zero builder is not usable; call NewBuilder.
//
// A Builder is not safe for concurrent use. Document returns an independent
// snapshot, so documents already produced are unaffected by later mutation.
type Builder struct {
	dataViewID      string
	dimension       string
	limit           int
	repeatInstances bool
	returnNones     bool
	globalFilters   []string
	metrics         []string
	metricFilters   map[string][]string
}

// NewBuilder returns an empty request builder.
func NewBuilder() *Builder {
	return &Builder{
		metricFilters: make(map[string][]string),
	}
}

// SetDataViewID sets the data view the report runs against.
func (b *Builder) SetDataViewID(dataViewID string) {
	b.dataViewID = dataViewID
}

// SetDimension sets the breakdown dimension of the report.
func (b *Builder) SetDimension(dimension string) {
	b.dimension = dimension
}

// SetLimit sets the page size. Values above MaxPageSize are capped.
func (b *Builder) SetLimit(limit int) {
	b.limit = limit
}

// SetRepeatInstances sets whether repeat instances are counted.
func (b *Builder) SetRepeatInstances(count bool) {
	b.repeatInstances = count
}

// SetNoneBehavior sets whether the "none" value is returned as a row.
func (b *Builder) SetNoneBehavior(returnNones bool) {
	b.returnNones = returnNones
}

// AddGlobalFilter appends a filter id (segment id or date-range token)
// applied to the whole report.
func (b *Builder) AddGlobalFilter(filterID string) {
	b.globalFilters = append(b.globalFilters, filterID)
}

// AddMetric appends a metric column to the report.
func (b *Builder) AddMetric(metricID string) {
	b.metrics = append(b.metrics, metricID)
}

// AddMetricFilter attaches a filter id to one metric column. Attaching an id
// already present on that metric is a no-op.
func (b *Builder) AddMetricFilter(metricID, filterID string) {
	b.attachMetricFilter(metricID, filterID)
}

// attachMetricFilter reports whether the id was newly attached.
func (b *Builder) attachMetricFilter(metricID, filterID string) bool {
	for _, id := range b.metricFilters[metricID] {
		if id == filterID {
			return false
		}
	}
	b.metricFilters[metricID] = append(b.metricFilters[metricID], filterID)
	return true
}

func (b *Builder) detachMetricFilter(metricID, filterID string) {
	ids := b.metricFilters[metricID]
	kept := ids[:0]
	for _, id := range ids {
		if id != filterID {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(b.metricFilters, metricID)
	} else {
		b.metricFilters[metricID] = kept
	}
}

// RemoveMetricFilter detaches a filter id from every metric it appears on.
// Removing an id that was never attached is a no-op.
func (b *Builder) RemoveMetricFilter(filterID string) {
	for metricID := range b.metricFilters {
		b.detachMetricFilter(metricID, filterID)
	}
}

// Scope attaches the given filter ids to every metric and returns a handle
// whose Close detaches exactly the attachments Scope made: an id that was
// already attached to a metric before the scope opened stays attached after
// Close. Close is idempotent, so it can be deferred and still run safely on
// error paths.
func (b *Builder) Scope(filterIDs ...string) *FilterScope {
	scope := &FilterScope{builder: b}
	for _, filterID := range filterIDs {
		for _, metricID := range b.metrics {
			if b.attachMetricFilter(metricID, filterID) {
				scope.added = append(scope.added, filterAttachment{metricID: metricID, filterID: filterID})
			}
		}
	}
	return scope
}

// filterAttachment records one (metric, filter) pair added by a scope.
type filterAttachment struct {
	metricID string
	filterID string
}

// FilterScope is a scoped filter overlay created by Builder.Scope.
type FilterScope struct {
	builder *Builder
	added   []filterAttachment
	closed  bool
}

// Close removes the scoped filters from the builder.
func (s *FilterScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, a := range s.added {
		s.builder.detachMetricFilter(a.metricID, a.filterID)
	}
}

// Document produces a structural snapshot of the builder as a request
// document. Page always starts at 0; the page limit is capped at
// MaxPageSize.
func (b *Builder) Document() (*cja.ReportRequest, error) {
	if b.dataViewID == "" {
		return nil, &ValidationError{Field: "dataViewId", Message: "a data view id is required"}
	}
	if len(b.metrics) == 0 {
		return nil, &ValidationError{Field: "metrics", Message: "at least one metric is required"}
	}

	limit := b.limit
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	nones := cja.NonesExclude
	if b.returnNones {
		nones = cja.NonesReturn
	}

	doc := &cja.ReportRequest{
		DataID:    b.dataViewID,
		Dimension: b.dimension,
		Settings: cja.ReportSettings{
			CountRepeatInstances: b.repeatInstances,
			Limit:                limit,
			Page:                 0,
			NonesBehavior:        nones,
		},
		Statistics: cja.ReportStatistics{
			Functions: []string{"col-max", "col-min"},
		},
	}

	for _, filterID := range b.globalFilters {
		doc.GlobalFilters = append(doc.GlobalFilters, globalFilterDef(filterID))
	}

	// Filter definitions are numbered in first-use order across the metric
	// columns; attaching the same token to several metrics reuses one
	// definition.
	defIDs := make(map[string]string)
	for i, metricID := range b.metrics {
		column := cja.MetricColumn{
			ColumnID: strconv.Itoa(i),
			ID:       metricID,
		}
		if i == 0 {
			column.Sort = "desc"
		}
		for _, token := range b.metricFilters[metricID] {
			defID, ok := defIDs[token]
			if !ok {
				defID = strconv.Itoa(len(defIDs))
				defIDs[token] = defID
				doc.MetricContainer.MetricFilters = append(doc.MetricContainer.MetricFilters, metricFilterDef(defID, token))
			}
			column.Filters = append(column.Filters, defID)
		}
		doc.MetricContainer.Metrics = append(doc.MetricContainer.Metrics, column)
	}

	return doc, nil
}

// globalFilterDef classifies a filter token into a global filter entry.
func globalFilterDef(token string) cja.GlobalFilter {
	if isDateRange(token) {
		return cja.GlobalFilter{Type: cja.FilterTypeDateRange, DateRange: token}
	}
	return cja.GlobalFilter{Type: cja.FilterTypeSegment, SegmentID: token}
}

// metricFilterDef classifies a filter token into a metric filter definition.
// Tokens of the form "<dimension>:::<itemId>" are breakdowns, ISO-interval
// tokens are date ranges, everything else is a segment id.
func metricFilterDef(defID, token string) cja.MetricFilter {
	if dimension, itemID, ok := strings.Cut(token, breakdownSep); ok {
		return cja.MetricFilter{
			ID:        defID,
			Type:      cja.FilterTypeBreakdown,
			Dimension: dimension,
			ItemID:    itemID,
		}
	}
	if isDateRange(token) {
		return cja.MetricFilter{ID: defID, Type: cja.FilterTypeDateRange, DateRange: token}
	}
	return cja.MetricFilter{ID: defID, Type: cja.FilterTypeSegment, SegmentID: token}
}

func isDateRange(token string) bool {
	return dateRangePattern.MatchString(token)
}

// BreakdownFilterID composes the breakdown filter token for one item of a
// dimension.
func BreakdownFilterID(dimension, itemID string) string {
	return dimension + breakdownSep + itemID
}
