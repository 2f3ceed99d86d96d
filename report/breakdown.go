// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/querypath/cjareport/report"

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// BreakdownRequest describes a multi-level breakdown report: the first
// dimension is reported as-is, every further dimension is fetched once per
// item retained from the previous level, carrying the ancestor filter chain.
type BreakdownRequest struct {
	// Dimensions to break down, outermost first.
	Dimensions []string
	// DimensionLimits caps the number of items retained per dimension. An
	// entry is required for every dimension; a value <= 0 means all items.
	DimensionLimits map[string]int
	// Metrics to report, in output column order.
	Metrics []string
	// DataViewID the report runs against.
	DataViewID string
	// GlobalFilters applied to the whole report (segment ids or date-range
	// tokens).
	GlobalFilters []string
	// MetricFilters statically attached to single metrics (metric id ->
	// filter id).
	MetricFilters map[string]string
	// CountRepeatInstances mirrors the report setting of the same name.
	CountRepeatInstances bool
	// ReturnNones controls whether "none" values come back as rows.
	ReturnNones bool
}

func (req *BreakdownRequest) validate() error {
	if len(req.Dimensions) == 0 {
		return &ValidationError{Field: "dimensions", Message: "at least one dimension is required"}
	}
	if req.DimensionLimits == nil {
		return &ValidationError{Field: "dimensionLimits", Message: "a limit per dimension is required"}
	}
	for _, dimension := range req.Dimensions {
		if _, ok := req.DimensionLimits[dimension]; !ok {
			return &ValidationError{Field: "dimensionLimits", Message: "no limit given for dimension " + dimension}
		}
	}
	if len(req.Metrics) == 0 {
		return &ValidationError{Field: "metrics", Message: "at least one metric is required"}
	}
	if req.DataViewID == "" {
		return &ValidationError{Field: "dataViewId", Message: "a data view id is required"}
	}
	if len(req.GlobalFilters) == 0 {
		return &ValidationError{Field: "globalFilters", Message: "at least one global filter is required"}
	}
	return nil
}

// breakdownItem is one retained item of a breakdown level: its id, display
// value, the filter id that produced it (re-applied when fetching its
// children) and the ancestor item ids above it, outermost first.
type breakdownItem struct {
	id        string
	value     string
	inherited string
	ancestors []string
}

// RunBreakdown runs the recursive per-dimension fan-out and stitches the
// per-item results into one wide table: dimension columns outermost-first,
// then the metric columns in request order, tagged "multi".
//
// Exactly one request is outstanding at any time; sibling items are fetched
// in the order the previous level returned them.
func (r *Reporter) RunBreakdown(ctx context.Context, req BreakdownRequest) (*Table, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	resolver := newNameResolver(r.client, r.logger)
	fetch := &fetcher{client: r.client, params: r.params, logger: r.logger}
	dec := &decoder{resolver: resolver, logger: r.logger}

	bld := NewBuilder()
	bld.SetDataViewID(req.DataViewID)
	bld.SetRepeatInstances(req.CountRepeatInstances)
	bld.SetNoneBehavior(req.ReturnNones)
	for _, filterID := range req.GlobalFilters {
		bld.AddGlobalFilter(filterID)
	}
	for _, metricID := range req.Metrics {
		bld.AddMetric(metricID)
	}
	for _, metricID := range sortedKeys(req.MetricFilters) {
		bld.AddMetricFilter(metricID, req.MetricFilters[metricID])
	}

	r.logger.Debug("starting breakdown traversal",
		zap.Strings("dimensions", req.Dimensions),
		zap.Strings("metrics", req.Metrics),
		zap.String("data_view_id", req.DataViewID),
	)

	// translate maps item ids to display values, one map per dimension.
	translate := make(map[string]map[string]string, len(req.Dimensions))

	// Level 0: one plain fetch, no ancestor filters.
	dimension := req.Dimensions[0]
	limit := req.DimensionLimits[dimension]
	bld.SetDimension(dimension)
	bld.SetLimit(limit)

	doc, err := bld.Document()
	if err != nil {
		return nil, err
	}
	resp, err := fetch.fetch(ctx, doc, limit)
	if err != nil {
		return nil, err
	}
	decoded, err := dec.decode(ctx, doc, resp)
	if err != nil {
		return nil, err
	}

	items := make([]breakdownItem, 0, decoded.Table.Len())
	translate[dimension] = make(map[string]string, decoded.Table.Len())
	for _, row := range decoded.Table.Rows() {
		value := rowLabel(row.Cells)
		items = append(items, breakdownItem{id: row.Key, value: value})
		translate[dimension][row.Key] = value
	}

	r.logger.Debug("breakdown level done",
		zap.Int("level", 0),
		zap.String("dimension", dimension),
		zap.Int("items", len(items)),
	)

	// The wide table holds the rows of the innermost level; each deeper
	// level replaces it.
	var wideRows [][]any
	if len(req.Dimensions) == 1 {
		for _, row := range decoded.Table.Rows() {
			cells := make([]any, 0, len(row.Cells))
			cells = append(cells, rowLabel(row.Cells))
			cells = append(cells, metricCells(row.Cells)...)
			wideRows = append(wideRows, cells)
		}
	}

	for level := 1; level < len(req.Dimensions); level++ {
		dimension = req.Dimensions[level]
		limit = req.DimensionLimits[dimension]
		bld.SetDimension(dimension)
		bld.SetLimit(limit)

		parentDim := req.Dimensions[level-1]
		translate[dimension] = make(map[string]string)

		var levelRows [][]any
		var nextItems []breakdownItem

		for _, parent := range items {
			parentFilter := BreakdownFilterID(parentDim, parent.id)
			scopeIDs := make([]string, 0, 2)
			if level > 1 && parent.inherited != "" {
				scopeIDs = append(scopeIDs, parent.inherited)
			}
			scopeIDs = append(scopeIDs, parentFilter)

			decoded, err := r.fetchScoped(ctx, bld, fetch, dec, scopeIDs, limit)
			if err != nil {
				return nil, err
			}

			chain := append(append([]string(nil), parent.ancestors...), parent.id)
			for _, row := range decoded.Table.Rows() {
				value := rowLabel(row.Cells)
				translate[dimension][row.Key] = value
				nextItems = append(nextItems, breakdownItem{
					id:        row.Key,
					value:     value,
					inherited: parentFilter,
					ancestors: chain,
				})

				// Prepend the resolved ancestor values, outermost first;
				// fall back to the raw item id when no translation exists.
				cells := make([]any, 0, level+len(row.Cells))
				for lvl := 0; lvl < level; lvl++ {
					ancestorID := chain[lvl]
					display, ok := translate[req.Dimensions[lvl]][ancestorID]
					if !ok {
						display = ancestorID
					}
					cells = append(cells, display)
				}
				cells = append(cells, value)
				cells = append(cells, metricCells(row.Cells)...)
				levelRows = append(levelRows, cells)
			}

			if decoded.Table.Empty() {
				r.logger.Debug("breakdown item has no children",
					zap.String("dimension", dimension),
					zap.String("parent", parent.id),
				)
			}
		}

		items = nextItems
		wideRows = levelRows

		r.logger.Debug("breakdown level done",
			zap.Int("level", level),
			zap.String("dimension", dimension),
			zap.Int("items", len(items)),
			zap.Int("rows", len(wideRows)),
		)
	}

	columns := make([]string, 0, len(req.Dimensions)+len(req.Metrics))
	columns = append(columns, req.Dimensions...)
	columns = append(columns, req.Metrics...)

	finalDoc, err := bld.Document()
	if err != nil {
		return nil, err
	}

	return newTable(columns, wideRows, finalDoc, ShapeMulti, nil, nil), nil
}

// fetchScoped runs one fetch+decode cycle with the given filter ids
// attached to every metric, removing exactly those attachments afterwards,
// also on error paths.
func (r *Reporter) fetchScoped(ctx context.Context, bld *Builder, fetch *fetcher, dec *decoder, scopeIDs []string, limit int) (*Decoded, error) {
	scope := bld.Scope(scopeIDs...)
	defer scope.Close()

	doc, err := bld.Document()
	if err != nil {
		return nil, err
	}
	resp, err := fetch.fetch(ctx, doc, limit)
	if err != nil {
		return nil, err
	}
	return dec.decode(ctx, doc, resp)
}

// rowLabel returns the label cell of a decoded row.
func rowLabel(cells []any) string {
	if len(cells) > 0 {
		if s, ok := cells[0].(string); ok {
			return s
		}
	}
	return ""
}

// metricCells returns the metric value cells of a decoded row.
func metricCells(cells []any) []any {
	if len(cells) == 0 {
		return nil
	}
	return cells[1:]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
