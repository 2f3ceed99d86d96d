// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/querypath/cjareport/report"

import (
	"context"

	"go.uber.org/zap"

	"github.com/querypath/cjareport/cja"
)

// Reporter runs report requests against an APIClient and turns the raw
// responses into Tables. It is safe for concurrent use; each run builds its
// own fetch/decode pipeline and name-resolution cache.
type Reporter struct {
	client APIClient
	params cja.ReportParams
	logger *zap.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) ReporterOption {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// WithReportParams sets the query-string knobs passed on every /reports
// call.
func WithReportParams(params cja.ReportParams) ReporterOption {
	return func(r *Reporter) {
		r.params = params
	}
}

// New creates a Reporter on top of a client.
func New(client APIClient, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		client: client,
		params: cja.DefaultReportParams(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOptions tune a single-report run.
type RunOptions struct {
	// Limit overrides the page size of the request (capped at MaxPageSize).
	Limit int
	// MaxResults stops pagination once this many rows were accumulated.
	// Zero or negative means fetch everything.
	MaxResults int
}

// Run executes one report request, following pagination, and decodes the
// response into a Table. The caller's document is not mutated.
func (r *Reporter) Run(ctx context.Context, doc *cja.ReportRequest, opts RunOptions) (*Table, error) {
	if doc == nil {
		return nil, &ValidationError{Field: "request", Message: "a request document is required"}
	}
	if doc.DataID == "" {
		return nil, &ValidationError{Field: "dataViewId", Message: "a data view id is required"}
	}

	request := cloneRequest(doc)
	if opts.Limit > 0 {
		request.Settings.Limit = opts.Limit
	}
	if request.Settings.Limit <= 0 || request.Settings.Limit > MaxPageSize {
		request.Settings.Limit = MaxPageSize
	}

	resolver := newNameResolver(r.client, r.logger)
	fetch := &fetcher{client: r.client, params: r.params, logger: r.logger}
	dec := &decoder{resolver: resolver, logger: r.logger}

	resp, err := fetch.fetch(ctx, request, opts.MaxResults)
	if err != nil {
		return nil, err
	}
	decoded, err := dec.decode(ctx, request, resp)
	if err != nil {
		return nil, err
	}

	return decodedToTable(decoded, request), nil
}

// decodedToTable lays a decoded single report out as a Table. Normal
// reports get an item-id column, the dimension value column and the metric
// columns; static reports get the row name, the raw row id and the
// per-row-group metric columns.
func decodedToTable(decoded *Decoded, request *cja.ReportRequest) *Table {
	var columns []string
	switch decoded.Shape {
	case ShapeStatic:
		columns = append([]string{"row", "rowId"}, decoded.Columns...)
	default:
		columns = append([]string{"itemId", request.Dimension}, decoded.Columns...)
	}

	rows := make([][]any, 0, decoded.Table.Len())
	for _, row := range decoded.Table.Rows() {
		cells := make([]any, 0, len(row.Cells)+1)
		cells = append(cells, row.Key)
		cells = append(cells, row.Cells...)
		rows = append(rows, cells)
	}

	return newTable(columns, rows, request, decoded.Shape, decoded.Summary, decoded.ColumnNames)
}

// cloneRequest deep-copies a request document so pagination and overlays
// never leak back into the caller's value.
func cloneRequest(doc *cja.ReportRequest) *cja.ReportRequest {
	out := *doc

	out.GlobalFilters = append([]cja.GlobalFilter(nil), doc.GlobalFilters...)
	out.Statistics.Functions = append([]string(nil), doc.Statistics.Functions...)

	out.MetricContainer.Metrics = make([]cja.MetricColumn, len(doc.MetricContainer.Metrics))
	for i, column := range doc.MetricContainer.Metrics {
		column.Filters = append([]string(nil), column.Filters...)
		out.MetricContainer.Metrics[i] = column
	}
	out.MetricContainer.MetricFilters = append([]cja.MetricFilter(nil), doc.MetricContainer.MetricFilters...)

	return &out
}
