// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/querypath/cjareport/report"

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/querypath/cjareport/cja"
)

// Shape classifies a decoded report.
type Shape string

const (
	// ShapeNormal is a flat report: one row per dimension item.
	ShapeNormal Shape = "normal"
	// ShapeStatic is a pivoted freeform-table report: rows are synthesized
	// from STATIC_ROW pseudo-filters, values come from summary totals.
	ShapeStatic Shape = "static"
	// ShapeMulti tags the wide table produced by a breakdown traversal.
	ShapeMulti Shape = "multi"
)

// staticRowPrefix marks the pseudo-filter definitions that declare the rows
// of a static report.
const staticRowPrefix = "STATIC_ROW"

// DecodedRow is one row of a decoded report: a unique key, a label cell and
// the metric values in column order.
type DecodedRow struct {
	Key   string
	Cells []any
}

// DecodedTable is an ordered, key-unique set of decoded rows. Insertion
// order is the order rows were produced by the response.
type DecodedTable struct {
	rows  []DecodedRow
	index map[string]int
}

func newDecodedTable() *DecodedTable {
	return &DecodedTable{index: make(map[string]int)}
}

// put inserts a row, replacing any previous row with the same key in place.
func (t *DecodedTable) put(key string, cells []any) {
	if i, ok := t.index[key]; ok {
		t.rows[i].Cells = cells
		return
	}
	t.index[key] = len(t.rows)
	t.rows = append(t.rows, DecodedRow{Key: key, Cells: cells})
}

// Rows returns the rows in insertion order.
func (t *DecodedTable) Rows() []DecodedRow { return t.rows }

// Len returns the number of rows.
func (t *DecodedTable) Len() int { return len(t.rows) }

// Empty reports whether the table has no rows.
func (t *DecodedTable) Empty() bool { return len(t.rows) == 0 }

// Get returns the row for a key.
func (t *DecodedTable) Get(key string) (DecodedRow, bool) {
	i, ok := t.index[key]
	if !ok {
		return DecodedRow{}, false
	}
	return t.rows[i], true
}

// Decoded is the normalized form of one report response.
type Decoded struct {
	Shape Shape
	Table *DecodedTable
	// Columns are the resolved metric column names in column order. For
	// static reports this covers one row group (nb_columns entries).
	Columns []string
	// ColumnNames maps raw response column ids to their resolved names.
	ColumnNames map[string]string
	Summary     *cja.SummaryData
}

// decoder turns raw report responses into decoded tables with resolved
// column names.
type decoder struct {
	resolver *nameResolver
	logger   *zap.Logger
}

// decode detects the response shape and dispatches. Presence of the rows
// key is the sole discriminant between the two shapes.
func (d *decoder) decode(ctx context.Context, doc *cja.ReportRequest, resp *cja.ReportResponse) (*Decoded, error) {
	if resp == nil {
		return nil, decodeErrorf("nil response")
	}
	if resp.Rows != nil {
		return d.decodeNormal(ctx, doc, resp)
	}
	return d.decodeStatic(ctx, doc, resp)
}

// decodeNormal decodes a flat report: one row per item, cells are the item
// value followed by the metric values verbatim.
func (d *decoder) decodeNormal(ctx context.Context, doc *cja.ReportRequest, resp *cja.ReportResponse) (*Decoded, error) {
	table := newDecodedTable()
	for _, row := range resp.Rows {
		cells := make([]any, 0, len(row.Data)+1)
		cells = append(cells, row.Value)
		for _, v := range row.Data {
			cells = append(cells, v)
		}
		table.put(row.ItemID, cells)
	}

	translations, err := d.filterTranslations(ctx, doc.MetricContainer.MetricFilters)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(doc.MetricContainer.Metrics))
	columnNames := make(map[string]string, len(doc.MetricContainer.Metrics))
	for _, column := range doc.MetricContainer.Metrics {
		name, err := d.resolver.metricDisplay(ctx, column.ID)
		if err != nil {
			return nil, err
		}
		for _, defID := range column.Filters {
			display, ok := translations[defID]
			if !ok {
				return nil, decodeErrorf("metric column %q references undeclared filter %q", column.ColumnID, defID)
			}
			name += breakdownSep + display
		}
		columns = append(columns, name)
		columnNames[column.ColumnID] = name
	}

	d.logger.Debug("decoded normal report", zap.Int("rows", table.Len()), zap.Int("columns", len(columns)))

	return &Decoded{
		Shape:       ShapeNormal,
		Table:       table,
		Columns:     columns,
		ColumnNames: columnNames,
		Summary:     resp.SummaryData,
	}, nil
}

// filterTranslations resolves every metric filter definition into the
// display value appended to column names: breakdown items as
// "<dimension>:<itemId>", date ranges verbatim, segments by name.
func (d *decoder) filterTranslations(ctx context.Context, defs []cja.MetricFilter) (map[string]string, error) {
	translations := make(map[string]string, len(defs))
	for _, def := range defs {
		switch def.Type {
		case cja.FilterTypeBreakdown:
			translations[def.ID] = def.Dimension + ":" + def.ItemID
		case cja.FilterTypeDateRange:
			translations[def.ID] = def.DateRange
		case cja.FilterTypeSegment:
			display, err := d.resolver.filterDisplay(ctx, def.SegmentID)
			if err != nil {
				return nil, err
			}
			translations[def.ID] = display
		default:
			return nil, decodeErrorf("filter %q has unknown type %q", def.ID, def.Type)
		}
	}
	return translations, nil
}

// decodeStatic decodes a pivoted freeform-table report. Rows are declared by
// STATIC_ROW pseudo-filters in the request; values are carved out of the
// summary totals by matching each response column to its row group.
func (d *decoder) decodeStatic(ctx context.Context, doc *cja.ReportRequest, resp *cja.ReportResponse) (*Decoded, error) {
	if resp.Columns == nil || len(resp.Columns.ColumnIDs) == 0 {
		return nil, decodeErrorf("static report without columns")
	}
	if resp.SummaryData == nil || resp.SummaryData.Totals == nil {
		return nil, decodeErrorf("static report without summary totals")
	}

	defs := doc.MetricContainer.MetricFilters

	// Row declarations: STATIC_ROW pseudo-filter id -> the segment that
	// defines the row. Row order is first-appearance order.
	rowSegmentByDef := make(map[string]string)
	var rowSegments []string
	seen := make(map[string]bool)
	for _, def := range defs {
		if !strings.HasPrefix(def.ID, staticRowPrefix) {
			continue
		}
		rowSegmentByDef[def.ID] = def.SegmentID
		if !seen[def.SegmentID] {
			seen[def.SegmentID] = true
			rowSegments = append(rowSegments, def.SegmentID)
		}
	}
	if len(rowSegments) == 0 {
		return nil, decodeErrorf("static report without STATIC_ROW filters in request")
	}

	// Non-row filters, by definition id, rendered as display tokens.
	applied := make(map[string]string)
	for _, def := range defs {
		if strings.HasPrefix(def.ID, staticRowPrefix) {
			continue
		}
		switch def.Type {
		case cja.FilterTypeBreakdown:
			applied[def.ID] = def.Dimension + breakdownSep + def.ItemID
		case cja.FilterTypeSegment:
			applied[def.ID] = def.SegmentID
		case cja.FilterTypeDateRange:
			applied[def.ID] = def.DateRange
		}
	}

	// Each request metric column belongs to a row group through its first
	// filter; the remaining filters carry over to the column name.
	firstFilter := make(map[string]string, len(doc.MetricContainer.Metrics))
	extraFilters := make(map[string][]string)
	for _, column := range doc.MetricContainer.Metrics {
		if len(column.Filters) == 0 {
			return nil, decodeErrorf("metric column %q declares no filters in a static report", column.ColumnID)
		}
		firstFilter[column.ColumnID] = column.Filters[0]
		if len(column.Filters) > 1 {
			extraFilters[column.ColumnID] = column.Filters[1:]
		}
	}

	nbRows := len(rowSegments)
	if len(doc.MetricContainer.Metrics)%nbRows != 0 {
		return nil, decodeErrorf("static report with %d metric columns cannot be split into %d rows",
			len(doc.MetricContainer.Metrics), nbRows)
	}
	nbColumns := len(doc.MetricContainer.Metrics) / nbRows
	if nbColumns > len(resp.Columns.ColumnIDs) {
		return nil, decodeErrorf("static report declares %d columns per row but the response carries %d",
			nbColumns, len(resp.Columns.ColumnIDs))
	}

	// Row labels. A row segment that cannot be resolved is fatal: the name
	// is the row key.
	rowNames := make(map[string]string, nbRows)
	for _, segment := range rowSegments {
		if !isSegmentID(segment) {
			rowNames[segment] = segment
			continue
		}
		name, err := d.resolver.filterName(ctx, segment)
		if err != nil {
			return nil, err
		}
		rowNames[segment] = name
	}

	totals := resp.SummaryData.Totals
	table := newDecodedTable()
	for _, segment := range rowSegments {
		cells := []any{segment}
		for i, columnID := range resp.Columns.ColumnIDs {
			if i >= len(totals) {
				break
			}
			defID, ok := firstFilter[columnID]
			if !ok {
				return nil, decodeErrorf("response column %q does not match any requested metric column", columnID)
			}
			if rowSegmentByDef[defID] == segment {
				cells = append(cells, totals[i])
			}
		}
		table.put(rowNames[segment], cells)
	}

	// Column names for one row group: the metric id before the first
	// separator, then any non-row filters chained onto that column.
	columns := make([]string, 0, nbColumns)
	columnNames := make(map[string]string, nbColumns)
	for i := 0; i < nbColumns; i++ {
		columnID := resp.Columns.ColumnIDs[i]
		metricID, _, _ := strings.Cut(columnID, breakdownSep)
		name, err := d.resolver.metricDisplay(ctx, metricID)
		if err != nil {
			return nil, err
		}
		if _, ok := firstFilter[columnID]; !ok {
			return nil, decodeErrorf("response column %q does not match any requested metric column", columnID)
		}
		for _, extra := range extraFilters[columnID] {
			token, ok := applied[extra]
			if !ok {
				return nil, decodeErrorf("metric column %q references undeclared filter %q", columnID, extra)
			}
			display, err := d.resolver.filterDisplay(ctx, token)
			if err != nil {
				return nil, err
			}
			name += breakdownSep + display
		}
		columns = append(columns, name)
		columnNames[columnID] = name
	}

	d.logger.Debug("decoded static report",
		zap.Int("rows", nbRows),
		zap.Int("columns_per_row", nbColumns),
	)

	return &Decoded{
		Shape:       ShapeStatic,
		Table:       table,
		Columns:     columns,
		ColumnNames: columnNames,
		Summary:     resp.SummaryData,
	}, nil
}
