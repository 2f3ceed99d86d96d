// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/querypath/cjareport/report"

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/querypath/cjareport/cja"
)

// Table is the normalized result of a report run: an ordered set of rows
// aligned to a fixed column order, plus the request document that produced
// it, the response shape and the summary payload. A Table is immutable
// after construction.
type Table struct {
	columns     []string
	rows        [][]any
	request     *cja.ReportRequest
	shape       Shape
	summary     *cja.SummaryData
	columnNames map[string]string
}

func newTable(columns []string, rows [][]any, request *cja.ReportRequest, shape Shape, summary *cja.SummaryData, columnNames map[string]string) *Table {
	return &Table{
		columns:     columns,
		rows:        rows,
		request:     request,
		shape:       shape,
		summary:     summary,
		columnNames: columnNames,
	}
}

// Columns returns the column names in order: dimension columns
// outermost-first, then metric columns in builder order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows.
func (t *Table) Rows() [][]any {
	out := make([][]any, len(t.rows))
	for i, row := range t.rows {
		out[i] = make([]any, len(row))
		copy(out[i], row)
	}
	return out
}

// Row returns one row by index.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Shape returns the report shape tag: normal, static or multi.
func (t *Table) Shape() Shape { return t.shape }

// Request returns the request document the table was produced from.
func (t *Table) Request() *cja.ReportRequest { return t.request }

// Summary returns the summary/statistics payload, passed through opaquely.
func (t *Table) Summary() *cja.SummaryData { return t.summary }

// ColumnNames returns the raw-column-id to resolved-name mapping.
func (t *Table) ColumnNames() map[string]string {
	out := make(map[string]string, len(t.columnNames))
	for k, v := range t.columnNames {
		out[k] = v
	}
	return out
}

// WriteCSV writes the table as CSV: a header row with the column names,
// then one record per row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	record := make([]string, len(t.columns))
	for _, row := range t.rows {
		for i := range record {
			if i < len(row) {
				record[i] = formatCell(row[i])
			} else {
				record[i] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the table as a JSON array of objects keyed by column
// name.
func (t *Table) WriteJSON(w io.Writer) error {
	records := make([]map[string]any, 0, len(t.rows))
	for _, row := range t.rows {
		record := make(map[string]any, len(t.columns))
		for i, column := range t.columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func formatCell(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}
