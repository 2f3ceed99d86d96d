// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package cja // import "github.com/querypath/cjareport/cja"

import "encoding/json"

// Filter types used in global filters and metric filters.
const (
	FilterTypeSegment   = "segment"
	FilterTypeDateRange = "dateRange"
	FilterTypeBreakdown = "breakdown"
)

// NonesBehavior values accepted by report settings.
const (
	NonesReturn  = "return-nones"
	NonesExclude = "exclude-nones"
)

// ReportRequest is the request document sent to POST /reports.
type ReportRequest struct {
	DataID          string           `json:"dataId"`
	Dimension       string           `json:"dimension,omitempty"`
	GlobalFilters   []GlobalFilter   `json:"globalFilters,omitempty"`
	MetricContainer MetricContainer  `json:"metricContainer"`
	Settings        ReportSettings   `json:"settings"`
	Statistics      ReportStatistics `json:"statistics"`
}

// GlobalFilter restricts the whole report to a segment or a date range.
type GlobalFilter struct {
	Type      string `json:"type"`
	SegmentID string `json:"segmentId,omitempty"`
	DateRange string `json:"dateRange,omitempty"`
}

// MetricContainer holds the requested metric columns and the filter
// definitions those columns reference by id.
type MetricContainer struct {
	Metrics       []MetricColumn `json:"metrics"`
	MetricFilters []MetricFilter `json:"metricFilters,omitempty"`
}

// MetricColumn is one requested metric column. Filters lists the ids of
// MetricFilter definitions applied to this column, in application order.
type MetricColumn struct {
	ColumnID string   `json:"columnId"`
	ID       string   `json:"id"`
	Sort     string   `json:"sort,omitempty"`
	Filters  []string `json:"filters,omitempty"`
}

// MetricFilter is one filter definition referenced by metric columns.
// Exactly one of the value fields is set, according to Type.
type MetricFilter struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Dimension string `json:"dimension,omitempty"`
	ItemID    string `json:"itemId,omitempty"`
	SegmentID string `json:"segmentId,omitempty"`
	DateRange string `json:"dateRange,omitempty"`
}

// ReportSettings controls pagination and value behavior for one request.
type ReportSettings struct {
	CountRepeatInstances bool   `json:"countRepeatInstances"`
	Limit                int    `json:"limit"`
	Page                 int    `json:"page"`
	NonesBehavior        string `json:"nonesBehavior,omitempty"`
}

// ReportStatistics controls the summary statistics block of the response.
type ReportStatistics struct {
	Functions    []string `json:"functions,omitempty"`
	IgnoreZeroes bool     `json:"ignoreZeroes"`
}

// ReportParams are the query-string knobs of POST /reports.
type ReportParams struct {
	AllowRemoteLoad string
	UseCache        bool
	UseResultsCache bool
}

// DefaultReportParams mirrors the service defaults.
func DefaultReportParams() ReportParams {
	return ReportParams{AllowRemoteLoad: "default", UseCache: true}
}

// ReportResponse is the raw result of POST /reports. A normal report carries
// Rows; a static (freeform-table) report carries only summary data, and Rows
// stays nil.
type ReportResponse struct {
	TotalPages       int          `json:"totalPages"`
	FirstPage        bool         `json:"firstPage"`
	LastPage         bool         `json:"lastPage"`
	NumberOfElements int          `json:"numberOfElements"`
	TotalElements    int          `json:"totalElements"`
	Columns          *ColumnMeta  `json:"columns,omitempty"`
	Rows             []ReportRow  `json:"rows,omitempty"`
	SummaryData      *SummaryData `json:"summaryData,omitempty"`
}

// UnmarshalJSON treats a response that omits the lastPage key as the last
// page.
func (r *ReportResponse) UnmarshalJSON(data []byte) error {
	type plain ReportResponse
	aux := plain{LastPage: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = ReportResponse(aux)
	return nil
}

// ReportRow is one dimension item with its metric values, column-aligned
// with the request's metric list.
type ReportRow struct {
	ItemID string    `json:"itemId"`
	Value  string    `json:"value"`
	Data   []float64 `json:"data"`
}

// ColumnMeta describes the response columns.
type ColumnMeta struct {
	Dimension *DimensionMeta `json:"dimension,omitempty"`
	ColumnIDs []string       `json:"columnIds"`
}

// DimensionMeta identifies the dimension a report was broken down by.
type DimensionMeta struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// SummaryData carries the totals block of a response. For static reports
// Totals is the entire table, aligned with Columns.ColumnIDs.
type SummaryData struct {
	FilteredTotals []float64 `json:"filteredTotals,omitempty"`
	Totals         []float64 `json:"totals,omitempty"`
	ColMax         []float64 `json:"col-max,omitempty"`
	ColMin         []float64 `json:"col-min,omitempty"`
}

// Filter is a reusable segment definition (the CJA UI calls these filters).
type Filter struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	DataID      string         `json:"dataId,omitempty"`
	Owner       *Owner         `json:"owner,omitempty"`
	Definition  map[string]any `json:"definition,omitempty"`
}

// CalculatedMetric is a derived metric definition.
type CalculatedMetric struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	DataID      string         `json:"dataId,omitempty"`
	Type        string         `json:"type,omitempty"`
	Owner       *Owner         `json:"owner,omitempty"`
	Definition  map[string]any `json:"definition,omitempty"`
}

// DataView is a CJA data view.
type DataView struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	ParentDataGroupID string `json:"parentDataGroupId,omitempty"`
}

// DimensionInfo describes one dimension available in a data view.
type DimensionInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// MetricInfo describes one metric available in a data view.
type MetricInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Tag is a component tag.
type Tag struct {
	ID         int            `json:"id,omitempty"`
	Name       string         `json:"name"`
	Components []TagComponent `json:"components,omitempty"`
}

// TagComponent links a tag to a component.
type TagComponent struct {
	ComponentID   string `json:"componentId"`
	ComponentType string `json:"componentType"`
}

// Share grants one user or group access to a component.
type Share struct {
	ShareID       int    `json:"shareId,omitempty"`
	ShareToID     int    `json:"shareToId,omitempty"`
	ShareToImsID  string `json:"shareToImsId,omitempty"`
	ShareToType   string `json:"shareToType,omitempty"`
	AccessLevel   string `json:"accessLevel,omitempty"`
	ComponentID   string `json:"componentId,omitempty"`
	ComponentType string `json:"componentType,omitempty"`
}

// ComponentShares replaces the full share set of one component.
type ComponentShares struct {
	ComponentType string  `json:"componentType"`
	ComponentID   string  `json:"componentId"`
	Shares        []Share `json:"shares"`
}

// ShareSearch is the body of POST /componentmetadata/shares/component/search.
type ShareSearch struct {
	ComponentType string   `json:"componentType,omitempty"`
	ComponentIDs  []string `json:"componentIds,omitempty"`
	DataID        string   `json:"dataId,omitempty"`
}

// ComponentTags replaces the full tag set of one component.
type ComponentTags struct {
	ComponentType string `json:"componentType"`
	ComponentID   string `json:"componentId"`
	Tags          []Tag  `json:"tags"`
}

// Owner identifies the owner of a component.
type Owner struct {
	ID   string `json:"imsUserId,omitempty"`
	Name string `json:"name,omitempty"`
}

// AuditLog is one entry of the audit log.
type AuditLog struct {
	ID            string `json:"id"`
	DateCreated   string `json:"dateCreated,omitempty"`
	Action        string `json:"action,omitempty"`
	ComponentID   string `json:"componentId,omitempty"`
	ComponentType string `json:"componentType,omitempty"`
	UserID        string `json:"userId,omitempty"`
	Description   string `json:"description,omitempty"`
}

// AuditLogSearch is the body of POST /auditlogs/api/v1/auditlogs/search.
type AuditLogSearch struct {
	CriteriaOperator string              `json:"criteriaOperator,omitempty"`
	Criteria         []map[string]any    `json:"criteria,omitempty"`
	Pagination       *AuditLogPagination `json:"pagination,omitempty"`
}

// AuditLogPagination selects one page of audit log search results.
type AuditLogPagination struct {
	Limit int `json:"limit,omitempty"`
	Page  int `json:"page,omitempty"`
}

// TopItem is one entry of GET /reports/topItems.
type TopItem struct {
	ItemID string `json:"itemId"`
	Value  string `json:"value"`
}

// TopItemsResponse is the result of GET /reports/topItems.
type TopItemsResponse struct {
	Rows          []TopItem `json:"rows"`
	TotalElements int       `json:"totalElements"`
	LastPage      bool      `json:"lastPage"`
}

// page is the common paginated list envelope of the metadata endpoints.
type page[T any] struct {
	Content  []T   `json:"content"`
	LastPage *bool `json:"lastPage"`
	Number   int   `json:"number"`
	Total    int   `json:"totalElements"`
}

// lastPage treats an envelope that omits the lastPage key as the last page.
func (p *page[T]) lastPage() bool {
	return p.LastPage == nil || *p.LastPage
}
