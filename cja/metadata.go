// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package cja // import "github.com/querypath/cjareport/cja"

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const filterExpansion = "definition,owner,dataId,dataName,tags"

// notFound converts a 404 ServiceError into a NotFoundError for single-id
// lookups; other errors pass through unchanged.
func notFound(err error, kind, id string) error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.StatusCode == http.StatusNotFound {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// GetFilter returns a single filter definition by id.
func (c *Client) GetFilter(ctx context.Context, filterID string) (*Filter, error) {
	if filterID == "" {
		return nil, fmt.Errorf("filter id must be specified")
	}
	var filter Filter
	params := url.Values{"expansion": {filterExpansion}}
	if err := c.call(ctx, http.MethodGet, "/filters/"+filterID, params, nil, &filter); err != nil {
		return nil, notFound(err, "filter", filterID)
	}
	return &filter, nil
}

// GetFilters returns all filters visible to the caller, walking every page.
func (c *Client) GetFilters(ctx context.Context, limit int) ([]Filter, error) {
	if limit <= 0 {
		limit = 100
	}
	return listPages[Filter](ctx, c, "/filters", url.Values{
		"limit":       {strconv.Itoa(limit)},
		"includeType": {"all"},
	})
}

// CreateFilter creates a filter from its definition.
func (c *Client) CreateFilter(ctx context.Context, filter *Filter) (*Filter, error) {
	var created Filter
	if err := c.call(ctx, http.MethodPost, "/filters", nil, filter, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ValidateFilter validates a filter definition without creating it.
func (c *Client) ValidateFilter(ctx context.Context, filter *Filter) error {
	return c.call(ctx, http.MethodPost, "/filters/validate", nil, filter, nil)
}

// UpdateFilter updates a filter by id.
func (c *Client) UpdateFilter(ctx context.Context, filterID string, filter *Filter) (*Filter, error) {
	if filterID == "" {
		return nil, fmt.Errorf("filter id must be specified")
	}
	var updated Filter
	if err := c.call(ctx, http.MethodPut, "/filters/"+filterID, nil, filter, &updated); err != nil {
		return nil, notFound(err, "filter", filterID)
	}
	return &updated, nil
}

// DeleteFilter deletes a filter by id.
func (c *Client) DeleteFilter(ctx context.Context, filterID string) error {
	if filterID == "" {
		return fmt.Errorf("filter id must be specified")
	}
	err := c.call(ctx, http.MethodDelete, "/filters/"+filterID, nil, nil, nil)
	return notFound(err, "filter", filterID)
}

// GetCalculatedMetric returns a single calculated metric definition by id.
func (c *Client) GetCalculatedMetric(ctx context.Context, metricID string) (*CalculatedMetric, error) {
	if metricID == "" {
		return nil, fmt.Errorf("calculated metric id must be specified")
	}
	var metric CalculatedMetric
	params := url.Values{"expansion": {"definition,dataName,ownerFullName"}}
	if err := c.call(ctx, http.MethodGet, "/calculatedmetrics/"+metricID, params, nil, &metric); err != nil {
		return nil, notFound(err, "calculated metric", metricID)
	}
	return &metric, nil
}

// GetCalculatedMetrics returns all calculated metrics visible to the caller.
func (c *Client) GetCalculatedMetrics(ctx context.Context, limit int) ([]CalculatedMetric, error) {
	if limit <= 0 {
		limit = 100
	}
	return listPages[CalculatedMetric](ctx, c, "/calculatedmetrics", url.Values{
		"limit":       {strconv.Itoa(limit)},
		"includeType": {"all"},
	})
}

// CreateCalculatedMetric creates a calculated metric from its definition.
func (c *Client) CreateCalculatedMetric(ctx context.Context, metric *CalculatedMetric) (*CalculatedMetric, error) {
	var created CalculatedMetric
	if err := c.call(ctx, http.MethodPost, "/calculatedmetrics", nil, metric, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCalculatedMetric updates a calculated metric by id.
func (c *Client) UpdateCalculatedMetric(ctx context.Context, metricID string, metric *CalculatedMetric) (*CalculatedMetric, error) {
	if metricID == "" {
		return nil, fmt.Errorf("calculated metric id must be specified")
	}
	var updated CalculatedMetric
	if err := c.call(ctx, http.MethodPut, "/calculatedmetrics/"+metricID, nil, metric, &updated); err != nil {
		return nil, notFound(err, "calculated metric", metricID)
	}
	return &updated, nil
}

// DeleteCalculatedMetric deletes a calculated metric by id.
func (c *Client) DeleteCalculatedMetric(ctx context.Context, metricID string) error {
	if metricID == "" {
		return fmt.Errorf("calculated metric id must be specified")
	}
	err := c.call(ctx, http.MethodDelete, "/calculatedmetrics/"+metricID, nil, nil, nil)
	return notFound(err, "calculated metric", metricID)
}

// GetDataViews returns all data views visible to the caller.
func (c *Client) GetDataViews(ctx context.Context, limit int) ([]DataView, error) {
	if limit <= 0 {
		limit = 100
	}
	return listPages[DataView](ctx, c, "/datagroups/dataviews", url.Values{
		"limit": {strconv.Itoa(limit)},
	})
}

// GetDataView returns a single data view by id.
func (c *Client) GetDataView(ctx context.Context, dataViewID string) (*DataView, error) {
	if dataViewID == "" {
		return nil, fmt.Errorf("data view id must be specified")
	}
	var view DataView
	if err := c.call(ctx, http.MethodGet, "/datagroups/dataviews/"+dataViewID, nil, nil, &view); err != nil {
		return nil, notFound(err, "data view", dataViewID)
	}
	return &view, nil
}

// ValidateDataView validates a data view definition without storing it.
func (c *Client) ValidateDataView(ctx context.Context, view *DataView) error {
	return c.call(ctx, http.MethodPost, "/datagroups/dataviews/validate", nil, view, nil)
}

// CreateDataView creates and stores a data view.
func (c *Client) CreateDataView(ctx context.Context, view *DataView) (*DataView, error) {
	var created DataView
	if err := c.call(ctx, http.MethodPost, "/datagroups/dataviews", nil, view, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateDataView updates a data view definition by id.
func (c *Client) UpdateDataView(ctx context.Context, dataViewID string, view *DataView) (*DataView, error) {
	if dataViewID == "" {
		return nil, fmt.Errorf("data view id must be specified")
	}
	var updated DataView
	if err := c.call(ctx, http.MethodPut, "/datagroups/dataviews/"+dataViewID, nil, view, &updated); err != nil {
		return nil, notFound(err, "data view", dataViewID)
	}
	return &updated, nil
}

// DeleteDataView deletes a data view by id.
func (c *Client) DeleteDataView(ctx context.Context, dataViewID string) error {
	if dataViewID == "" {
		return fmt.Errorf("data view id must be specified")
	}
	err := c.call(ctx, http.MethodDelete, "/datagroups/dataviews/"+dataViewID, nil, nil, nil)
	return notFound(err, "data view", dataViewID)
}

// CopyDataView copies the settings of a data view into a new one.
func (c *Client) CopyDataView(ctx context.Context, dataViewID string) (*DataView, error) {
	if dataViewID == "" {
		return nil, fmt.Errorf("data view id must be specified")
	}
	var copied DataView
	if err := c.call(ctx, http.MethodPut, "/datagroups/dataviews/copy/"+dataViewID, nil, nil, &copied); err != nil {
		return nil, notFound(err, "data view", dataViewID)
	}
	return &copied, nil
}

// GetDimensions returns the dimensions available in a data view.
func (c *Client) GetDimensions(ctx context.Context, dataViewID string) ([]DimensionInfo, error) {
	if dataViewID == "" {
		return nil, fmt.Errorf("data view id must be specified")
	}
	var dims []DimensionInfo
	path := "/datagroups/data/" + dataViewID + "/dimensions"
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &dims); err != nil {
		return nil, notFound(err, "data view", dataViewID)
	}
	return dims, nil
}

// GetMetrics returns the metrics available in a data view.
func (c *Client) GetMetrics(ctx context.Context, dataViewID string) ([]MetricInfo, error) {
	if dataViewID == "" {
		return nil, fmt.Errorf("data view id must be specified")
	}
	var metrics []MetricInfo
	path := "/datagroups/data/" + dataViewID + "/metrics"
	if err := c.call(ctx, http.MethodGet, path, nil, nil, &metrics); err != nil {
		return nil, notFound(err, "data view", dataViewID)
	}
	return metrics, nil
}

// GetTags returns component tags.
func (c *Client) GetTags(ctx context.Context, limit int) ([]Tag, error) {
	if limit <= 0 {
		limit = 100
	}
	return listPages[Tag](ctx, c, "/componentmetadata/tags", url.Values{
		"limit": {strconv.Itoa(limit)},
	})
}

// CreateTags creates tags attached to components.
func (c *Client) CreateTags(ctx context.Context, tags []Tag) ([]Tag, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("at least one tag must be specified")
	}
	var created []Tag
	if err := c.call(ctx, http.MethodPost, "/componentmetadata/tags", nil, tags, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTags replaces the tag set of each listed component; tags not listed
// are removed from that component.
func (c *Client) UpdateTags(ctx context.Context, items []ComponentTags) error {
	if len(items) == 0 {
		return fmt.Errorf("at least one component must be specified")
	}
	return c.call(ctx, http.MethodPut, "/componentmetadata/tags/tagitems", nil, items, nil)
}

// DeleteTags removes every tag from the given components.
func (c *Client) DeleteTags(ctx context.Context, componentType string, componentIDs ...string) error {
	if componentType == "" {
		return fmt.Errorf("component type must be specified")
	}
	if len(componentIDs) == 0 {
		return fmt.Errorf("at least one component id must be specified")
	}
	params := url.Values{
		"componentType": {componentType},
		"componentIds":  {strings.Join(componentIDs, ",")},
	}
	return c.call(ctx, http.MethodDelete, "/componentmetadata/tags", params, nil, nil)
}

// GetShares returns component shares, walking every page. An empty userID
// returns the caller's shares.
func (c *Client) GetShares(ctx context.Context, userID string, limit int) ([]Share, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{
		"limit":       {strconv.Itoa(limit)},
		"includeType": {"sharedTo"},
	}
	if userID != "" {
		params.Set("userId", userID)
	}
	return listPages[Share](ctx, c, "/componentmetadata/shares", params)
}

// GetShare returns a single share by id.
func (c *Client) GetShare(ctx context.Context, shareID string) (*Share, error) {
	if shareID == "" {
		return nil, fmt.Errorf("share id must be specified")
	}
	var share Share
	if err := c.call(ctx, http.MethodGet, "/componentmetadata/shares/"+shareID, nil, nil, &share); err != nil {
		return nil, notFound(err, "share", shareID)
	}
	return &share, nil
}

// DeleteShare removes the shares of a component element by id.
func (c *Client) DeleteShare(ctx context.Context, shareID string) error {
	if shareID == "" {
		return fmt.Errorf("share id must be specified")
	}
	err := c.call(ctx, http.MethodDelete, "/componentmetadata/shares/"+shareID, nil, nil, nil)
	return notFound(err, "share", shareID)
}

// SearchShares searches shares across components.
func (c *Client) SearchShares(ctx context.Context, search *ShareSearch, limit int) ([]Share, error) {
	if search == nil {
		return nil, fmt.Errorf("share search must be specified")
	}
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	var result page[Share]
	if err := c.call(ctx, http.MethodPost, "/componentmetadata/shares/component/search", params, search, &result); err != nil {
		return nil, err
	}
	return result.Content, nil
}

// UpdateShares replaces the share set of each listed component.
func (c *Client) UpdateShares(ctx context.Context, shares []ComponentShares) error {
	if len(shares) == 0 {
		return fmt.Errorf("at least one component share must be specified")
	}
	return c.call(ctx, http.MethodPut, "/componentmetadata/shares", nil, shares, nil)
}

// GetTopItems returns the top items of a dimension over a date range,
// without requiring a full report request.
func (c *Client) GetTopItems(ctx context.Context, dataID, dimension, dateRange string, limit int) (*TopItemsResponse, error) {
	if dataID == "" {
		return nil, fmt.Errorf("data id must be specified")
	}
	if dimension == "" {
		return nil, fmt.Errorf("dimension must be specified")
	}
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{
		"dataId":           {dataID},
		"dimension":        {dimension},
		"limit":            {strconv.Itoa(limit)},
		"allowRemoteLoad":  {"true"},
		"lookupNoneValues": {"true"},
	}
	if dateRange != "" {
		params.Set("dateRange", dateRange)
	}
	var top TopItemsResponse
	if err := c.call(ctx, http.MethodGet, "/reports/topItems", params, nil, &top); err != nil {
		return nil, err
	}
	return &top, nil
}

// SearchAuditLogs searches audit log entries.
func (c *Client) SearchAuditLogs(ctx context.Context, search *AuditLogSearch) ([]AuditLog, error) {
	var result page[AuditLog]
	if err := c.call(ctx, http.MethodPost, "/auditlogs/api/v1/auditlogs/search", nil, search, &result); err != nil {
		return nil, err
	}
	return result.Content, nil
}

// listPages walks a paginated list endpoint until the service signals the
// last page.
func listPages[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T
	for pageNum := 0; ; pageNum++ {
		params.Set("page", strconv.Itoa(pageNum))
		var result page[T]
		if err := c.call(ctx, http.MethodGet, path, params, nil, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Content...)
		if result.lastPage() || len(result.Content) == 0 {
			break
		}
	}
	return all, nil
}
