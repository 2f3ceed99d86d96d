// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"fmt"

	"github.com/querypath/cjareport/cja"
)

// fakeClient is an in-memory APIClient. Report responses are produced by
// the report function from a deep copy of each incoming request; every
// request is recorded for inspection.
type fakeClient struct {
	report func(req *cja.ReportRequest) (*cja.ReportResponse, error)

	filterNames map[string]string
	metricNames map[string]string

	requests    []*cja.ReportRequest
	filterCalls int
	metricCalls int
}

func (f *fakeClient) GetReport(_ context.Context, req *cja.ReportRequest, _ cja.ReportParams) (*cja.ReportResponse, error) {
	snapshot := cloneRequest(req)
	f.requests = append(f.requests, snapshot)
	if f.report == nil {
		return nil, fmt.Errorf("fakeClient: no report function installed")
	}
	return f.report(snapshot)
}

func (f *fakeClient) ResolveFilterName(_ context.Context, filterID string) (string, error) {
	f.filterCalls++
	if name, ok := f.filterNames[filterID]; ok {
		return name, nil
	}
	return "", &cja.NotFoundError{Kind: "filter", ID: filterID}
}

func (f *fakeClient) ResolveCalculatedMetricName(_ context.Context, metricID string) (string, error) {
	f.metricCalls++
	if name, ok := f.metricNames[metricID]; ok {
		return name, nil
	}
	return "", &cja.NotFoundError{Kind: "calculated metric", ID: metricID}
}

// breakdownTokens extracts the breakdown filter tokens declared in a
// request document, in definition order.
func breakdownTokens(req *cja.ReportRequest) []string {
	var tokens []string
	for _, def := range req.MetricContainer.MetricFilters {
		if def.Type == cja.FilterTypeBreakdown {
			tokens = append(tokens, def.Dimension+":::"+def.ItemID)
		}
	}
	return tokens
}

// normalResponse builds a single-page normal response from (itemId, value,
// metric values...) triples.
func normalResponse(rows ...cja.ReportRow) *cja.ReportResponse {
	if rows == nil {
		rows = []cja.ReportRow{}
	}
	return &cja.ReportResponse{
		TotalPages:       1,
		FirstPage:        true,
		LastPage:         true,
		NumberOfElements: len(rows),
		TotalElements:    len(rows),
		Rows:             rows,
	}
}
