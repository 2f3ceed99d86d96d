// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package cja

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	testCases := []struct {
		name          string
		opts          []Option
		expectedError string
	}{
		{
			name: "valid configuration",
			opts: []Option{
				WithEndpoint("https://cja.example.com"),
				WithAPIKey("test-key"),
				WithToken("test-token"),
				WithOrgID("org@AdobeOrg"),
				WithTimeout(10 * time.Second),
			},
			expectedError: "",
		},
		{
			name: "missing token",
			opts: []Option{
				WithAPIKey("test-key"),
			},
			expectedError: "token must be specified",
		},
		{
			name: "missing api key",
			opts: []Option{
				WithToken("test-token"),
			},
			expectedError: "api key must be specified",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(tc.opts...)
			if tc.expectedError != "" {
				assert.Error(t, err)
				if err != nil {
					assert.Contains(t, err.Error(), tc.expectedError)
				}
				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(
		WithEndpoint(serverURL),
		WithAPIKey("test-key"),
		WithToken("test-token"),
		WithOrgID("org@AdobeOrg"),
	)
	require.NoError(t, err)
	require.NotNil(t, client)
	return client
}

func TestGetReport(t *testing.T) {
	response := &ReportResponse{
		TotalPages:       1,
		FirstPage:        true,
		LastPage:         true,
		NumberOfElements: 2,
		TotalElements:    2,
		Columns: &ColumnMeta{
			Dimension: &DimensionMeta{ID: "variables/page", Type: "string"},
			ColumnIDs: []string{"0"},
		},
		Rows: []ReportRow{
			{ItemID: "123", Value: "Home", Data: []float64{42}},
			{ItemID: "456", Value: "Cart", Data: []float64{17}},
		},
		SummaryData: &SummaryData{Totals: []float64{59}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "org@AdobeOrg", r.Header.Get("x-gw-ims-org-id"))
		assert.Equal(t, "default", r.URL.Query().Get("allowRemoteLoad"))
		assert.Equal(t, "true", r.URL.Query().Get("useCache"))

		var req ReportRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "dv_test", req.DataID)
		assert.Equal(t, "variables/page", req.Dimension)

		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(response)
		assert.NoError(t, err)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	request := &ReportRequest{
		DataID:    "dv_test",
		Dimension: "variables/page",
		MetricContainer: MetricContainer{
			Metrics: []MetricColumn{{ColumnID: "0", ID: "metrics/visits"}},
		},
		Settings: ReportSettings{Limit: 400, NonesBehavior: NonesExclude},
	}

	resp, err := client.GetReport(context.Background(), request, DefaultReportParams())
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.True(t, resp.LastPage)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "123", resp.Rows[0].ItemID)
	assert.Equal(t, "Home", resp.Rows[0].Value)
	assert.Equal(t, []float64{42}, resp.Rows[0].Data)
	assert.Equal(t, []float64{59}, resp.SummaryData.Totals)
}

func TestGetReportStaticShape(t *testing.T) {
	// A freeform-table response has no rows key at all.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"columns": {"columnIds": ["metrics/visits:::r1"]},
			"summaryData": {"totals": [42]}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.GetReport(context.Background(), &ReportRequest{DataID: "dv_test"}, DefaultReportParams())
	require.NoError(t, err)
	assert.Nil(t, resp.Rows)
	require.NotNil(t, resp.SummaryData)
	assert.Equal(t, []float64{42}, resp.SummaryData.Totals)
}

func TestGetReportLastPageDefault(t *testing.T) {
	// Some responses omit the lastPage key entirely; that means the last
	// page, not "more pages follow".
	bodies := []string{
		`{"numberOfElements": 1, "rows": [{"itemId": "1", "value": "Home", "data": [42]}]}`,
		`{"numberOfElements": 1, "lastPage": false, "rows": [{"itemId": "1", "value": "Home", "data": [42]}]}`,
	}
	var call int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(bodies[call]))
		call++
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.GetReport(context.Background(), &ReportRequest{DataID: "dv_test"}, DefaultReportParams())
	require.NoError(t, err)
	assert.True(t, resp.LastPage)

	resp, err = client.GetReport(context.Background(), &ReportRequest{DataID: "dv_test"}, DefaultReportParams())
	require.NoError(t, err)
	assert.False(t, resp.LastPage)
}

func TestGetReportServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorCode": "invalid_request", "message": "unknown metric"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	resp, err := client.GetReport(context.Background(), &ReportRequest{DataID: "dv_test"}, DefaultReportParams())
	assert.Nil(t, resp)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "invalid_request", svcErr.ErrorCode)
	assert.Equal(t, "unknown metric", svcErr.Message)
	assert.Equal(t, "/reports", svcErr.Endpoint)
}

func TestGetReportTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	client := newTestClient(t, serverURL)

	_, err := client.GetReport(context.Background(), &ReportRequest{DataID: "dv_test"}, DefaultReportParams())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "/reports", transportErr.Endpoint)
}

func TestResolveFilterName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/filters/s123_abc@AdobeOrg", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(Filter{ID: "s123_abc@AdobeOrg", Name: "Paid Traffic"})
		assert.NoError(t, err)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	name, err := client.ResolveFilterName(context.Background(), "s123_abc@AdobeOrg")
	require.NoError(t, err)
	assert.Equal(t, "Paid Traffic", name)
}

func TestResolveFilterNameNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorCode": "not_found"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.ResolveFilterName(context.Background(), "s999@AdobeOrg")
	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, "filter", notFoundErr.Kind)
	assert.Equal(t, "s999@AdobeOrg", notFoundErr.ID)
}

func TestResolveCalculatedMetricName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calculatedmetrics/cm300_abc@AdobeOrg", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(CalculatedMetric{ID: "cm300_abc@AdobeOrg", Name: "Conversion Rate"})
		assert.NoError(t, err)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	name, err := client.ResolveCalculatedMetricName(context.Background(), "cm300_abc@AdobeOrg")
	require.NoError(t, err)
	assert.Equal(t, "Conversion Rate", name)
}

func TestErrorTypes(t *testing.T) {
	cause := errors.New("connection refused")
	transportErr := &TransportError{Endpoint: "/reports", Err: cause}
	assert.ErrorIs(t, transportErr, cause)
	assert.Contains(t, transportErr.Error(), "/reports")

	svcErr := &ServiceError{StatusCode: 500, Endpoint: "/filters", Message: "boom"}
	assert.Contains(t, svcErr.Error(), "500")
	assert.Contains(t, svcErr.Error(), "boom")

	notFoundErr := &NotFoundError{Kind: "filter", ID: "s1@AdobeOrg"}
	assert.Contains(t, notFoundErr.Error(), "s1@AdobeOrg")
}
