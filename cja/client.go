// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

// Package cja implements an authenticated HTTP client for the Adobe Customer
// Journey Analytics API: the /reports endpoint used by the reporting engine,
// and the thin metadata wrappers (filters, calculated metrics, data views,
// tags, audit logs).
package cja // import "github.com/querypath/cjareport/cja"

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultEndpoint = "https://cja.adobe.io"

// config contains the configuration for the CJA client.
type config struct {
	endpoint   string
	apiKey     string
	token      string
	orgID      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// Option is used to configure the CJA client.
type Option func(*config)

// WithEndpoint sets the CJA API endpoint. Defaults to https://cja.adobe.io.
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

// WithAPIKey sets the x-api-key header value.
func WithAPIKey(key string) Option {
	return func(c *config) {
		c.apiKey = key
	}
}

// WithToken sets the bearer token used for authentication.
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithOrgID sets the IMS organization id header value.
func WithOrgID(orgID string) Option {
	return func(c *config) {
		c.orgID = orgID
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying *http.Client. The timeout option is
// ignored when a client is supplied.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Client is the concrete CJA API client.
type Client struct {
	client   *http.Client
	endpoint string
	apiKey   string
	token    string
	orgID    string
	logger   *zap.Logger
}

// NewClient creates a new CJA API client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &config{
		endpoint: defaultEndpoint,
		timeout:  60 * time.Second,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.token == "" {
		return nil, fmt.Errorf("token must be specified")
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("api key must be specified")
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		client:   httpClient,
		endpoint: strings.TrimSuffix(cfg.endpoint, "/"),
		apiKey:   cfg.apiKey,
		token:    cfg.token,
		orgID:    cfg.orgID,
		logger:   cfg.logger,
	}, nil
}

// call performs an HTTP request against the CJA API and decodes the JSON
// response into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling JSON request: %w", err)
		}
		reqBody = strings.NewReader(string(data))
	}

	fullURL := c.endpoint + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-api-key", c.apiKey)
	if c.orgID != "" {
		req.Header.Set("x-gw-ims-org-id", c.orgID)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("CJA API call", zap.String("method", method), zap.String("path", path))

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.serviceError(resp, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Endpoint: path, Err: fmt.Errorf("error decoding response: %w", err)}
	}

	return nil
}

// serviceError maps a non-2xx response to the error taxonomy.
func (c *Client) serviceError(resp *http.Response, path string) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var payload struct {
		ErrorCode   string `json:"errorCode"`
		ErrorID     string `json:"errorId"`
		Message     string `json:"message"`
		Description string `json:"errorDescription"`
	}
	_ = json.Unmarshal(bodyBytes, &payload)

	message := payload.Message
	if message == "" {
		message = payload.Description
	}
	if message == "" {
		message = string(bodyBytes)
	}

	return &ServiceError{
		StatusCode: resp.StatusCode,
		ErrorCode:  payload.ErrorCode,
		Message:    message,
		Endpoint:   path,
	}
}

// GetReport runs one page of a report request against POST /reports.
func (c *Client) GetReport(ctx context.Context, req *ReportRequest, params ReportParams) (*ReportResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("report request must not be nil")
	}

	allowRemoteLoad := params.AllowRemoteLoad
	if allowRemoteLoad == "" {
		allowRemoteLoad = "default"
	}
	values := url.Values{
		"allowRemoteLoad": {allowRemoteLoad},
		"useCache":        {strconv.FormatBool(params.UseCache)},
		"useResultsCache": {strconv.FormatBool(params.UseResultsCache)},
	}

	var response ReportResponse
	if err := c.call(ctx, http.MethodPost, "/reports", values, req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ResolveFilterName resolves a filter/segment id to its display name.
func (c *Client) ResolveFilterName(ctx context.Context, filterID string) (string, error) {
	filter, err := c.GetFilter(ctx, filterID)
	if err != nil {
		return "", err
	}
	return filter.Name, nil
}

// ResolveCalculatedMetricName resolves a calculated metric id to its display
// name.
func (c *Client) ResolveCalculatedMetricName(ctx context.Context, metricID string) (string, error) {
	metric, err := c.GetCalculatedMetric(ctx, metricID)
	if err != nil {
		return "", err
	}
	return metric.Name, nil
}
