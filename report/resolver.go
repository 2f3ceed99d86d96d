// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/querypath/cjareport/report"

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/querypath/cjareport/cja"
)

// APIClient is the remote analytics service the engine talks to. *cja.Client
// satisfies it; tests substitute an in-memory fake.
type APIClient interface {
	GetReport(ctx context.Context, req *cja.ReportRequest, params cja.ReportParams) (*cja.ReportResponse, error)
	ResolveFilterName(ctx context.Context, filterID string) (string, error)
	ResolveCalculatedMetricName(ctx context.Context, metricID string) (string, error)
}

// isSegmentID reports whether an id looks like a stored segment/filter id,
// which needs a metadata lookup to resolve into a display name.
func isSegmentID(id string) bool {
	return strings.HasPrefix(id, "s") && strings.Contains(id, "@AdobeOrg")
}

// isCalculatedMetricID reports whether an id looks like a calculated metric
// id.
func isCalculatedMetricID(id string) bool {
	return strings.HasPrefix(id, "cm") && strings.Contains(id, "@AdobeOrg")
}

// nameResolver memoizes id-to-name metadata lookups for the duration of one
// run. Memoization only caches successful lookups; the not-found fallback
// policy is decided by callers.
type nameResolver struct {
	client      APIClient
	logger      *zap.Logger
	filters     map[string]string
	calcMetrics map[string]string
}

func newNameResolver(client APIClient, logger *zap.Logger) *nameResolver {
	return &nameResolver{
		client:      client,
		logger:      logger,
		filters:     make(map[string]string),
		calcMetrics: make(map[string]string),
	}
}

// filterName resolves a segment/filter id to its display name.
func (r *nameResolver) filterName(ctx context.Context, id string) (string, error) {
	if name, ok := r.filters[id]; ok {
		return name, nil
	}
	name, err := r.client.ResolveFilterName(ctx, id)
	if err != nil {
		return "", err
	}
	r.filters[id] = name
	return name, nil
}

// filterDisplay resolves a segment id to its name, falling back to the raw
// id when the id does not look like a segment or the service does not know
// it.
func (r *nameResolver) filterDisplay(ctx context.Context, id string) (string, error) {
	if !isSegmentID(id) {
		return id, nil
	}
	name, err := r.filterName(ctx, id)
	if err != nil {
		var notFound *cja.NotFoundError
		if errors.As(err, &notFound) {
			r.logger.Debug("segment id could not be resolved, keeping raw id", zap.String("id", id))
			return id, nil
		}
		return "", err
	}
	return name, nil
}

// metricDisplay resolves a calculated metric id to its name, with the same
// fallback policy as filterDisplay.
func (r *nameResolver) metricDisplay(ctx context.Context, id string) (string, error) {
	if !isCalculatedMetricID(id) {
		return id, nil
	}
	if name, ok := r.calcMetrics[id]; ok {
		return name, nil
	}
	name, err := r.client.ResolveCalculatedMetricName(ctx, id)
	if err != nil {
		var notFound *cja.NotFoundError
		if errors.As(err, &notFound) {
			r.logger.Debug("calculated metric id could not be resolved, keeping raw id", zap.String("id", id))
			return id, nil
		}
		return "", err
	}
	r.calcMetrics[id] = name
	return name, nil
}
