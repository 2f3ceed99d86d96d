// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/querypath/cjareport/report"

import (
	"context"

	"go.uber.org/zap"

	"github.com/querypath/cjareport/cja"
)

// fetcher accumulates all pages of one report request.
type fetcher struct {
	client APIClient
	params cja.ReportParams
	logger *zap.Logger
}

// fetch issues the request and, for normal reports, keeps requesting the
// next page until the service signals the last page or the accumulated row
// count reaches maxResults (maxResults <= 0 disables the cap). Rows are
// concatenated in service order. The request document is mutated in place:
// its page counter advances as pages are fetched.
//
// Static reports are a single complete summary, returned as-is.
func (f *fetcher) fetch(ctx context.Context, doc *cja.ReportRequest, maxResults int) (*cja.ReportResponse, error) {
	doc.Settings.Page = 0

	resp, err := f.client.GetReport(ctx, doc, f.params)
	if err != nil {
		return nil, err
	}
	if resp.Rows == nil {
		// Static shape: no pagination applies.
		return resp, nil
	}

	rows := resp.Rows
	elements := resp.NumberOfElements
	lastPage := resp.LastPage
	calls := 1

	for !lastPage && !capReached(len(rows), maxResults) {
		doc.Settings.Page++
		next, err := f.client.GetReport(ctx, doc, f.params)
		if err != nil {
			return nil, err
		}
		rows = append(rows, next.Rows...)
		elements += next.NumberOfElements
		lastPage = next.LastPage
		calls++
	}

	f.logger.Debug("report fetched",
		zap.String("dimension", doc.Dimension),
		zap.Int("rows", len(rows)),
		zap.Int("calls", calls),
	)

	accumulated := *resp
	accumulated.Rows = rows
	accumulated.NumberOfElements = elements
	accumulated.LastPage = true
	return &accumulated, nil
}

func capReached(have, maxResults int) bool {
	return maxResults > 0 && have >= maxResults
}
