// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

// cjareport runs a multi-dimensional breakdown report against the CJA API
// from a YAML config file and writes the resulting table as CSV or JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/querypath/cjareport/cja"
	"github.com/querypath/cjareport/report"
)

func main() {
	configPath := flag.String("config", "cjareport.yaml", "path to the YAML config file")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if err := run(*configPath, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, verbose bool) error {
	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	opts := []cja.Option{
		cja.WithAPIKey(cfg.APIKey),
		cja.WithToken(cfg.Token),
		cja.WithTimeout(cfg.Timeout),
		cja.WithLogger(logger),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, cja.WithEndpoint(cfg.Endpoint))
	}
	if cfg.OrgID != "" {
		opts = append(opts, cja.WithOrgID(cfg.OrgID))
	}
	client, err := cja.NewClient(opts...)
	if err != nil {
		return fmt.Errorf("failed to create CJA client: %w", err)
	}

	breakdown := report.BreakdownRequest{
		DataViewID:           cfg.DataViewID,
		Metrics:              cfg.Metrics,
		MetricFilters:        cfg.MetricFilters,
		CountRepeatInstances: cfg.CountRepeatInstances,
		ReturnNones:          cfg.ReturnNones,
		DimensionLimits:      make(map[string]int, len(cfg.Dimensions)),
	}
	for _, dim := range cfg.Dimensions {
		breakdown.Dimensions = append(breakdown.Dimensions, dim.Name)
		breakdown.DimensionLimits[dim.Name] = dim.Limit
	}
	if cfg.DateRange != "" {
		breakdown.GlobalFilters = append(breakdown.GlobalFilters, cfg.DateRange)
	}
	breakdown.GlobalFilters = append(breakdown.GlobalFilters, cfg.GlobalFilters...)

	logger.Info("running breakdown report",
		zap.Strings("dimensions", breakdown.Dimensions),
		zap.Strings("metrics", breakdown.Metrics),
		zap.String("data_view_id", cfg.DataViewID),
	)

	start := time.Now()
	reporter := report.New(client, report.WithLogger(logger))
	table, err := reporter.RunBreakdown(context.Background(), breakdown)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	logger.Info("report complete",
		zap.Int("rows", table.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return writeOutput(table, cfg.Output)
}

func writeOutput(table *report.Table, output OutputConfig) error {
	var w io.Writer = os.Stdout
	if output.Path != "" {
		f, err := os.Create(output.Path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if output.Format == formatJSON {
		return table.WriteJSON(w)
	}
	return table.WriteCSV(w)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
