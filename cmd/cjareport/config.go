// Copyright The cjareport Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimeout = 60 * time.Second
	formatCSV      = "csv"
	formatJSON     = "json"
)

// DimensionConfig is one breakdown level.
type DimensionConfig struct {
	// Name is the dimension id, e.g. "variables/page".
	Name string `yaml:"name"`
	// Limit caps the items retained at this level; 0 means all.
	Limit int `yaml:"limit"`
}

// OutputConfig selects the export format and destination.
type OutputConfig struct {
	// Format is "csv" or "json".
	Format string `yaml:"format"`
	// Path is the output file; empty writes to stdout.
	Path string `yaml:"path"`
}

// Config defines the configuration of one report run.
type Config struct {
	// Endpoint of the CJA API (default https://cja.adobe.io).
	Endpoint string `yaml:"endpoint"`

	// APIKey is the x-api-key header value.
	APIKey string `yaml:"api_key"`

	// Token is the IMS bearer token.
	Token string `yaml:"token"`

	// OrgID is the IMS organization id.
	OrgID string `yaml:"org_id"`

	// Timeout for API calls.
	Timeout time.Duration `yaml:"timeout"`

	// DataViewID the report runs against.
	DataViewID string `yaml:"data_view_id"`

	// DateRange restricts the report, e.g.
	// "2024-01-01T00:00:00.000/2024-02-01T00:00:00.000".
	DateRange string `yaml:"date_range"`

	// GlobalFilters are segment ids applied to the whole report.
	GlobalFilters []string `yaml:"global_filters"`

	// Dimensions to break down, outermost first.
	Dimensions []DimensionConfig `yaml:"dimensions"`

	// Metrics to report.
	Metrics []string `yaml:"metrics"`

	// MetricFilters statically attaches a filter to one metric.
	MetricFilters map[string]string `yaml:"metric_filters"`

	CountRepeatInstances bool `yaml:"count_repeat_instances"`
	ReturnNones          bool `yaml:"return_nones"`

	Output OutputConfig `yaml:"output"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Token == "" {
		return fmt.Errorf("token must be specified")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("api_key must be specified")
	}
	if cfg.DataViewID == "" {
		return fmt.Errorf("data_view_id must be specified")
	}
	if len(cfg.Dimensions) == 0 {
		return fmt.Errorf("at least one dimension must be specified")
	}
	for i, dim := range cfg.Dimensions {
		if dim.Name == "" {
			return fmt.Errorf("dimension %d has no name", i)
		}
	}
	if len(cfg.Metrics) == 0 {
		return fmt.Errorf("at least one metric must be specified")
	}
	if cfg.DateRange == "" && len(cfg.GlobalFilters) == 0 {
		return fmt.Errorf("a date_range or at least one global filter must be specified")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}

	switch cfg.Output.Format {
	case "":
		cfg.Output.Format = formatCSV
	case formatCSV, formatJSON:
	default:
		return fmt.Errorf("output format must be %q or %q", formatCSV, formatJSON)
	}

	return nil
}
