package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/internal/config"
	"github.com/peter-kozarec/parity/pkg/datasource"
	"github.com/peter-kozarec/parity/pkg/datasource/custom"
	"github.com/peter-kozarec/parity/pkg/datasource/duckdb"
	"github.com/peter-kozarec/parity/pkg/datasource/historical"
	"github.com/peter-kozarec/parity/pkg/datasource/synthetic"
)

// newLineSource returns the fetcher for remote custom data, or nil to leave custom lines to
// the provider.
func newLineSource(cfg config.CustomConfig, logger *zap.Logger) custom.LineSource {
	if !cfg.Remote {
		return nil
	}
	return custom.NewFetcher(logger,
		custom.WithTimeout(cfg.Timeout),
		custom.WithBreakerSettings(custom.BreakerSettings{
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		}))
}

// newProvider opens the configured data source. The returned func releases it.
func newProvider(cfg config.DataConfig, lines custom.LineSource, logger *zap.Logger) (datasource.Provider, func(), error) {
	switch cfg.Source {
	case config.DataSourceSynthetic:
		opts := []synthetic.Option{synthetic.WithLogger(logger)}
		if lines != nil {
			opts = append(opts, synthetic.WithCustomLines(lines))
		}
		return synthetic.NewGenerator(cfg.Seed, opts...), func() {}, nil
	case config.DataSourceDuckDB:
		reader := duckdb.NewReader(cfg.DuckDBPath)
		if err := reader.Connect(); err != nil {
			return nil, nil, fmt.Errorf("unable to connect to duckdb %q: %w", cfg.DuckDBPath, err)
		}
		return duckdb.NewProvider(reader, cfg.Table, logger, lines), reader.Close, nil
	case config.DataSourceBinary:
		p := historical.NewProvider(cfg.BinaryDir, logger, lines)
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.Source)
	}
}
