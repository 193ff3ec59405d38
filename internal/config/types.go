package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/multierr"
)

const (
	DataSourceSynthetic = "synthetic"
	DataSourceDuckDB    = "duckdb"
	DataSourceBinary    = "binary"
)

var (
	ErrInvalidConfig = errors.New("invalid config")

	dataSources = []string{DataSourceSynthetic, DataSourceDuckDB, DataSourceBinary}
	encodings   = []string{"console", "json"}
)

type Config struct {
	Logging   LoggingConfig `mapstructure:"logging"`
	Engine    EngineConfig  `mapstructure:"engine"`
	Data      DataConfig    `mapstructure:"data"`
	Store     StoreConfig   `mapstructure:"store"`
	Custom    CustomConfig  `mapstructure:"custom"`
	Scenarios []string      `mapstructure:"scenarios"`
}

type LoggingConfig struct {
	Level       string        `mapstructure:"level"`
	Encoding    string        `mapstructure:"encoding"`
	Development bool          `mapstructure:"development"`
	File        LogFileConfig `mapstructure:"file"`
}

// LogFileConfig enables a rotating log file next to the console output when Path is set.
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type EngineConfig struct {
	RouterCapacity int           `mapstructure:"router_capacity"`
	MonitorFlags   []string      `mapstructure:"monitor_flags"`
	FailAll        bool          `mapstructure:"fail_all"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Parallelism    int           `mapstructure:"parallelism"`
}

type DataConfig struct {
	Source     string `mapstructure:"source"`
	Seed       int64  `mapstructure:"seed"`
	DuckDBPath string `mapstructure:"duckdb_path"`
	Table      string `mapstructure:"table"`
	BinaryDir  string `mapstructure:"binary_dir"`
}

type StoreConfig struct {
	Path            string        `mapstructure:"path"`
	InMemory        bool          `mapstructure:"in_memory"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CustomConfig drives the fetcher of custom data. Without Remote the synthetic lines are used
// whatever the data source.
type CustomConfig struct {
	Remote  bool          `mapstructure:"remote"`
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

func (c *Config) Validate() error {
	var err error

	if !slices.Contains(encodings, c.Logging.Encoding) {
		err = multierr.Append(err, fmt.Errorf("logging.encoding must be one of %v, got %q", encodings, c.Logging.Encoding))
	}
	if c.Engine.RouterCapacity <= 0 {
		err = multierr.Append(err, errors.New("engine.router_capacity must be positive"))
	}
	if c.Engine.Parallelism <= 0 {
		err = multierr.Append(err, errors.New("engine.parallelism must be positive"))
	}
	if c.Engine.Timeout < 0 {
		err = multierr.Append(err, errors.New("engine.timeout must not be negative"))
	}
	if !slices.Contains(dataSources, c.Data.Source) {
		err = multierr.Append(err, fmt.Errorf("data.source must be one of %v, got %q", dataSources, c.Data.Source))
	}
	if c.Data.Source == DataSourceDuckDB && (c.Data.DuckDBPath == "" || c.Data.Table == "") {
		err = multierr.Append(err, errors.New("data.duckdb_path and data.table are required for the duckdb source"))
	}
	if c.Data.Source == DataSourceBinary && c.Data.BinaryDir == "" {
		err = multierr.Append(err, errors.New("data.binary_dir is required for the binary source"))
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		err = multierr.Append(err, errors.New("store.path must be set unless store.in_memory"))
	}
	if c.Store.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("store.max_open_conns must be positive"))
	}
	if c.Custom.Timeout <= 0 {
		err = multierr.Append(err, errors.New("custom.timeout must be positive"))
	}
	if c.Custom.Breaker.FailureRatio <= 0 || c.Custom.Breaker.FailureRatio > 1 {
		err = multierr.Append(err, errors.New("custom.breaker.failure_ratio must be within (0,1]"))
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
