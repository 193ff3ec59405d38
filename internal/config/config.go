package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const envPrefix = "parity"

// Load reads the yaml file at path, applies PARITY_* environment overrides and validates the
// result. An empty path loads defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %q not found: %w", path, err)
			}
			return nil, fmt.Errorf("unable to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration Load produces without a file or environment.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size_mb", 100)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.max_age_days", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("engine.router_capacity", 1024)
	v.SetDefault("engine.monitor_flags", []string{"symbol_changed", "end"})
	v.SetDefault("engine.fail_all", false)
	v.SetDefault("engine.timeout", "10m")
	v.SetDefault("engine.parallelism", 4)

	v.SetDefault("data.source", DataSourceSynthetic)
	v.SetDefault("data.seed", 1)
	v.SetDefault("data.duckdb_path", "")
	v.SetDefault("data.table", "bars")
	v.SetDefault("data.binary_dir", "")

	v.SetDefault("store.path", "data/parity.db")
	v.SetDefault("store.in_memory", false)
	v.SetDefault("store.max_open_conns", 1)
	v.SetDefault("store.conn_max_lifetime", "1h")

	v.SetDefault("custom.remote", false)
	v.SetDefault("custom.timeout", "15s")
	v.SetDefault("custom.breaker.max_requests", 3)
	v.SetDefault("custom.breaker.interval", "60s")
	v.SetDefault("custom.breaker.timeout", "30s")
	v.SetDefault("custom.breaker.min_requests", 5)
	v.SetDefault("custom.breaker.failure_ratio", 0.6)

	v.SetDefault("scenarios", []string{})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
