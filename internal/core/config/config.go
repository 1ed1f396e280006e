package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

const envPrefix = "AGGREGATOR_"

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"aggregation.block_types": true,
	"tracking.tracked_types":  true,
	"tracking.kafka.brokers":  true,
}

// Config represents the top-level application config.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Content     ContentConfig     `koanf:"content"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Tracking    TrackingConfig    `koanf:"tracking"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type           string `koanf:"type"` // postgres | memory
	DSN            string `koanf:"dsn"`
	MaxOpenConns   int    `koanf:"max_open_conns"`
	MaxIdleConns   int    `koanf:"max_idle_conns"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
	ConnectRetries int    `koanf:"connect_retries"`
}

type ContentConfig struct {
	// Path is the directory holding one YAML outline per course.
	Path string `koanf:"path"`
}

type AggregationConfig struct {
	Enabled           bool     `koanf:"enabled"`
	Async             bool     `koanf:"async"`
	BlockTypes        []string `koanf:"block_types"`
	CronInterval      string   `koanf:"cron_interval"` // parsed and validated on startup
	BatchSize         int      `koanf:"batch_size"`
	WorkerCount       int      `koanf:"worker_count"`
	RunTimeout        string   `koanf:"run_timeout"`
	Retention         string   `koanf:"retention"`
	MaxBatchesPerTick int      `koanf:"max_batches_per_tick"`
}

type TrackingConfig struct {
	Enabled      bool        `koanf:"enabled"`
	TrackedTypes []string    `koanf:"tracked_types"`
	BIEnabled    bool        `koanf:"bi_enabled"`
	Sink         string      `koanf:"sink"` // log | kafka
	Kafka        KafkaConfig `koanf:"kafka"`
}

type KafkaConfig struct {
	Brokers  []string `koanf:"brokers"`
	Topic    string   `koanf:"topic"`
	ClientID string   `koanf:"client_id"`
}

// CronIntervalDuration returns the validated scheduler interval.
func (c AggregationConfig) CronIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.CronInterval)
	return d
}

// RunTimeoutDuration returns the validated per-run timeout.
func (c AggregationConfig) RunTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RunTimeout)
	return d
}

// RetentionDuration returns the validated marker retention window.
func (c AggregationConfig) RetentionDuration() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	return d
}

// Registry builds the aggregation registry from the configured block types.
func (c *Config) Registry() completion.Registry {
	return completion.NewRegistry(c.Aggregation.BlockTypes, c.Tracking.TrackedTypes)
}

func configErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", coreerrors.ErrConfiguration, fmt.Sprintf(format, args...))
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return configErr("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return configErr("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return configErr("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return configErr("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return configErr("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return configErr("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return configErr("database.max_idle_conns must be > 0")
		}
		if c.Database.ConnectRetries < 0 {
			return configErr("database.connect_retries must be >= 0")
		}
	case "memory":
	default:
		return configErr("unsupported database.type %q (must be postgres or memory)", c.Database.Type)
	}

	if strings.TrimSpace(c.Content.Path) == "" {
		return configErr("content.path is required")
	}
	if _, err := os.Stat(c.Content.Path); err != nil {
		return configErr("content.path %q is not accessible: %v", c.Content.Path, err)
	}

	if err := c.validateAggregation(); err != nil {
		return err
	}
	return c.validateTracking()
}

func (c *Config) validateAggregation() error {
	agg := c.Aggregation
	if agg.Async && !agg.Enabled {
		return configErr("aggregation.async requires aggregation.enabled")
	}
	if agg.Enabled && len(nonBlank(agg.BlockTypes)) == 0 {
		return configErr("aggregation.block_types must not be empty")
	}

	for key, raw := range map[string]string{
		"cron interval": agg.CronInterval,
		"run timeout":   agg.RunTimeout,
		"retention":     agg.Retention,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return configErr("invalid aggregation %s %q: %v", key, raw, err)
		}
		if d <= 0 {
			return configErr("aggregation %s must be > 0", key)
		}
	}

	if agg.BatchSize <= 0 {
		return configErr("aggregation.batch_size must be > 0")
	}
	if agg.WorkerCount <= 0 {
		return configErr("aggregation.worker_count must be > 0")
	}
	if agg.MaxBatchesPerTick <= 0 {
		return configErr("aggregation.max_batches_per_tick must be > 0")
	}
	return nil
}

func (c *Config) validateTracking() error {
	tr := c.Tracking
	if !tr.Enabled {
		return nil
	}

	registry := completion.NewRegistry(c.Aggregation.BlockTypes, nil)
	for _, name := range nonBlank(tr.TrackedTypes) {
		if !registry.IsRegistered(name) {
			return configErr("tracking.tracked_types entry %q is not in aggregation.block_types", name)
		}
	}

	switch tr.Sink {
	case "log":
	case "kafka":
		if len(nonBlank(tr.Kafka.Brokers)) == 0 {
			return configErr("tracking.kafka.brokers is required for the kafka sink")
		}
		if strings.TrimSpace(tr.Kafka.Topic) == "" {
			return configErr("tracking.kafka.topic is required for the kafka sink")
		}
	default:
		return configErr("unsupported tracking.sink %q (must be log or kafka)", tr.Sink)
	}
	return nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Load parses config from defaults, file and env, then validates it.
// Environment variables use the AGGREGATOR_ prefix with "__" separating
// sections, e.g. AGGREGATOR_AGGREGATION__BATCH_SIZE.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                      8080,
		"server.host":                      "0.0.0.0",
		"server.max_body_size_mb":          1,
		"server.mode":                      "release",
		"database.type":                    "postgres",
		"database.dsn":                     "postgres://localhost:5432/aggregator?sslmode=disable",
		"database.max_open_conns":          25,
		"database.max_idle_conns":          25,
		"database.auto_migrate":            true,
		"database.connect_retries":         5,
		"content.path":                     "./content",
		"aggregation.enabled":              true,
		"aggregation.async":                false,
		"aggregation.block_types":          completion.DefaultRegisteredTypes,
		"aggregation.cron_interval":        "24h",
		"aggregation.batch_size":           1000,
		"aggregation.worker_count":         10,
		"aggregation.run_timeout":          "30s",
		"aggregation.retention":            "168h",
		"aggregation.max_batches_per_tick": 100,
		"tracking.enabled":                 false,
		"tracking.tracked_types":           completion.DefaultTrackedTypes,
		"tracking.bi_enabled":              false,
		"tracking.sink":                    "log",
		"tracking.kafka.topic":             "completion-aggregator-events",
		"tracking.kafka.client_id":         "completion-aggregator",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.Replace(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "__", ".", -1)
		if listKeys[key] {
			return key, nonBlank(strings.Split(value, ","))
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
