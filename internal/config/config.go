// Package config loads tdigest job descriptions from YAML.
//
// A job names its input (a Parquet column or a DuckDB query), the
// aggregate options, how the input is partitioned and where results go.
// Command-line flags override values loaded from the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	defaults "github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/constants"
)

// Config represents one aggregation job.
type Config struct {
	// Name labels the job in logs.
	Name string `yaml:"name"`

	// Source selects the input column.
	Source SourceConfig `yaml:"source"`

	// Aggregate holds the tdigest options.
	Aggregate AggregateConfig `yaml:"aggregate"`

	// Execution configures parallelism.
	Execution ExecutionConfig `yaml:"execution"`

	// Reference configures the DDSketch comparison.
	Reference ReferenceConfig `yaml:"reference"`

	// Output configures result printing and export.
	Output OutputConfig `yaml:"output"`

	// Logging configures the log level and format.
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig selects the input column.
type SourceConfig struct {
	// Kind is "parquet" or "duckdb".
	Kind string `yaml:"kind"`

	// Path is the Parquet file for kind parquet.
	Path string `yaml:"path"`

	// Query is the SQL statement for kind duckdb.
	Query string `yaml:"query"`

	// Column is the column to aggregate.
	Column string `yaml:"column"`

	// BatchSize is the number of rows per Arrow array.
	BatchSize int `yaml:"batch_size"`

	// DuckDB configures the embedded database.
	DuckDB DuckDBConfig `yaml:"duckdb"`
}

// DuckDBConfig configures the embedded database.
type DuckDBConfig struct {
	// MemoryLimit is the DuckDB memory limit.
	// Format: "512MB", "2GB"
	MemoryLimit string `yaml:"memory_limit"`

	// Threads is the number of DuckDB worker threads. Zero keeps the default.
	Threads int `yaml:"threads"`
}

// AggregateConfig holds the tdigest options.
type AggregateConfig struct {
	Delta      float64   `yaml:"delta"`
	BufferSize int       `yaml:"buffer_size"`
	Quantiles  []float64 `yaml:"q"`
	MinCount   int64     `yaml:"min_count"`
	SkipNulls  bool      `yaml:"skip_nulls"`
}

// ExecutionConfig configures parallelism.
type ExecutionConfig struct {
	// Partitions is the number of partition states the input is split into.
	Partitions int `yaml:"partitions"`

	// MaxWorkers bounds concurrent partitions. Zero means GOMAXPROCS.
	MaxWorkers int `yaml:"max_workers"`

	// Timeout bounds the whole job. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
}

// ReferenceConfig configures the DDSketch comparison.
type ReferenceConfig struct {
	// Enabled prints DDSketch estimates next to the tdigest results.
	Enabled bool `yaml:"enabled"`

	// Accuracy is the relative accuracy (0.01 = 1% error).
	Accuracy float64 `yaml:"accuracy"`
}

// OutputConfig configures result printing and export.
type OutputConfig struct {
	// Format is "auto", "table" or "tsv".
	Format string `yaml:"format"`

	// Path writes the results to a Parquet file when set.
	Path string `yaml:"path"`

	// Compression is the Parquet codec: none, snappy, zstd, lz4, gzip.
	Compression string `yaml:"compression"`
}

// LoggingConfig configures the log level and format.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of DefaultConfig without validating.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with the package defaults. The
// source is left empty.
func DefaultConfig() *Config {
	return &Config{
		Name: "tdigest",
		Source: SourceConfig{
			Kind:      constants.SourceParquet,
			BatchSize: defaults.DefaultBatchSize,
		},
		Aggregate: AggregateConfig{
			Delta:      defaults.DefaultDelta,
			BufferSize: defaults.DefaultBufferSize,
			Quantiles:  defaults.DefaultQuantiles(),
			MinCount:   defaults.DefaultMinCount,
			SkipNulls:  defaults.DefaultSkipNulls,
		},
		Execution: ExecutionConfig{
			Partitions: defaults.DefaultPartitions,
			MaxWorkers: defaults.DefaultMaxWorkers,
		},
		Reference: ReferenceConfig{
			Accuracy: defaults.DefaultReferenceAccuracy,
		},
		Output: OutputConfig{
			Format:      constants.FormatAuto,
			Compression: "zstd",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ToOptions builds validated aggregate options.
func (c *Config) ToOptions() (*aggregate.Options, error) {
	return aggregate.NewOptions(
		aggregate.WithDelta(c.Aggregate.Delta),
		aggregate.WithBufferSize(c.Aggregate.BufferSize),
		aggregate.WithQuantiles(c.Aggregate.Quantiles...),
		aggregate.WithMinCount(c.Aggregate.MinCount),
		aggregate.WithSkipNulls(c.Aggregate.SkipNulls),
	)
}
