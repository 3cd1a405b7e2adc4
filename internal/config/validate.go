package config

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
	"github.com/xtxerr/quantile/internal/validation"
)

// Validate checks the configuration for errors. Every violation is
// reported.
func (c *Config) Validate() error {
	var errs []error

	if err := validation.ValidateJobName(c.Name); err != nil {
		errs = append(errs, errors.NewValidation("name", err.Error()))
	}

	if err := c.Source.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("source: %w", err))
	}

	if _, err := c.ToOptions(); err != nil {
		errs = append(errs, fmt.Errorf("aggregate: %w", err))
	}

	if err := c.Execution.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("execution: %w", err))
	}

	if c.Reference.Enabled && !(c.Reference.Accuracy > 0 && c.Reference.Accuracy < 1) {
		errs = append(errs, fmt.Errorf("reference: %w",
			errors.NewInvalidValue("accuracy", c.Reference.Accuracy, "must be in (0, 1)")))
	}

	if err := c.Output.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("output: %w", err))
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", errors.NewValidation("level", err.Error())))
	}

	return stderrors.Join(errs...)
}

// Validate checks the source configuration.
func (c *SourceConfig) Validate() error {
	var errs []error

	switch c.Kind {
	case constants.SourceParquet:
		if c.Path == "" {
			errs = append(errs, errors.NewMissingField("path"))
		}
	case constants.SourceDuckDB:
		if c.Query == "" {
			errs = append(errs, errors.NewMissingField("query"))
		}
	default:
		errs = append(errs, errors.NewInvalidValue("kind", c.Kind,
			"must be one of "+strings.Join(constants.ValidSources, ", ")))
	}

	if c.Column == "" {
		errs = append(errs, errors.NewMissingField("column"))
	} else if c.Kind == constants.SourceParquet {
		if err := validation.ValidateColumnPath(c.Column); err != nil {
			errs = append(errs, errors.NewValidation("column", err.Error()))
		}
	}
	if c.BatchSize <= 0 {
		errs = append(errs, errors.NewInvalidValue("batch_size", c.BatchSize, "must be positive"))
	}

	if c.DuckDB.MemoryLimit != "" {
		if _, err := ParseByteSize(c.DuckDB.MemoryLimit); err != nil {
			errs = append(errs, errors.NewInvalidValue("duckdb.memory_limit", c.DuckDB.MemoryLimit, err.Error()))
		}
	}
	if c.DuckDB.Threads < 0 {
		errs = append(errs, errors.NewInvalidValue("duckdb.threads", c.DuckDB.Threads, "must not be negative"))
	}

	return stderrors.Join(errs...)
}

// Validate checks the execution configuration.
func (c *ExecutionConfig) Validate() error {
	var errs []error

	if c.Partitions <= 0 {
		errs = append(errs, errors.NewInvalidValue("partitions", c.Partitions, "must be positive"))
	}
	if c.MaxWorkers < 0 {
		errs = append(errs, errors.NewInvalidValue("max_workers", c.MaxWorkers, "must not be negative"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.NewInvalidValue("timeout", c.Timeout, "must not be negative"))
	}

	return stderrors.Join(errs...)
}

// Validate checks the output configuration.
func (c *OutputConfig) Validate() error {
	var errs []error

	if !constants.IsValidFormat(c.Format) {
		errs = append(errs, errors.NewInvalidValue("format", c.Format,
			"must be one of "+strings.Join(constants.ValidFormats, ", ")))
	}
	switch c.Compression {
	case "", "none", "snappy", "zstd", "lz4", "gzip":
	default:
		errs = append(errs, errors.NewInvalidValue("compression", c.Compression, "unknown codec"))
	}

	return stderrors.Join(errs...)
}

// ParseByteSize parses a size like "512MB" or "2 GB" into bytes.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("no number in %q", s)
	}

	value, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, err
	}

	switch strings.ToUpper(strings.TrimSpace(s[i:])) {
	case "B", "":
		return value, nil
	case "KB", "K", "KIB":
		return value << 10, nil
	case "MB", "M", "MIB":
		return value << 20, nil
	case "GB", "G", "GIB":
		return value << 30, nil
	case "TB", "T", "TIB":
		return value << 40, nil
	default:
		return 0, fmt.Errorf("unknown unit in %q", s)
	}
}
