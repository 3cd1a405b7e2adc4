package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/quantile/internal/config"
	"github.com/xtxerr/quantile/internal/constants"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
)

// quantileList is a comma separated list of quantiles.
type quantileList []float64

func (q *quantileList) String() string {
	parts := make([]string, len(*q))
	for i, v := range *q {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (q *quantileList) Set(s string) error {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("quantile %q: %w", part, errors.ErrInvalidQuantile)
		}
		out = append(out, v)
	}
	*q = out
	return nil
}

// jobFlags are the flags shared by the commands. Values are only applied
// over the job file when the flag was given.
type jobFlags struct {
	fs *flag.FlagSet

	configPath string
	source     string
	path       string
	query      string
	column     string
	batchSize  int

	q          quantileList
	delta      float64
	bufferSize int
	minCount   int64
	skipNulls  bool

	partitions int
	workers    int
	timeout    time.Duration

	reference bool
	accuracy  float64

	format      string
	out         string
	compression string

	logLevel string
	logJSON  bool
}

func newJobFlags(name string, stderr io.Writer) *jobFlags {
	d := config.DefaultConfig()
	f := &jobFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.SetOutput(stderr)
	f.q = d.Aggregate.Quantiles

	f.fs.StringVar(&f.configPath, "config", "", "YAML job file")
	f.fs.StringVar(&f.source, "source", d.Source.Kind, "input kind: parquet or duckdb")
	f.fs.StringVar(&f.path, "path", "", "Parquet file (source parquet)")
	f.fs.StringVar(&f.query, "query", "", "SQL query (source duckdb)")
	f.fs.StringVar(&f.column, "column", "", "column to aggregate")
	f.fs.IntVar(&f.batchSize, "batch-size", d.Source.BatchSize, "rows per batch")

	f.fs.Var(&f.q, "q", "comma separated quantiles in [0, 1]")
	f.fs.Float64Var(&f.delta, "delta", d.Aggregate.Delta, "compression resolution in (0, 1]")
	f.fs.IntVar(&f.bufferSize, "buffer-size", d.Aggregate.BufferSize, "points buffered between compressions")
	f.fs.Int64Var(&f.minCount, "min-count", d.Aggregate.MinCount, "minimum valid rows for a non-null result")
	f.fs.BoolVar(&f.skipNulls, "skip-nulls", d.Aggregate.SkipNulls, "skip nulls instead of returning null")

	f.fs.IntVar(&f.partitions, "partitions", d.Execution.Partitions, "number of partitions")
	f.fs.IntVar(&f.workers, "workers", d.Execution.MaxWorkers, "max concurrent partitions (0 = GOMAXPROCS)")
	f.fs.DurationVar(&f.timeout, "timeout", d.Execution.Timeout, "job timeout (0 = none)")

	f.fs.BoolVar(&f.reference, "reference", d.Reference.Enabled, "print DDSketch estimates next to the results")
	f.fs.Float64Var(&f.accuracy, "reference-accuracy", d.Reference.Accuracy, "DDSketch relative accuracy")

	f.fs.StringVar(&f.format, "format", d.Output.Format, "output format: auto, table or tsv")
	f.fs.StringVar(&f.out, "out", "", "write results to this Parquet file")
	f.fs.StringVar(&f.compression, "compression", d.Output.Compression, "Parquet codec for -out")

	f.fs.StringVar(&f.logLevel, "log-level", d.Logging.Level, "debug, info, warn or error")
	f.fs.BoolVar(&f.logJSON, "log-json", d.Logging.JSON, "log as JSON")
	return f
}

func (f *jobFlags) parse(args []string) error {
	if err := f.fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return errors.NewValidation("flags", err.Error())
	}
	return nil
}

// load reads the job file, if any, and applies the given flags on top.
// validate selects whether the result is checked; the merge command has
// no source and checks its options on its own.
func (f *jobFlags) load(validate bool) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		data, err := os.ReadFile(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if cfg, err = config.Parse(data); err != nil {
			return nil, errors.NewValidation("config", err.Error())
		}
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "source":
			cfg.Source.Kind = f.source
		case "path":
			cfg.Source.Path = f.path
		case "query":
			cfg.Source.Query = f.query
			if !isSet(f.fs, "source") {
				cfg.Source.Kind = constants.SourceDuckDB
			}
		case "column":
			cfg.Source.Column = f.column
		case "batch-size":
			cfg.Source.BatchSize = f.batchSize
		case "q":
			cfg.Aggregate.Quantiles = f.q
		case "delta":
			cfg.Aggregate.Delta = f.delta
		case "buffer-size":
			cfg.Aggregate.BufferSize = f.bufferSize
		case "min-count":
			cfg.Aggregate.MinCount = f.minCount
		case "skip-nulls":
			cfg.Aggregate.SkipNulls = f.skipNulls
		case "partitions":
			cfg.Execution.Partitions = f.partitions
		case "workers":
			cfg.Execution.MaxWorkers = f.workers
		case "timeout":
			cfg.Execution.Timeout = f.timeout
		case "reference":
			cfg.Reference.Enabled = f.reference
		case "reference-accuracy":
			cfg.Reference.Accuracy = f.accuracy
		case "format":
			cfg.Output.Format = f.format
		case "out":
			cfg.Output.Path = f.out
		case "compression":
			cfg.Output.Compression = f.compression
		case "log-level":
			cfg.Logging.Level = f.logLevel
		case "log-json":
			cfg.Logging.JSON = f.logJSON
		}
	})

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

// initLogging configures the global logger from the job.
func initLogging(cfg *config.Config, stderr io.Writer) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	logging.InitWriter(stderr, level, cfg.Logging.JSON)
}
