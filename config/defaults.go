// Package config provides configuration defaults and utilities
// for the quantile aggregation engine.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via a job file (YAML) or CLI flags.
package config

// =============================================================================
// Digest Defaults
// =============================================================================

const (
	// DefaultDelta is the compression resolution of the t-digest.
	// Smaller values keep more centroids and give more accurate quantiles.
	// The digest keeps O(1/delta) centroids after each compression pass.
	// Range: (0, 1]
	// Override via config: options.delta
	DefaultDelta = 0.01

	// DefaultBufferSize is the number of raw points buffered before the
	// digest compresses them into centroids.
	// Override via config: options.buffer_size
	DefaultBufferSize = 500

	// DefaultMinCount is the minimum number of valid rows required before
	// a non-null result is produced.
	// Override via config: options.min_count
	DefaultMinCount = 0

	// DefaultSkipNulls controls whether nulls are ignored (true) or poison
	// the whole result (false).
	// Override via config: options.skip_nulls
	DefaultSkipNulls = true
)

// DefaultQuantiles returns the quantiles computed when none are requested.
// A fresh slice is returned on every call.
func DefaultQuantiles() []float64 {
	return []float64{0.5}
}

// =============================================================================
// Execution Defaults
// =============================================================================

const (
	// DefaultPartitions is the number of parallel partitions a job is split
	// into when reading a single input.
	// Override via config: execution.partitions
	DefaultPartitions = 4

	// DefaultMaxWorkers bounds the number of partitions consumed at the same
	// time. Zero means one worker per partition.
	// Override via config: execution.max_workers
	DefaultMaxWorkers = 0

	// DefaultBatchSize is the number of rows per batch read from a source.
	// Override via config: source.batch_size
	DefaultBatchSize = 64 * 1024
)

// =============================================================================
// Reference Sketch Defaults
// =============================================================================

const (
	// DefaultReferenceAccuracy is the relative accuracy of the DDSketch
	// reference estimator (0.01 = 1% error).
	// Override via config: reference.accuracy
	DefaultReferenceAccuracy = 0.01
)
