package aggregate

import (
	"fmt"
	"math"
	"slices"

	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
)

// Options configures one logical tdigest aggregation. An Options value is
// built once and shared read-only by every partition's aggregator.
type Options struct {
	delta      float64
	bufferSize int
	q          []float64
	minCount   int64
	skipNulls  bool
}

// Option sets a field of Options during construction.
type Option func(*Options)

// WithDelta sets the compression resolution, in (0, 1].
func WithDelta(delta float64) Option {
	return func(o *Options) { o.delta = delta }
}

// WithBufferSize sets the number of points buffered before compression.
func WithBufferSize(n int) Option {
	return func(o *Options) { o.bufferSize = n }
}

// WithQuantiles sets the quantiles to compute, each in [0, 1]. The order
// is kept in the output.
func WithQuantiles(q ...float64) Option {
	return func(o *Options) { o.q = slices.Clone(q) }
}

// WithMinCount sets the number of valid rows required for a non-null
// result.
func WithMinCount(n int64) Option {
	return func(o *Options) { o.minCount = n }
}

// WithSkipNulls controls whether nulls are skipped (true) or make the
// whole result null (false).
func WithSkipNulls(skip bool) Option {
	return func(o *Options) { o.skipNulls = skip }
}

// NewOptions builds validated options. Every violated constraint is
// reported; the returned error wraps ErrInvalidOptions.
func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{
		delta:      config.DefaultDelta,
		bufferSize: config.DefaultBufferSize,
		q:          config.DefaultQuantiles(),
		minCount:   config.DefaultMinCount,
		skipNulls:  config.DefaultSkipNulls,
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// DefaultOptions returns the defaults: delta 0.01, buffer 500, q [0.5],
// min_count 0, skip_nulls true.
func DefaultOptions() *Options {
	o, _ := NewOptions()
	return o
}

func (o *Options) validate() error {
	errs := errors.NewValidationErrors()

	if !(o.delta > 0 && o.delta <= 1) {
		errs.Add(errors.NewInvalidOption("delta", o.delta, "must be in (0, 1]"))
	}
	if o.bufferSize <= 0 {
		errs.Add(errors.NewInvalidOption("buffer_size", o.bufferSize, "must be positive"))
	}
	if len(o.q) == 0 {
		errs.Add(errors.NewInvalidOption("q", o.q, "at least one quantile is required"))
	}
	for i, q := range o.q {
		if math.IsNaN(q) || q < 0 || q > 1 {
			errs.Add(fmt.Errorf("q[%d] = %v: must be in [0, 1]: %w: %w",
				i, q, errors.ErrInvalidQuantile, errors.ErrInvalidOptions))
		}
	}
	if o.minCount < 0 {
		errs.Add(errors.NewInvalidOption("min_count", o.minCount, "must not be negative"))
	}

	return errs.Err()
}

// Delta returns the compression resolution.
func (o *Options) Delta() float64 { return o.delta }

// BufferSize returns the digest buffer size.
func (o *Options) BufferSize() int { return o.bufferSize }

// Quantiles returns a copy of the requested quantiles.
func (o *Options) Quantiles() []float64 { return slices.Clone(o.q) }

// NumQuantiles returns the output length.
func (o *Options) NumQuantiles() int { return len(o.q) }

// MinCount returns the minimum number of valid rows.
func (o *Options) MinCount() int64 { return o.minCount }

// SkipNulls reports whether nulls are skipped.
func (o *Options) SkipNulls() bool { return o.skipNulls }

// String formats the options the way they appear in logs.
func (o *Options) String() string {
	return fmt.Sprintf("delta=%g buffer_size=%d q=%v min_count=%d skip_nulls=%t",
		o.delta, o.bufferSize, o.q, o.minCount, o.skipNulls)
}
