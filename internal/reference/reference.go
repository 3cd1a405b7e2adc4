// Package reference provides a second quantile estimator, a DDSketch,
// that consumes the same batches as the tdigest aggregate. Its estimates
// carry a relative error guarantee and are printed next to the tdigest
// results for comparison.
package reference

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/bitrun"
	"github.com/xtxerr/quantile/internal/errors"
)

// Estimator is a DDSketch fed from Arrow batches.
type Estimator struct {
	accuracy float64
	sketch   *ddsketch.DDSketch
}

// New creates an estimator with the given relative accuracy. A value
// outside (0, 1) means config.DefaultReferenceAccuracy.
func New(accuracy float64) (*Estimator, error) {
	if !(accuracy > 0 && accuracy < 1) {
		accuracy = config.DefaultReferenceAccuracy
	}
	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return nil, fmt.Errorf("create sketch: %w", err)
	}
	return &Estimator{accuracy: accuracy, sketch: sketch}, nil
}

// Accuracy returns the relative accuracy.
func (e *Estimator) Accuracy() float64 { return e.accuracy }

// Count returns the number of values added.
func (e *Estimator) Count() float64 { return e.sketch.GetCount() }

// IsEmpty reports whether no value was added.
func (e *Estimator) IsEmpty() bool { return e.sketch.IsEmpty() }

// Consume adds the valid values of batch. Scalars are added once per row.
// NaN and infinities are skipped.
func (e *Estimator) Consume(batch aggregate.Batch) error {
	if batch.IsArray() {
		return e.consumeArray(batch.Array)
	}
	if batch.Scalar == nil || !batch.Scalar.IsValid() {
		return nil
	}

	v, err := scalarFloat(batch.Scalar)
	if err != nil {
		return err
	}
	if !finite(v) || batch.Length <= 0 {
		return nil
	}
	if err := e.sketch.AddWithCount(v, float64(batch.Length)); err != nil {
		return fmt.Errorf("add %v: %w", v, err)
	}
	return nil
}

func (e *Estimator) consumeArray(arr arrow.Array) error {
	at, err := floatAt(arr)
	if err != nil {
		return err
	}

	var bitmap []byte
	if arr.NullN() > 0 {
		bitmap = arr.NullBitmapBytes()
	}
	for pos, n := range bitrun.Runs(bitmap, int64(arr.Data().Offset()), int64(arr.Len())) {
		for i := pos; i < pos+n; i++ {
			v := at(int(i))
			if !finite(v) {
				continue
			}
			if err := e.sketch.Add(v); err != nil {
				return fmt.Errorf("add %v: %w", v, err)
			}
		}
	}
	return nil
}

// Merge folds other into e. Both must have the same accuracy.
func (e *Estimator) Merge(other *Estimator) error {
	if other == nil {
		return nil
	}
	if err := e.sketch.MergeWith(other.sketch); err != nil {
		return fmt.Errorf("merge sketch: %v: %w", err, errors.ErrIncompatibleState)
	}
	return nil
}

// Quantiles returns the estimate for every q. An empty estimator yields
// NaN for each.
func (e *Estimator) Quantiles(q []float64) ([]float64, error) {
	out := make([]float64, len(q))
	if e.sketch.IsEmpty() {
		for i := range out {
			out[i] = math.NaN()
		}
		return out, nil
	}

	for i, x := range q {
		v, err := e.sketch.GetValueAtQuantile(x)
		if err != nil {
			return nil, fmt.Errorf("quantile %v: %w", x, err)
		}
		out[i] = v
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// floatAt returns an accessor converting element i of arr to float64.
func floatAt(arr arrow.Array) (func(int) float64, error) {
	switch a := arr.(type) {
	case *array.Int8:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Int16:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Int32:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Int64:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Uint8:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Uint16:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Uint32:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Uint64:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Float32:
		return func(i int) float64 { return float64(a.Value(i)) }, nil
	case *array.Float64:
		return a.Value, nil
	default:
		return nil, errors.NewUnsupportedType(arr.DataType().String())
	}
}

func scalarFloat(s scalar.Scalar) (float64, error) {
	switch v := s.(type) {
	case *scalar.Int8:
		return float64(v.Value), nil
	case *scalar.Int16:
		return float64(v.Value), nil
	case *scalar.Int32:
		return float64(v.Value), nil
	case *scalar.Int64:
		return float64(v.Value), nil
	case *scalar.Uint8:
		return float64(v.Value), nil
	case *scalar.Uint16:
		return float64(v.Value), nil
	case *scalar.Uint32:
		return float64(v.Value), nil
	case *scalar.Uint64:
		return float64(v.Value), nil
	case *scalar.Float32:
		return float64(v.Value), nil
	case *scalar.Float64:
		return v.Value, nil
	default:
		return 0, errors.NewUnsupportedType(s.DataType().String())
	}
}
