package aggregate

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/xtxerr/quantile/internal/bitrun"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/tdigest"
)

// Aggregator is the per-partition state of a tdigest aggregation.
//
// An Aggregator is owned by one goroutine while it consumes batches.
// Partition states are combined with MergeFrom and the merged state is
// turned into the result with Finalize.
type Aggregator interface {
	// Consume adds the valid values of batch.
	Consume(batch Batch) error

	// MergeFrom folds other into the receiver. other must come from New
	// with the same input type.
	MergeFrom(other Aggregator) error

	// Finalize returns one float64 per requested quantile, either all
	// valid or all null.
	Finalize(mem memory.Allocator) (*array.Float64, error)

	// Count returns the number of valid rows that contributed.
	Count() int64

	// AllValid reports whether no disqualifying null has been seen.
	AllValid() bool

	// IsEmpty reports whether the digest holds no value.
	IsEmpty() bool

	// Type returns the input element type.
	Type() arrow.DataType

	// Options returns the shared options.
	Options() *Options

	// Digest exposes the underlying sketch for inspection.
	Digest() *tdigest.Digest

	// MarshalState encodes the partial state for transport.
	MarshalState() ([]byte, error)

	// UnmarshalState replaces the state with a decoded one.
	UnmarshalState(data []byte) error
}

// Number is the closed set of element kinds the aggregate accepts.
type Number interface {
	int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// New returns an aggregator for columns of type dt. Half floats and
// non-numeric types are rejected with ErrUnsupportedType. Nil options mean
// DefaultOptions.
func New(dt arrow.DataType, opts *Options) (Aggregator, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if dt == nil {
		return nil, errors.NewUnsupportedType("<nil>")
	}

	switch dt.ID() {
	case arrow.INT8:
		return newTDigest[int8](dt, opts), nil
	case arrow.INT16:
		return newTDigest[int16](dt, opts), nil
	case arrow.INT32:
		return newTDigest[int32](dt, opts), nil
	case arrow.INT64:
		return newTDigest[int64](dt, opts), nil
	case arrow.UINT8:
		return newTDigest[uint8](dt, opts), nil
	case arrow.UINT16:
		return newTDigest[uint16](dt, opts), nil
	case arrow.UINT32:
		return newTDigest[uint32](dt, opts), nil
	case arrow.UINT64:
		return newTDigest[uint64](dt, opts), nil
	case arrow.FLOAT32:
		return newTDigest[float32](dt, opts), nil
	case arrow.FLOAT64:
		return newTDigest[float64](dt, opts), nil
	default:
		return nil, errors.NewUnsupportedType(dt.String())
	}
}

// IsSupported reports whether New accepts dt.
func IsSupported(dt arrow.DataType) bool {
	if dt == nil {
		return false
	}
	_, ok := numericTypes[dt.ID()]
	return ok
}

var numericTypes = map[arrow.Type]arrow.DataType{
	arrow.INT8:    arrow.PrimitiveTypes.Int8,
	arrow.INT16:   arrow.PrimitiveTypes.Int16,
	arrow.INT32:   arrow.PrimitiveTypes.Int32,
	arrow.INT64:   arrow.PrimitiveTypes.Int64,
	arrow.UINT8:   arrow.PrimitiveTypes.Uint8,
	arrow.UINT16:  arrow.PrimitiveTypes.Uint16,
	arrow.UINT32:  arrow.PrimitiveTypes.Uint32,
	arrow.UINT64:  arrow.PrimitiveTypes.Uint64,
	arrow.FLOAT32: arrow.PrimitiveTypes.Float32,
	arrow.FLOAT64: arrow.PrimitiveTypes.Float64,
}

type tdigestAgg[T Number] struct {
	opts     *Options
	dtype    arrow.DataType
	digest   *tdigest.Digest
	count    int64
	allValid bool
}

func newTDigest[T Number](dt arrow.DataType, opts *Options) *tdigestAgg[T] {
	return &tdigestAgg[T]{
		opts:     opts,
		dtype:    dt,
		digest:   tdigest.New(opts.delta, opts.bufferSize),
		allValid: true,
	}
}

func (a *tdigestAgg[T]) Consume(batch Batch) error {
	if !a.allValid {
		return nil
	}

	dt := batch.Type()
	if dt == nil || dt.ID() != a.dtype.ID() {
		return errors.NewTypeMismatch(a.dtype.String(), typeName(dt))
	}

	if !a.opts.skipNulls && batch.NullCount() > 0 {
		a.allValid = false
		return nil
	}

	if batch.IsArray() {
		return a.consumeArray(batch.Array)
	}
	return a.consumeScalar(batch)
}

func (a *tdigestAgg[T]) consumeArray(arr arrow.Array) error {
	values, ok := arrayValues[T](arr)
	if !ok {
		return errors.NewTypeMismatch(a.dtype.String(), fmt.Sprintf("%T", arr))
	}

	valid := int64(arr.Len() - arr.NullN())
	if valid <= 0 {
		return nil
	}
	a.count += valid

	var bitmap []byte
	if arr.NullN() > 0 {
		bitmap = arr.NullBitmapBytes()
	}

	r := bitrun.NewReader(bitmap, int64(arr.Data().Offset()), int64(arr.Len()))
	for run := r.Next(); run.Len > 0; run = r.Next() {
		for _, v := range values[run.Pos : run.Pos+run.Len] {
			a.digest.Add(float64(v))
		}
	}
	return nil
}

// consumeScalar adds the value once per row but counts the batch as a
// single contributing row.
func (a *tdigestAgg[T]) consumeScalar(batch Batch) error {
	if !batch.Scalar.IsValid() {
		return nil
	}

	v, ok := scalarValue[T](batch.Scalar)
	if !ok {
		return errors.NewTypeMismatch(a.dtype.String(), fmt.Sprintf("%T", batch.Scalar))
	}

	a.count++
	x := float64(v)
	for i := int64(0); i < batch.Length; i++ {
		a.digest.Add(x)
	}
	return nil
}

func (a *tdigestAgg[T]) MergeFrom(other Aggregator) error {
	if other == nil {
		return nil
	}
	o, ok := other.(*tdigestAgg[T])
	if !ok {
		return fmt.Errorf("merge %s state into %s state: %w",
			typeName(other.Type()), a.dtype, errors.ErrIncompatibleState)
	}

	if !a.allValid || !o.allValid {
		a.allValid = false
		return nil
	}

	a.digest.Merge(o.digest)
	a.count += o.count
	return nil
}

func (a *tdigestAgg[T]) Finalize(mem memory.Allocator) (*array.Float64, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	n := len(a.opts.q)
	values, err := allocate(mem, n*arrow.Float64SizeBytes)
	if err != nil {
		return nil, err
	}
	defer values.Release()
	out := arrow.Float64Traits.CastFromBytes(values.Bytes())

	var (
		validity *memory.Buffer
		nulls    int
	)
	if a.digest.IsEmpty() || !a.allValid || a.count < a.opts.minCount {
		validity, err = allocate(mem, int(bitutil.BytesForBits(int64(n))))
		if err != nil {
			return nil, err
		}
		defer validity.Release()

		clear(validity.Bytes())
		clear(out)
		nulls = n
	} else {
		for i, q := range a.opts.q {
			out[i] = a.digest.Quantile(q)
		}
	}

	data := array.NewData(arrow.PrimitiveTypes.Float64, n,
		[]*memory.Buffer{validity, values}, nil, nulls, 0)
	defer data.Release()

	return array.NewFloat64Data(data), nil
}

func (a *tdigestAgg[T]) Count() int64 { return a.count }

func (a *tdigestAgg[T]) AllValid() bool { return a.allValid }

func (a *tdigestAgg[T]) IsEmpty() bool { return a.digest.IsEmpty() }

func (a *tdigestAgg[T]) Type() arrow.DataType { return a.dtype }

func (a *tdigestAgg[T]) Options() *Options { return a.opts }

func (a *tdigestAgg[T]) Digest() *tdigest.Digest { return a.digest }

func (a *tdigestAgg[T]) String() string {
	return fmt.Sprintf("tdigest<%s>(count=%d all_valid=%t %s)", a.dtype, a.count, a.allValid, a.digest)
}

// allocate returns a buffer of size bytes. Arrow allocators panic when
// memory cannot be obtained; the panic is turned into ErrAllocationFailed.
func allocate(mem memory.Allocator, size int) (buf *memory.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("allocate %d bytes: %v: %w", size, r, errors.ErrAllocationFailed)
		}
	}()

	buf = memory.NewResizableBuffer(mem)
	buf.Resize(size)
	return buf, nil
}

func typeName(dt arrow.DataType) string {
	if dt == nil {
		return "<nil>"
	}
	return dt.String()
}
