package testing

import (
	"math/rand"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// =============================================================================
// Arrow Fixtures
// =============================================================================

// Float64s builds a float64 array. valid marks present rows; nil means
// every row is present.
func Float64s(mem memory.Allocator, values []float64, valid []bool) *array.Float64 {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewFloat64Array()
}

// Int64s builds an int64 array. valid marks present rows; nil means every
// row is present.
func Int64s(mem memory.Allocator, values []int64, valid []bool) *array.Int64 {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewInt64Array()
}

// Int32s builds an int32 array.
func Int32s(mem memory.Allocator, values []int32, valid []bool) *array.Int32 {
	b := array.NewInt32Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewInt32Array()
}

// Float64Ptrs builds a float64 array where nil entries are null.
func Float64Ptrs(mem memory.Allocator, values []*float64) *array.Float64 {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(*v)
	}
	return b.NewFloat64Array()
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// =============================================================================
// Value Generators
// =============================================================================

// Uniform returns n values drawn uniformly from [0, 1).
func Uniform(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}

// Sequence returns from, from+1, ..., to.
func Sequence(from, to int) []float64 {
	out := make([]float64, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, float64(i))
	}
	return out
}

// Chunks splits values into consecutive slices of at most size elements.
func Chunks[T any](values []T, size int) [][]T {
	var out [][]T
	for size > 0 && len(values) > 0 {
		n := min(size, len(values))
		out = append(out, values[:n])
		values = values[n:]
	}
	return out
}

// Shuffled returns a shuffled copy of values.
func Shuffled[T any](seed int64, values []T) []T {
	out := append([]T(nil), values...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
