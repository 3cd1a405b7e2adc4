package aggregate

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"

	"github.com/xtxerr/quantile/internal/errors"
	testutil "github.com/xtxerr/quantile/internal/testing"
)

func mustOptions(t *testing.T, opts ...Option) *Options {
	t.Helper()
	o, err := NewOptions(opts...)
	if err != nil {
		t.Fatalf("NewOptions: %v", err)
	}
	return o
}

func mustNew(t *testing.T, dt arrow.DataType, opts *Options) Aggregator {
	t.Helper()
	agg, err := New(dt, opts)
	if err != nil {
		t.Fatalf("New(%s): %v", dt, err)
	}
	return agg
}

func consumeFloats(t *testing.T, agg Aggregator, mem memory.Allocator, values []float64, valid []bool) {
	t.Helper()
	arr := testutil.Float64s(mem, values, valid)
	defer arr.Release()
	if err := agg.Consume(ArrayBatch(arr)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
}

func finalize(t *testing.T, agg Aggregator, mem memory.Allocator) *array.Float64 {
	t.Helper()
	out, err := agg.Finalize(mem)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return out
}

func assertAllNull(t *testing.T, out *array.Float64, n int) {
	t.Helper()
	if out.Len() != n {
		t.Fatalf("expected length %d, got %d", n, out.Len())
	}
	if out.NullN() != n {
		t.Errorf("expected %d nulls, got %d", n, out.NullN())
	}
	for i := 0; i < n; i++ {
		if out.IsValid(i) {
			t.Errorf("slot %d should be null", i)
		}
		if v := out.Float64Values()[i]; v != 0 {
			t.Errorf("slot %d: expected backing value 0, got %v", i, v)
		}
	}
}

func TestTDigest_OneToTen(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, mustOptions(t, WithQuantiles(0.5)))
	consumeFloats(t, agg, mem, testutil.Sequence(1, 10), nil)

	out := finalize(t, agg, mem)
	defer out.Release()

	if out.Len() != 1 || out.NullN() != 0 {
		t.Fatalf("expected one valid value, got len=%d nulls=%d", out.Len(), out.NullN())
	}
	if got := out.Value(0); math.Abs(got-5.5) > 0.5 {
		t.Errorf("expected median within 0.5 of 5.5, got %v", got)
	}
	if agg.Count() != 10 {
		t.Errorf("expected count=10, got %d", agg.Count())
	}
}

func TestTDigest_SkipNulls(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	opts := mustOptions(t, WithQuantiles(0, 0.25, 0.5, 0.75, 1))

	withNull := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
	consumeFloats(t, withNull, mem, []float64{1, 2, 99, 4}, []bool{true, true, false, true})

	dense := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
	consumeFloats(t, dense, mem, []float64{1, 2, 4}, nil)

	if withNull.Count() != 3 {
		t.Errorf("expected count=3, got %d", withNull.Count())
	}

	a, b := withNull.Digest().Centroids(), dense.Digest().Centroids()
	if len(a) != len(b) {
		t.Fatalf("expected %d centroids, got %d", len(b), len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("centroid %d: expected %v, got %v", i, b[i], a[i])
		}
	}

	x, y := finalize(t, withNull, mem), finalize(t, dense, mem)
	defer x.Release()
	defer y.Release()
	for i := 0; i < x.Len(); i++ {
		if x.Value(i) != y.Value(i) {
			t.Errorf("q[%d]: expected %v, got %v", i, y.Value(i), x.Value(i))
		}
	}
}

func TestTDigest_NullPoisonsWhenNotSkipping(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64,
		mustOptions(t, WithSkipNulls(false), WithQuantiles(0.1, 0.5, 0.9)))

	consumeFloats(t, agg, mem, []float64{1, 2, 3}, nil)
	consumeFloats(t, agg, mem, []float64{4, 0}, []bool{true, false})
	if agg.AllValid() {
		t.Fatal("a null must clear all_valid when nulls are not skipped")
	}

	// Later batches are ignored.
	consumeFloats(t, agg, mem, []float64{5, 6}, nil)
	if agg.Count() != 3 {
		t.Errorf("expected count to stay 3, got %d", agg.Count())
	}

	out := finalize(t, agg, mem)
	defer out.Release()
	assertAllNull(t, out, 3)
}

func TestTDigest_MinCount(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64,
		mustOptions(t, WithMinCount(5), WithQuantiles(0.5, 0.9)))
	consumeFloats(t, agg, mem, []float64{1, 2, 3}, nil)

	out := finalize(t, agg, mem)
	defer out.Release()
	assertAllNull(t, out, 2)

	consumeFloats(t, agg, mem, []float64{4, 5}, nil)
	out2 := finalize(t, agg, mem)
	defer out2.Release()
	if out2.NullN() != 0 {
		t.Errorf("expected valid output once count reaches min_count, got %d nulls", out2.NullN())
	}
}

func TestTDigest_EmptyInput(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, mustOptions(t, WithQuantiles(0.1, 0.5, 0.9)))
	if !agg.IsEmpty() {
		t.Error("new aggregator should be empty")
	}

	out := finalize(t, agg, mem)
	defer out.Release()
	assertAllNull(t, out, 3)

	// All-null input keeps the digest empty.
	consumeFloats(t, agg, mem, []float64{1, 2}, []bool{false, false})
	if agg.Count() != 0 || !agg.IsEmpty() {
		t.Errorf("expected count=0 and empty digest, got count=%d", agg.Count())
	}
}

func TestTDigest_NaNCountedButNotAdded(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, DefaultOptions())
	consumeFloats(t, agg, mem, []float64{math.NaN(), math.NaN()}, nil)

	if agg.Count() != 2 {
		t.Errorf("expected count=2, got %d", agg.Count())
	}
	if !agg.IsEmpty() {
		t.Error("NaN values must not reach the digest")
	}

	out := finalize(t, agg, mem)
	defer out.Release()
	assertAllNull(t, out, 1)
}

// The scalar path adds the value once per row but bumps count by one per
// batch. The asymmetry is intentional engine behaviour.
func TestTDigest_ScalarBroadcast(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, mustOptions(t, WithQuantiles(0, 0.5, 1)))
	if err := agg.Consume(ScalarBatch(scalar.NewFloat64Scalar(7), 10)); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if agg.Count() != 1 {
		t.Errorf("expected count=1, got %d", agg.Count())
	}
	if w := agg.Digest().TotalWeight(); w != 10 {
		t.Errorf("expected weight=10, got %v", w)
	}

	out := finalize(t, agg, mem)
	defer out.Release()
	for i := 0; i < out.Len(); i++ {
		if out.Value(i) != 7 {
			t.Errorf("q[%d]: expected 7, got %v", i, out.Value(i))
		}
	}
}

func TestTDigest_NullScalar(t *testing.T) {
	null := scalar.MakeNullScalar(arrow.PrimitiveTypes.Int64)

	skip := mustNew(t, arrow.PrimitiveTypes.Int64, DefaultOptions())
	if err := skip.Consume(ScalarBatch(null, 5)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if skip.Count() != 0 || !skip.IsEmpty() || !skip.AllValid() {
		t.Errorf("null scalar should be skipped, got count=%d all_valid=%t", skip.Count(), skip.AllValid())
	}

	strict := mustNew(t, arrow.PrimitiveTypes.Int64, mustOptions(t, WithSkipNulls(false)))
	if err := strict.Consume(ScalarBatch(null, 5)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if strict.AllValid() {
		t.Error("null scalar should clear all_valid when nulls are not skipped")
	}
}

func TestTDigest_BatchOrderInvariance(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	values := testutil.Uniform(3, 5000)
	opts := mustOptions(t, WithQuantiles(0.01, 0.1, 0.5, 0.9, 0.99))

	run := func(chunks [][]float64) *array.Float64 {
		agg := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
		for _, c := range chunks {
			consumeFloats(t, agg, mem, c, nil)
		}
		if agg.Count() != int64(len(values)) {
			t.Errorf("expected count=%d, got %d", len(values), agg.Count())
		}
		return finalize(t, agg, mem)
	}

	whole := run([][]float64{values})
	defer whole.Release()

	groupings := [][][]float64{
		testutil.Chunks(values, 100),
		testutil.Shuffled(1, testutil.Chunks(values, 37)),
		testutil.Chunks(testutil.Shuffled(2, values), 1000),
	}
	for g, chunks := range groupings {
		out := run(chunks)
		for i := 0; i < out.Len(); i++ {
			if math.Abs(out.Value(i)-whole.Value(i)) > 0.01 {
				t.Errorf("grouping %d q[%d]: expected %v ± 0.01, got %v", g, i, whole.Value(i), out.Value(i))
			}
		}
		out.Release()
	}
}

func TestTDigest_SlicedArray(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	values := testutil.Sequence(0, 19)
	valid := make([]bool, len(values))
	for i := range valid {
		valid[i] = i%3 != 0
	}
	arr := testutil.Float64s(mem, values, valid)
	defer arr.Release()

	// Rows 5..16: the slice starts mid-byte of the validity bitmap.
	slice := array.NewSlice(arr, 5, 17)
	defer slice.Release()

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, mustOptions(t, WithQuantiles(0, 1)))
	if err := agg.Consume(ArrayBatch(slice)); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	// Valid rows in 5..16: 5,7,8,10,11,13,14,16.
	if agg.Count() != 8 {
		t.Errorf("expected count=8, got %d", agg.Count())
	}
	d := agg.Digest()
	if d.Min() != 5 || d.Max() != 16 {
		t.Errorf("expected min/max 5/16, got %v/%v", d.Min(), d.Max())
	}
	if d.TotalWeight() != 8 {
		t.Errorf("expected weight=8, got %v", d.TotalWeight())
	}
}

func TestTDigest_IntegerInput(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Int32, mustOptions(t, WithQuantiles(0, 0.5, 1)))
	arr := testutil.Int32s(mem, []int32{-5, 10, 3, 8, 1}, []bool{true, true, false, true, true})
	defer arr.Release()

	if err := agg.Consume(ArrayBatch(arr)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := agg.Consume(ScalarBatch(scalar.NewInt32Scalar(2), 3)); err != nil {
		t.Fatalf("Consume scalar: %v", err)
	}

	out := finalize(t, agg, mem)
	defer out.Release()

	if out.Value(0) != -5 || out.Value(2) != 10 {
		t.Errorf("expected min=-5 max=10, got %v/%v", out.Value(0), out.Value(2))
	}
	if agg.Count() != 5 {
		t.Errorf("expected count=4+1, got %d", agg.Count())
	}
}

func TestTDigest_TypeMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, DefaultOptions())
	arr := testutil.Int64s(mem, []int64{1, 2}, nil)
	defer arr.Release()

	err := agg.Consume(ArrayBatch(arr))
	if !errors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}

	err = agg.Consume(ScalarBatch(scalar.NewInt64Scalar(1), 2))
	if !errors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for scalar, got %v", err)
	}

	if err := agg.Consume(Batch{}); !errors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for empty batch, got %v", err)
	}
}

func TestNew_Types(t *testing.T) {
	supported := []arrow.DataType{
		arrow.PrimitiveTypes.Int8, arrow.PrimitiveTypes.Int16,
		arrow.PrimitiveTypes.Int32, arrow.PrimitiveTypes.Int64,
		arrow.PrimitiveTypes.Uint8, arrow.PrimitiveTypes.Uint16,
		arrow.PrimitiveTypes.Uint32, arrow.PrimitiveTypes.Uint64,
		arrow.PrimitiveTypes.Float32, arrow.PrimitiveTypes.Float64,
	}
	for _, dt := range supported {
		if _, err := New(dt, nil); err != nil {
			t.Errorf("%s: unexpected error %v", dt, err)
		}
		if !IsSupported(dt) {
			t.Errorf("%s should be supported", dt)
		}
	}

	unsupported := []arrow.DataType{
		arrow.FixedWidthTypes.Float16,
		arrow.FixedWidthTypes.Boolean,
		arrow.BinaryTypes.String,
		arrow.FixedWidthTypes.Date32,
		nil,
	}
	for _, dt := range unsupported {
		agg, err := New(dt, nil)
		if !errors.Is(err, errors.ErrUnsupportedType) {
			t.Errorf("%v: expected ErrUnsupportedType, got %v", dt, err)
		}
		if agg != nil {
			t.Errorf("%v: expected no aggregator", dt)
		}
		if IsSupported(dt) {
			t.Errorf("%v should not be supported", dt)
		}
	}
}

func TestMergeFrom(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	opts := mustOptions(t, WithQuantiles(0, 0.5, 1))

	a := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
	consumeFloats(t, a, mem, []float64{1, 2, 3}, nil)
	b := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
	consumeFloats(t, b, mem, []float64{4, 5}, nil)

	if err := a.MergeFrom(b); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	if a.Count() != 5 {
		t.Errorf("expected count=5, got %d", a.Count())
	}

	out := finalize(t, a, mem)
	defer out.Release()
	if out.Value(0) != 1 || out.Value(1) != 3 || out.Value(2) != 5 {
		t.Errorf("expected [1 3 5], got %v", out.Float64Values())
	}
}

func TestMergeFrom_PoisonPropagates(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	opts := mustOptions(t, WithSkipNulls(false))

	clean := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
	consumeFloats(t, clean, mem, []float64{1, 2}, nil)
	poisoned := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
	consumeFloats(t, poisoned, mem, []float64{1, 2}, []bool{true, false})

	// Poison flows in either direction.
	if err := clean.MergeFrom(poisoned); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	if clean.AllValid() {
		t.Error("merging a poisoned state must poison the receiver")
	}

	other := mustNew(t, arrow.PrimitiveTypes.Float64, opts)
	consumeFloats(t, other, mem, []float64{3}, nil)
	if err := poisoned.MergeFrom(other); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	if poisoned.AllValid() {
		t.Error("a poisoned receiver must stay poisoned")
	}

	out := finalize(t, clean, mem)
	defer out.Release()
	assertAllNull(t, out, 1)
}

func TestMergeFrom_Incompatible(t *testing.T) {
	a := mustNew(t, arrow.PrimitiveTypes.Float64, nil)
	b := mustNew(t, arrow.PrimitiveTypes.Int64, nil)

	if err := a.MergeFrom(b); !errors.Is(err, errors.ErrIncompatibleState) {
		t.Errorf("expected ErrIncompatibleState, got %v", err)
	}
	if err := a.MergeFrom(nil); err != nil {
		t.Errorf("merging nil should be a no-op, got %v", err)
	}
}

type failingAllocator struct {
	memory.Allocator
	allowed int
}

func (f *failingAllocator) Allocate(size int) []byte {
	if f.allowed <= 0 {
		panic("out of memory")
	}
	f.allowed--
	return f.Allocator.Allocate(size)
}

func (f *failingAllocator) Reallocate(size int, b []byte) []byte {
	if f.allowed <= 0 {
		panic("out of memory")
	}
	f.allowed--
	return f.Allocator.Reallocate(size, b)
}

func TestFinalize_AllocationFailure(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, mustOptions(t, WithQuantiles(0.5, 0.9)))
	consumeFloats(t, agg, mem, []float64{1, 2, 3}, nil)

	out, err := agg.Finalize(&failingAllocator{Allocator: mem, allowed: 0})
	if !errors.Is(err, errors.ErrAllocationFailed) {
		t.Errorf("expected ErrAllocationFailed, got %v", err)
	}
	if out != nil {
		t.Error("no partial result may be returned")
	}

	// Null path needs a second buffer for the validity bitmap.
	empty := mustNew(t, arrow.PrimitiveTypes.Float64, DefaultOptions())
	out, err = empty.Finalize(&failingAllocator{Allocator: mem, allowed: 1})
	if !errors.Is(err, errors.ErrAllocationFailed) {
		t.Errorf("expected ErrAllocationFailed on null path, got %v", err)
	}
	if out != nil {
		t.Error("no partial result may be returned")
	}
}

func TestFinalize_Repeatable(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	agg := mustNew(t, arrow.PrimitiveTypes.Float64, mustOptions(t, WithQuantiles(0.25, 0.75)))
	consumeFloats(t, agg, mem, testutil.Uniform(8, 2000), nil)

	a, b := finalize(t, agg, mem), finalize(t, agg, mem)
	defer a.Release()
	defer b.Release()
	for i := 0; i < a.Len(); i++ {
		if a.Value(i) != b.Value(i) {
			t.Errorf("q[%d]: finalize changed result %v -> %v", i, a.Value(i), b.Value(i))
		}
	}
}
