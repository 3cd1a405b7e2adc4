package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// Batch is one unit of input: either a dense array or a scalar broadcast
// over Length rows.
type Batch struct {
	Array  arrow.Array
	Scalar scalar.Scalar
	Length int64
}

// ArrayBatch wraps an array. The batch does not take a reference; the
// caller keeps the array alive while it is consumed.
func ArrayBatch(arr arrow.Array) Batch {
	return Batch{Array: arr, Length: int64(arr.Len())}
}

// ScalarBatch wraps a scalar repeated over length rows.
func ScalarBatch(s scalar.Scalar, length int64) Batch {
	return Batch{Scalar: s, Length: length}
}

// IsArray reports whether the batch carries a dense array.
func (b Batch) IsArray() bool {
	return b.Array != nil
}

// Len returns the number of logical rows.
func (b Batch) Len() int64 {
	return b.Length
}

// Type returns the element type of the batch.
func (b Batch) Type() arrow.DataType {
	if b.Array != nil {
		return b.Array.DataType()
	}
	if b.Scalar != nil {
		return b.Scalar.DataType()
	}
	return nil
}

// NullCount returns the number of nulls. A null scalar counts once
// regardless of the batch length.
func (b Batch) NullCount() int64 {
	if b.Array != nil {
		return int64(b.Array.NullN())
	}
	if b.Scalar == nil || !b.Scalar.IsValid() {
		return 1
	}
	return 0
}
