package aggregate

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// arrayValues returns the value slice of arr, already adjusted for the
// array offset. ok is false when arr does not hold T.
func arrayValues[T Number](arr arrow.Array) (values []T, ok bool) {
	var raw any
	switch a := arr.(type) {
	case *array.Int8:
		raw = a.Int8Values()
	case *array.Int16:
		raw = a.Int16Values()
	case *array.Int32:
		raw = a.Int32Values()
	case *array.Int64:
		raw = a.Int64Values()
	case *array.Uint8:
		raw = a.Uint8Values()
	case *array.Uint16:
		raw = a.Uint16Values()
	case *array.Uint32:
		raw = a.Uint32Values()
	case *array.Uint64:
		raw = a.Uint64Values()
	case *array.Float32:
		raw = a.Float32Values()
	case *array.Float64:
		raw = a.Float64Values()
	}
	values, ok = raw.([]T)
	return values, ok
}

// scalarValue unboxes s. ok is false when s does not hold T.
func scalarValue[T Number](s scalar.Scalar) (value T, ok bool) {
	var raw any
	switch v := s.(type) {
	case *scalar.Int8:
		raw = v.Value
	case *scalar.Int16:
		raw = v.Value
	case *scalar.Int32:
		raw = v.Value
	case *scalar.Int64:
		raw = v.Value
	case *scalar.Uint8:
		raw = v.Value
	case *scalar.Uint16:
		raw = v.Value
	case *scalar.Uint32:
		raw = v.Value
	case *scalar.Uint64:
		raw = v.Value
	case *scalar.Float32:
		raw = v.Value
	case *scalar.Float64:
		raw = v.Value
	}
	value, ok = raw.(T)
	return value, ok
}
