package parquet

import (
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
	"github.com/xtxerr/quantile/internal/source"
	"github.com/xtxerr/quantile/internal/validation"
)

// ReadColumn reads the leaf column named column (dotted for nested
// fields) into arrays of at most batchSize rows. INT32, INT64, FLOAT and
// DOUBLE columns are supported; nulls are kept. A non-positive batchSize
// means config.DefaultBatchSize.
func ReadColumn(path, column string, batchSize int, mem memory.Allocator) (*source.Column, error) {
	log := logging.Component(logging.ComponentParquet)

	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size(),
		parquet.SkipBloomFilters(true),
		parquet.SkipPageIndex(true),
	)
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	segments, err := validation.SplitColumnPath(column)
	if err != nil {
		return nil, errors.NewValidation("column", err.Error())
	}

	leaf, ok := pf.Schema().Lookup(segments...)
	if !ok {
		return nil, errors.Wrapf(errors.ErrColumnNotFound, "column '%s' in %s", column, path)
	}
	if leaf.MaxRepetitionLevel > 0 {
		return nil, errors.NewUnsupportedType("repeated column " + column)
	}

	cb, err := newColumnBuilder(mem, leaf.Node.Type().Kind())
	if err != nil {
		return nil, errors.Wrapf(err, "column '%s'", column)
	}
	defer cb.release()

	col := &source.Column{Name: column, Type: cb.dtype}
	values := make([]parquet.Value, 1024)

	for _, rg := range pf.RowGroups() {
		chunk := rg.ColumnChunks()[leaf.ColumnIndex]
		if err := readChunk(chunk, values, func(v parquet.Value) {
			cb.append(v)
			if cb.len() >= batchSize {
				col.Arrays = append(col.Arrays, cb.flush())
			}
		}); err != nil {
			col.Release()
			return nil, fmt.Errorf("read column '%s': %w", column, err)
		}
	}
	if cb.len() > 0 {
		col.Arrays = append(col.Arrays, cb.flush())
	}

	log.Debug("column read",
		"path", path,
		"column", column,
		"type", col.Type,
		"rows", col.Rows(),
		"nulls", col.NullN(),
		"batches", len(col.Arrays))

	return col, nil
}

func readChunk(chunk parquet.ColumnChunk, buf []parquet.Value, fn func(parquet.Value)) error {
	pages := chunk.Pages()
	defer pages.Close()

	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read page: %w", err)
		}

		err = readPage(page, buf, fn)
		parquet.Release(page)
		if err != nil {
			return err
		}
	}
}

func readPage(page parquet.Page, buf []parquet.Value, fn func(parquet.Value)) error {
	r := page.Values()
	for {
		n, err := r.ReadValues(buf)
		for _, v := range buf[:n] {
			fn(v)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read values: %w", err)
		}
	}
}

// columnBuilder accumulates values of one physical kind into an Arrow
// builder.
type columnBuilder struct {
	dtype   arrow.DataType
	builder array.Builder
	put     func(parquet.Value)
}

func newColumnBuilder(mem memory.Allocator, kind parquet.Kind) (*columnBuilder, error) {
	switch kind {
	case parquet.Int32:
		b := array.NewInt32Builder(mem)
		return &columnBuilder{arrow.PrimitiveTypes.Int32, b, func(v parquet.Value) { b.Append(v.Int32()) }}, nil
	case parquet.Int64:
		b := array.NewInt64Builder(mem)
		return &columnBuilder{arrow.PrimitiveTypes.Int64, b, func(v parquet.Value) { b.Append(v.Int64()) }}, nil
	case parquet.Float:
		b := array.NewFloat32Builder(mem)
		return &columnBuilder{arrow.PrimitiveTypes.Float32, b, func(v parquet.Value) { b.Append(v.Float()) }}, nil
	case parquet.Double:
		b := array.NewFloat64Builder(mem)
		return &columnBuilder{arrow.PrimitiveTypes.Float64, b, func(v parquet.Value) { b.Append(v.Double()) }}, nil
	default:
		return nil, errors.NewUnsupportedType("parquet " + kind.String())
	}
}

func (c *columnBuilder) append(v parquet.Value) {
	if v.IsNull() {
		c.builder.AppendNull()
		return
	}
	c.put(v)
}

func (c *columnBuilder) len() int { return c.builder.Len() }

// flush returns the accumulated rows as an array and resets the builder.
func (c *columnBuilder) flush() arrow.Array { return c.builder.NewArray() }

func (c *columnBuilder) release() { c.builder.Release() }
