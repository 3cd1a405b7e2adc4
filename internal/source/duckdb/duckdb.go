// Package duckdb runs SQL queries in an embedded DuckDB database and turns
// one numeric result column into Arrow arrays.
//
// Queries may read Parquet, CSV or JSON files directly, for example
//
//	SELECT latency_ms FROM read_parquet('requests/*.parquet') WHERE status = 200
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
	"github.com/xtxerr/quantile/internal/source"
	"github.com/xtxerr/quantile/internal/validation"
)

// Options configures the embedded database.
type Options struct {
	// MemoryLimit is passed to SET memory_limit, e.g. "1GB". Empty keeps
	// the DuckDB default.
	MemoryLimit string

	// Threads is passed to SET threads when positive.
	Threads int

	// BatchSize is the number of rows per array. Zero means
	// config.DefaultBatchSize.
	BatchSize int
}

// Source is an in-memory DuckDB database.
type Source struct {
	db   *sql.DB
	opts Options
}

// Open creates an in-memory database.
func Open(opts Options) (*Source, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	var settings []string
	if opts.MemoryLimit != "" {
		settings = append(settings, "SET memory_limit="+validation.QuoteLiteral(opts.MemoryLimit))
	}
	if opts.Threads > 0 {
		settings = append(settings, fmt.Sprintf("SET threads=%d", opts.Threads))
	}
	for _, stmt := range settings {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %v: %w", stmt, err, errors.ErrDatabase)
		}
	}

	return &Source{db: db, opts: opts}, nil
}

// Close closes the database.
func (s *Source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Exec runs a statement without results, such as CREATE TABLE.
func (s *Source) Exec(ctx context.Context, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("exec: %v: %w", err, errors.ErrDatabase)
	}
	return nil
}

// Query runs query and collects the result column named column. SQL
// NULLs become Arrow nulls.
func (s *Source) Query(ctx context.Context, query, column string, mem memory.Allocator) (*source.Column, error) {
	log := logging.Component(logging.ComponentDuckDB)

	if mem == nil {
		mem = memory.DefaultAllocator
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %v: %w", err, errors.ErrDatabase)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %v: %w", err, errors.ErrDatabase)
	}

	idx := -1
	for i, ct := range types {
		if strings.EqualFold(ct.Name(), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Wrapf(errors.ErrColumnNotFound, "column '%s' in query result", column)
	}

	cb, err := newColumnBuilder(mem, types[idx].DatabaseTypeName())
	if err != nil {
		return nil, errors.Wrapf(err, "column '%s'", column)
	}
	defer cb.builder.Release()

	col := &source.Column{Name: column, Type: cb.dtype}

	dest := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			col.Release()
			return nil, fmt.Errorf("scan: %v: %w", err, errors.ErrDatabase)
		}
		if err := cb.append(dest[idx]); err != nil {
			col.Release()
			return nil, err
		}
		if cb.builder.Len() >= s.opts.BatchSize {
			col.Arrays = append(col.Arrays, cb.builder.NewArray())
		}
	}
	if err := rows.Err(); err != nil {
		col.Release()
		return nil, fmt.Errorf("rows: %v: %w", err, errors.ErrDatabase)
	}
	if cb.builder.Len() > 0 {
		col.Arrays = append(col.Arrays, cb.builder.NewArray())
	}

	log.Debug("query read",
		"column", column,
		"type", col.Type,
		"rows", col.Rows(),
		"nulls", col.NullN(),
		"batches", len(col.Arrays))

	return col, nil
}

type columnBuilder struct {
	dtype   arrow.DataType
	builder array.Builder
	put     func(v any) bool
}

// newColumnBuilder maps a DuckDB type name to an Arrow builder.
func newColumnBuilder(mem memory.Allocator, typeName string) (*columnBuilder, error) {
	switch strings.ToUpper(typeName) {
	case "TINYINT":
		return typed[int8](array.NewInt8Builder(mem), arrow.PrimitiveTypes.Int8), nil
	case "SMALLINT":
		return typed[int16](array.NewInt16Builder(mem), arrow.PrimitiveTypes.Int16), nil
	case "INTEGER":
		return typed[int32](array.NewInt32Builder(mem), arrow.PrimitiveTypes.Int32), nil
	case "BIGINT":
		return typed[int64](array.NewInt64Builder(mem), arrow.PrimitiveTypes.Int64), nil
	case "UTINYINT":
		return typed[uint8](array.NewUint8Builder(mem), arrow.PrimitiveTypes.Uint8), nil
	case "USMALLINT":
		return typed[uint16](array.NewUint16Builder(mem), arrow.PrimitiveTypes.Uint16), nil
	case "UINTEGER":
		return typed[uint32](array.NewUint32Builder(mem), arrow.PrimitiveTypes.Uint32), nil
	case "UBIGINT":
		return typed[uint64](array.NewUint64Builder(mem), arrow.PrimitiveTypes.Uint64), nil
	case "FLOAT":
		return typed[float32](array.NewFloat32Builder(mem), arrow.PrimitiveTypes.Float32), nil
	case "DOUBLE":
		return typed[float64](array.NewFloat64Builder(mem), arrow.PrimitiveTypes.Float64), nil
	default:
		return nil, errors.NewUnsupportedType("duckdb " + typeName)
	}
}

type appender[T any] interface {
	array.Builder
	Append(T)
}

func typed[T any, B appender[T]](b B, dt arrow.DataType) *columnBuilder {
	return &columnBuilder{
		dtype:   dt,
		builder: b,
		put: func(v any) bool {
			x, ok := v.(T)
			if ok {
				b.Append(x)
			}
			return ok
		},
	}
}

func (c *columnBuilder) append(v any) error {
	if v == nil {
		c.builder.AppendNull()
		return nil
	}
	if !c.put(v) {
		return errors.NewTypeMismatch(c.dtype.String(), fmt.Sprintf("%T", v))
	}
	return nil
}
