package parquet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/quantile/internal/errors"
)

// Options configures the Parquet writers.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// PageBufferSize is the target page size in bytes
	PageBufferSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:    CompressionZstd,
		PageBufferSize: 1024 * 1024,
	}
}

// ParseCompressionType parses a compression type string. Unknown names
// select zstd.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

func (ct CompressionType) codec() compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

func (o Options) writerOptions() []parquet.WriterOption {
	opts := []parquet.WriterOption{parquet.Compression(o.Compression.codec())}
	if o.PageBufferSize > 0 {
		opts = append(opts, parquet.PageBufferSize(o.PageBufferSize))
	}
	return opts
}

// ResultRow is one quantile of a result in Parquet format. Value is null
// when the result is null.
type ResultRow struct {
	Quantile float64  `parquet:"quantile"`
	Value    *float64 `parquet:"value,optional"`
	Valid    bool     `parquet:"valid"`
}

// ResultRows pairs the requested quantiles with the finalized output.
func ResultRows(q []float64, out *array.Float64) ([]ResultRow, error) {
	if out.Len() != len(q) {
		return nil, errors.Wrapf(errors.ErrInternal, "%d quantiles but %d results", len(q), out.Len())
	}

	rows := make([]ResultRow, len(q))
	for i := range q {
		rows[i] = ResultRow{Quantile: q[i], Valid: out.IsValid(i)}
		if rows[i].Valid {
			v := out.Value(i)
			rows[i].Value = &v
		}
	}
	return rows, nil
}

// WriteResults writes one row per quantile to path.
func WriteResults(path string, q []float64, out *array.Float64, opts Options) error {
	rows, err := ResultRows(q, out)
	if err != nil {
		return err
	}

	f, err := create(path)
	if err != nil {
		return err
	}

	w := parquet.NewGenericWriter[ResultRow](f, opts.writerOptions()...)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	return closeWriter(w, f)
}

// ReadResults reads rows written by WriteResults.
func ReadResults(path string) ([]ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[ResultRow](f)
	defer r.Close()

	rows := make([]ResultRow, r.NumRows())
	n, err := r.Read(rows)
	if err != nil && n < len(rows) {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows[:n], nil
}

// WriteColumn writes a single optional DOUBLE column named name. valid
// marks present rows; nil means every row is present.
func WriteColumn(path, name string, values []float64, valid []bool, opts Options) error {
	if valid != nil && len(valid) != len(values) {
		return errors.Wrapf(errors.ErrInternal, "%d values but %d validity flags", len(values), len(valid))
	}

	schema := parquet.NewSchema("column", parquet.Group{
		name: parquet.Optional(parquet.Leaf(parquet.DoubleType)),
	})

	f, err := create(path)
	if err != nil {
		return err
	}

	w := parquet.NewWriter(f, append(opts.writerOptions(), schema)...)

	rows := make([]parquet.Row, len(values))
	for i, v := range values {
		if valid != nil && !valid[i] {
			rows[i] = parquet.Row{parquet.NullValue().Level(0, 0, 0)}
			continue
		}
		rows[i] = parquet.Row{parquet.DoubleValue(v).Level(0, 1, 0)}
	}

	if _, err := w.WriteRows(rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	return closeWriter(w, f)
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return f, nil
}

func closeWriter(w interface{ Close() error }, f *os.File) error {
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	return f.Close()
}
