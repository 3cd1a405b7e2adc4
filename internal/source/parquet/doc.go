// Package parquet reads numeric columns from Parquet files into Arrow
// arrays and writes quantile results back to Parquet.
//
// The package provides:
//   - ReadColumn, which walks one leaf column page by page
//   - WriteResults/ReadResults for (quantile, value, valid) rows
//   - WriteColumn for a single nullable double column
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
package parquet
