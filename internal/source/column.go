// Package source holds the column type shared by the input readers.
//
// Readers live in subpackages: parquet reads a leaf column of a Parquet
// file, duckdb runs a SQL query. Both hand back a Column whose arrays feed
// the aggregate.
package source

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/xtxerr/quantile/internal/aggregate"
)

// Column is a named sequence of Arrow arrays of one type. The Column owns
// one reference to each array.
type Column struct {
	Name   string
	Type   arrow.DataType
	Arrays []arrow.Array
}

// Rows returns the total number of rows.
func (c *Column) Rows() int64 {
	var n int64
	for _, a := range c.Arrays {
		n += int64(a.Len())
	}
	return n
}

// NullN returns the total number of nulls.
func (c *Column) NullN() int64 {
	var n int64
	for _, a := range c.Arrays {
		n += int64(a.NullN())
	}
	return n
}

// Batches wraps every array as a batch, in order.
func (c *Column) Batches() []aggregate.Batch {
	out := make([]aggregate.Batch, len(c.Arrays))
	for i, a := range c.Arrays {
		out[i] = aggregate.ArrayBatch(a)
	}
	return out
}

// Partition splits the batches into at most n contiguous groups of nearly
// equal batch count. Empty groups are dropped.
func (c *Column) Partition(n int) [][]aggregate.Batch {
	batches := c.Batches()
	if n <= 1 || len(batches) <= 1 {
		return [][]aggregate.Batch{batches}
	}
	n = min(n, len(batches))

	out := make([][]aggregate.Batch, 0, n)
	for i := 0; i < n; i++ {
		lo := i * len(batches) / n
		hi := (i + 1) * len(batches) / n
		if hi > lo {
			out = append(out, batches[lo:hi])
		}
	}
	return out
}

// Release drops the column's references to its arrays.
func (c *Column) Release() {
	for _, a := range c.Arrays {
		a.Release()
	}
	c.Arrays = nil
}
