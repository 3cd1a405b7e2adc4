// Package aggregate implements the streaming tdigest aggregation over Arrow
// batches.
//
// One Aggregator is created per partition with New. It consumes batches,
// either dense arrays or broadcast scalars, and skips nulls or poisons the
// result depending on Options. Partition states are folded together with
// MergeFrom, possibly after being shipped as bytes with MarshalState and
// DecodeState, and the merged state produces a float64 array with one slot
// per requested quantile via Finalize.
//
// The result is all-or-nothing: every slot is valid, or every slot is null
// when the input was empty, a null was seen with skip_nulls disabled, or
// fewer than min_count rows contributed.
package aggregate
