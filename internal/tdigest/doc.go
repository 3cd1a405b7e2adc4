// Package tdigest implements a merging t-digest: a bounded-memory sketch of
// a distribution of float64 values that answers approximate quantile
// queries and can be merged with other digests.
//
// Values are buffered and periodically compressed into centroids (mean,
// weight). The maximum weight a centroid may absorb is governed by an
// arcsine scale function, so centroids near the tails stay small and the
// extreme quantiles stay accurate while the median is summarised coarsely.
// After any compression pass a digest holds O(1/delta) centroids no matter
// how many values were added.
//
// A Digest is not safe for concurrent use. Quantile compresses pending
// input and therefore mutates the receiver.
package tdigest
