package tdigest

import "math"

// The scale function maps a quantile q in [0,1] to k in
// [-compression/4, compression/4]:
//
//	k(q) = compression/(2π) · asin(2q-1)
//	q(k) = (sin(2πk/compression) + 1) / 2
//
// A centroid may grow until the quantile range it covers spans one unit of
// k. Because dk/dq grows without bound at both ends, tail centroids stay
// small.

func scaleK(q, compression float64) float64 {
	q = math.Max(0, math.Min(q, 1))
	return compression / (2 * math.Pi) * math.Asin(2*q-1)
}

func scaleQ(k, compression float64) float64 {
	x := 2 * math.Pi * k / compression
	x = math.Max(-math.Pi/2, math.Min(x, math.Pi/2))
	return (math.Sin(x) + 1) / 2
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
