package tdigest

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
)

// Centroid summarises a cluster of values by their mean and count.
type Centroid struct {
	Mean   float64
	Weight float64
}

// absorb folds o into c, keeping c.Mean the weighted mean of both.
func (c *Centroid) absorb(o Centroid) {
	lo, hi := math.Min(c.Mean, o.Mean), math.Max(c.Mean, o.Mean)
	c.Weight += o.Weight
	c.Mean += (o.Mean - c.Mean) * o.Weight / c.Weight
	c.Mean = math.Max(lo, math.Min(c.Mean, hi))
}

// Digest is a merging t-digest.
type Digest struct {
	delta       float64
	compression float64
	bufferSize  int

	// centroids is sorted by ascending mean; weight is the sum of their weights.
	centroids []Centroid
	weight    float64

	// buffer holds unit-weight points not yet merged into centroids.
	buffer []float64

	// scratch is reused as the merge input between compressions.
	scratch []Centroid

	min float64
	max float64
}

// New creates an empty digest. delta must be in (0, 1] and bufferSize
// positive; out-of-range values fall back to the package defaults.
func New(delta float64, bufferSize int) *Digest {
	if !(delta > 0 && delta <= 1) {
		delta = config.DefaultDelta
	}
	if bufferSize <= 0 {
		bufferSize = config.DefaultBufferSize
	}

	compression := 1 / delta
	capacity := int(compression) + 1

	return &Digest{
		delta:       delta,
		compression: compression,
		bufferSize:  bufferSize,
		centroids:   make([]Centroid, 0, capacity),
		scratch:     make([]Centroid, 0, capacity+bufferSize),
		buffer:      make([]float64, 0, bufferSize),
		min:         math.Inf(1),
		max:         math.Inf(-1),
	}
}

// Delta returns the compression resolution.
func (d *Digest) Delta() float64 { return d.delta }

// BufferSize returns the number of points buffered between compressions.
func (d *Digest) BufferSize() int { return d.bufferSize }

// Add adds a value with unit weight. NaN is ignored.
func (d *Digest) Add(value float64) {
	if math.IsNaN(value) {
		return
	}

	if value < d.min {
		d.min = value
	}
	if value > d.max {
		d.max = value
	}

	d.buffer = append(d.buffer, value)
	if len(d.buffer) >= d.bufferSize {
		d.Compress()
	}
}

// Compress merges all buffered points into the centroid list.
func (d *Digest) Compress() {
	if len(d.buffer) == 0 {
		return
	}
	d.merge(nil)
}

// Merge folds other into d. other is left unchanged.
func (d *Digest) Merge(other *Digest) {
	if other == nil || other.IsEmpty() {
		return
	}

	d.merge(other)

	if other.min < d.min {
		d.min = other.min
	}
	if other.max > d.max {
		d.max = other.max
	}
}

// merge rebuilds the centroid list from the current centroids, the buffer
// and, when non-nil, everything other holds.
func (d *Digest) merge(other *Digest) {
	in := append(d.scratch[:0], d.centroids...)
	in = appendPoints(in, d.buffer)
	total := d.weight + float64(len(d.buffer))

	if other != nil {
		in = append(in, other.centroids...)
		in = appendPoints(in, other.buffer)
		total += other.weight + float64(len(other.buffer))
	}

	slices.SortFunc(in, func(a, b Centroid) int {
		return cmp.Compare(a.Mean, b.Mean)
	})

	d.centroids = d.sweep(in, total, d.centroids[:0])
	d.weight = total
	d.buffer = d.buffer[:0]
	d.scratch = in[:0]
}

func appendPoints(dst []Centroid, points []float64) []Centroid {
	for _, v := range points {
		dst = append(dst, Centroid{Mean: v, Weight: 1})
	}
	return dst
}

// sweep walks the sorted input and packs it into centroids whose
// cumulative weight stays under the scale-function limit.
func (d *Digest) sweep(in []Centroid, total float64, out []Centroid) []Centroid {
	var soFar float64
	limit := -1.0

	for _, c := range in {
		next := soFar + c.Weight
		if next <= limit {
			out[len(out)-1].absorb(c)
		} else {
			k := scaleK(soFar/total, d.compression)
			newLimit := total * scaleQ(k+1, d.compression)
			// The limit must keep increasing, otherwise everything left
			// goes into the last centroid.
			if newLimit <= limit {
				limit = total
			} else {
				limit = newLimit
			}
			out = append(out, c)
		}
		soFar = next
	}
	return out
}

// IsEmpty reports whether no finite value has been added.
func (d *Digest) IsEmpty() bool {
	return d.weight == 0 && len(d.buffer) == 0
}

// TotalWeight returns the number of values added, buffered ones included.
func (d *Digest) TotalWeight() float64 {
	return d.weight + float64(len(d.buffer))
}

// Min returns the smallest value added, or +Inf when empty.
func (d *Digest) Min() float64 { return d.min }

// Max returns the largest value added, or -Inf when empty.
func (d *Digest) Max() float64 { return d.max }

// Centroids returns a copy of the centroids after compressing the buffer.
func (d *Digest) Centroids() []Centroid {
	d.Compress()
	return slices.Clone(d.centroids)
}

// Reset empties the digest, keeping its allocations.
func (d *Digest) Reset() {
	d.centroids = d.centroids[:0]
	d.buffer = d.buffer[:0]
	d.weight = 0
	d.min = math.Inf(1)
	d.max = math.Inf(-1)
}

// Mean returns the weighted mean of all values, or NaN when empty.
func (d *Digest) Mean() float64 {
	d.Compress()
	if d.weight == 0 {
		return math.NaN()
	}
	var sum float64
	for _, c := range d.centroids {
		sum += c.Mean * c.Weight
	}
	return sum / d.weight
}

// Quantile returns the estimated value at quantile q. The result for an
// empty digest is NaN; callers check IsEmpty first.
func (d *Digest) Quantile(q float64) float64 {
	d.Compress()

	td := d.centroids
	if len(td) == 0 || math.IsNaN(q) {
		return math.NaN()
	}
	if q <= 0 {
		return d.min
	}
	if q >= 1 {
		return d.max
	}

	index := q * d.weight
	if index <= 1 {
		return d.min
	}
	if index >= d.weight-1 {
		return d.max
	}

	// Locate the centroid whose cumulative weight range holds index.
	ci := 0
	weightSum := 0.0
	for ; ci < len(td); ci++ {
		weightSum += td[ci].Weight
		if index <= weightSum {
			break
		}
	}
	if ci == len(td) {
		ci = len(td) - 1
	}

	// Signed distance of index from the centre of that centroid.
	diff := index + td[ci].Weight/2 - weightSum

	if td[ci].Weight == 1 && math.Abs(diff) < 0.5 {
		return td[ci].Mean
	}

	left, right := ci, ci
	if diff > 0 {
		if right == len(td)-1 {
			c := td[right]
			return lerp(c.Mean, d.max, diff/(c.Weight/2))
		}
		right++
	} else {
		if left == 0 {
			c := td[0]
			return lerp(d.min, c.Mean, index/(c.Weight/2))
		}
		left--
		diff += td[left].Weight/2 + td[right].Weight/2
	}

	diff /= td[left].Weight/2 + td[right].Weight/2
	return lerp(td[left].Mean, td[right].Mean, diff)
}

// Validate checks the structural invariants of the digest.
func (d *Digest) Validate() error {
	if len(d.buffer) > d.bufferSize {
		return fmt.Errorf("buffer holds %d points, limit %d: %w",
			len(d.buffer), d.bufferSize, errors.ErrCorruptState)
	}

	var sum float64
	for i, c := range d.centroids {
		if math.IsNaN(c.Mean) {
			return fmt.Errorf("centroid %d has NaN mean: %w", i, errors.ErrCorruptState)
		}
		if !(c.Weight > 0) {
			return fmt.Errorf("centroid %d has weight %v: %w", i, c.Weight, errors.ErrCorruptState)
		}
		if i > 0 && c.Mean < d.centroids[i-1].Mean {
			return fmt.Errorf("centroid %d out of order: %w", i, errors.ErrCorruptState)
		}
		sum += c.Weight
	}

	if math.Abs(sum-d.weight) > 1e-9*math.Max(1, d.weight) {
		return fmt.Errorf("centroid weights sum to %v, expected %v: %w", sum, d.weight, errors.ErrCorruptState)
	}

	if n := len(d.centroids); n > 0 {
		if d.centroids[0].Mean < d.min || d.centroids[n-1].Mean > d.max {
			return fmt.Errorf("centroid means outside [%v, %v]: %w", d.min, d.max, errors.ErrCorruptState)
		}
	}
	return nil
}

// String dumps the digest for debugging.
func (d *Digest) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tdigest(delta=%g buffer=%d/%d weight=%g min=%g max=%g centroids=[",
		d.delta, len(d.buffer), d.bufferSize, d.weight, d.min, d.max)
	for i, c := range d.centroids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%g:%g", c.Mean, c.Weight)
	}
	sb.WriteString("])")
	return sb.String()
}
