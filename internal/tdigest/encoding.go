package tdigest

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/xtxerr/quantile/internal/errors"
)

// Field numbers of the encoded digest. The layout is a protobuf message:
//
//	message Digest {
//	  double delta = 1;
//	  uint64 buffer_size = 2;
//	  double min = 3;
//	  double max = 4;
//	  repeated double means = 5 [packed = true];
//	  repeated double weights = 6 [packed = true];
//	}
const (
	fieldDelta      protowire.Number = 1
	fieldBufferSize protowire.Number = 2
	fieldMin        protowire.Number = 3
	fieldMax        protowire.Number = 4
	fieldMeans      protowire.Number = 5
	fieldWeights    protowire.Number = 6
)

// MarshalBinary encodes the digest. Buffered points are compressed first.
func (d *Digest) MarshalBinary() ([]byte, error) {
	return d.AppendBinary(nil)
}

// AppendBinary appends the encoded digest to b.
func (d *Digest) AppendBinary(b []byte) ([]byte, error) {
	d.Compress()

	b = appendDouble(b, fieldDelta, d.delta)
	b = protowire.AppendTag(b, fieldBufferSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d.bufferSize))
	b = appendDouble(b, fieldMin, d.min)
	b = appendDouble(b, fieldMax, d.max)

	if len(d.centroids) > 0 {
		b = protowire.AppendTag(b, fieldMeans, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(8*len(d.centroids)))
		for _, c := range d.centroids {
			b = protowire.AppendFixed64(b, math.Float64bits(c.Mean))
		}

		b = protowire.AppendTag(b, fieldWeights, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(8*len(d.centroids)))
		for _, c := range d.centroids {
			b = protowire.AppendFixed64(b, math.Float64bits(c.Weight))
		}
	}
	return b, nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// UnmarshalBinary replaces the digest with the decoded state.
func (d *Digest) UnmarshalBinary(data []byte) error {
	var (
		delta      float64
		bufferSize uint64
		lo         = math.Inf(1)
		hi         = math.Inf(-1)
		means      []float64
		weights    []float64
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return corrupt("tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldDelta && typ == protowire.Fixed64Type:
			delta, n = consumeDouble(data)
		case num == fieldBufferSize && typ == protowire.VarintType:
			bufferSize, n = protowire.ConsumeVarint(data)
		case num == fieldMin && typ == protowire.Fixed64Type:
			lo, n = consumeDouble(data)
		case num == fieldMax && typ == protowire.Fixed64Type:
			hi, n = consumeDouble(data)
		case num == fieldMeans && typ == protowire.BytesType:
			means, n = consumePackedDoubles(data, means)
		case num == fieldWeights && typ == protowire.BytesType:
			weights, n = consumePackedDoubles(data, weights)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return corrupt(fmt.Sprintf("field %d", num), protowire.ParseError(n))
		}
		data = data[n:]
	}

	if !(delta > 0 && delta <= 1) {
		return fmt.Errorf("delta %v out of range: %w", delta, errors.ErrCorruptState)
	}
	if bufferSize == 0 || bufferSize > math.MaxInt32 {
		return fmt.Errorf("buffer size %d out of range: %w", bufferSize, errors.ErrCorruptState)
	}
	if len(means) != len(weights) {
		return fmt.Errorf("%d means but %d weights: %w", len(means), len(weights), errors.ErrCorruptState)
	}

	decoded := New(delta, int(bufferSize))
	decoded.min = lo
	decoded.max = hi
	for i := range means {
		decoded.centroids = append(decoded.centroids, Centroid{Mean: means[i], Weight: weights[i]})
		decoded.weight += weights[i]
	}
	if err := decoded.Validate(); err != nil {
		return err
	}

	*d = *decoded
	return nil
}

func consumeDouble(b []byte) (float64, int) {
	v, n := protowire.ConsumeFixed64(b)
	return math.Float64frombits(v), n
}

func consumePackedDoubles(b []byte, dst []float64) ([]float64, int) {
	packed, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return dst, n
	}
	if len(packed)%8 != 0 {
		return dst, -1
	}
	for len(packed) > 0 {
		v, m := consumeDouble(packed)
		if m < 0 {
			return dst, m
		}
		dst = append(dst, v)
		packed = packed[m:]
	}
	return dst, n
}

func corrupt(what string, err error) error {
	return fmt.Errorf("decode %s: %v: %w", what, err, errors.ErrCorruptState)
}
