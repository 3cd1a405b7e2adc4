package bitrun

import (
	"encoding/binary"
	"iter"
	"math/bits"
)

// Run is a maximal range of set bits. Pos is relative to the start of the
// window the Reader was created for.
type Run struct {
	Pos int64
	Len int64
}

// Reader produces the runs of set bits in a bitmap window, in ascending
// order. It is single-pass: once Next reports a zero-length run the reader
// is exhausted.
type Reader struct {
	bitmap []byte
	offset int64
	length int64
	pos    int64
}

// NewReader returns a Reader over length bits of bitmap starting at bit
// offset. A nil bitmap is treated as all bits set, which is how Arrow
// represents arrays without nulls.
func NewReader(bitmap []byte, offset, length int64) *Reader {
	if length < 0 {
		length = 0
	}
	return &Reader{
		bitmap: bitmap,
		offset: offset,
		length: length,
	}
}

// Next returns the next run of set bits. A Run with Len == 0 means there
// are no more runs.
func (r *Reader) Next() Run {
	if r.pos >= r.length {
		return Run{Pos: r.length}
	}

	if r.bitmap == nil {
		run := Run{Pos: r.pos, Len: r.length - r.pos}
		r.pos = r.length
		return run
	}

	start := r.find(r.pos, true)
	if start >= r.length {
		r.pos = r.length
		return Run{Pos: r.length}
	}
	end := r.find(start, false)
	r.pos = end
	return Run{Pos: start, Len: end - start}
}

// Done reports whether the reader is exhausted.
func (r *Reader) Done() bool {
	return r.pos >= r.length
}

// find returns the position of the first bit at or after pos equal to set,
// or r.length if there is none.
func (r *Reader) find(pos int64, set bool) int64 {
	for pos < r.length {
		word, n := r.load(pos)
		if !set {
			word = ^word
		}
		if n < 64 {
			word &= (uint64(1) << uint(n)) - 1
		}
		if word != 0 {
			return pos + int64(bits.TrailingZeros64(word))
		}
		pos += n
	}
	return r.length
}

// load returns up to 64 bits starting at window position pos, with the bit
// at pos in the least significant position, and the number of meaningful
// bits.
func (r *Reader) load(pos int64) (uint64, int64) {
	n := r.length - pos
	if n > 64 {
		n = 64
	}

	abs := r.offset + pos
	idx := abs >> 3
	shift := uint(abs & 7)

	var word uint64
	if idx+8 <= int64(len(r.bitmap)) {
		word = binary.LittleEndian.Uint64(r.bitmap[idx:])
	} else {
		for i := int64(0); i < 8 && idx+i < int64(len(r.bitmap)); i++ {
			word |= uint64(r.bitmap[idx+i]) << (8 * uint(i))
		}
	}

	if shift > 0 {
		word >>= shift
		if next := idx + 8; next < int64(len(r.bitmap)) {
			word |= uint64(r.bitmap[next]) << (64 - shift)
		}
	}
	return word, n
}

// Runs returns the runs of set bits in the window as (pos, len) pairs.
// Each call to the returned sequence starts a fresh Reader.
func Runs(bitmap []byte, offset, length int64) iter.Seq2[int64, int64] {
	return func(yield func(int64, int64) bool) {
		r := NewReader(bitmap, offset, length)
		for run := r.Next(); run.Len > 0; run = r.Next() {
			if !yield(run.Pos, run.Len) {
				return
			}
		}
	}
}

// CountSet returns the number of set bits in the window.
func CountSet(bitmap []byte, offset, length int64) int64 {
	var total int64
	for _, n := range Runs(bitmap, offset, length) {
		total += n
	}
	return total
}
