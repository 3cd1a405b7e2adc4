package bitrun

import (
	"math/rand"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
)

// naiveRuns computes runs bit by bit.
func naiveRuns(bitmap []byte, offset, length int64) []Run {
	var runs []Run
	var cur *Run
	for i := int64(0); i < length; i++ {
		set := bitmap == nil || bitutil.BitIsSet(bitmap, int(offset+i))
		switch {
		case set && cur == nil:
			runs = append(runs, Run{Pos: i, Len: 1})
			cur = &runs[len(runs)-1]
		case set:
			cur.Len++
		default:
			cur = nil
		}
	}
	return runs
}

func collect(r *Reader) []Run {
	var runs []Run
	for run := r.Next(); run.Len > 0; run = r.Next() {
		runs = append(runs, run)
	}
	return runs
}

func equalRuns(a, b []Run) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func bitmapFrom(pattern string) []byte {
	bm := make([]byte, bitutil.BytesForBits(int64(len(pattern))))
	for i, c := range pattern {
		if c == '1' {
			bitutil.SetBit(bm, i)
		}
	}
	return bm
}

func TestReader_Patterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		offset  int64
		length  int64
		want    []Run
	}{
		{"empty window", "11111111", 0, 0, nil},
		{"all set", "11111111", 0, 8, []Run{{0, 8}}},
		{"all clear", "00000000", 0, 8, nil},
		{"alternating", "10101010", 0, 8, []Run{{0, 1}, {2, 1}, {4, 1}, {6, 1}}},
		{"trailing run", "00011111", 0, 8, []Run{{3, 5}}},
		{"leading run", "11100000", 0, 8, []Run{{0, 3}}},
		{"unaligned offset", "0011110011", 2, 6, []Run{{0, 4}}},
		{"crosses byte edge", "0000001111110000", 0, 16, []Run{{6, 6}}},
		{"window cuts run", "1111111111111111", 3, 5, []Run{{0, 5}}},
		{"offset past first byte", "00000000110011", 8, 6, []Run{{0, 2}, {4, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(NewReader(bitmapFrom(tt.pattern), tt.offset, tt.length))
			if !equalRuns(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestReader_NilBitmap(t *testing.T) {
	got := collect(NewReader(nil, 5, 100))
	want := []Run{{0, 100}}
	if !equalRuns(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if runs := collect(NewReader(nil, 0, 0)); len(runs) != 0 {
		t.Errorf("expected no runs for empty window, got %v", runs)
	}
}

func TestReader_MatchesBitByBit(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		nbits := 1 + rng.Intn(700)
		bm := make([]byte, bitutil.BytesForBits(int64(nbits)))

		// Mix dense and sparse stretches so long runs cross word edges.
		density := rng.Float64()
		for i := 0; i < nbits; i++ {
			if rng.Float64() < density {
				bitutil.SetBit(bm, i)
			}
		}

		for offset := int64(0); offset <= 16 && offset < int64(nbits); offset++ {
			length := int64(nbits) - offset - int64(rng.Intn(int(int64(nbits)-offset)))
			want := naiveRuns(bm, offset, length)
			got := collect(NewReader(bm, offset, length))
			if !equalRuns(got, want) {
				t.Fatalf("trial %d offset %d length %d: expected %v, got %v",
					trial, offset, length, want, got)
			}
		}
	}
}

func TestReader_Exhausted(t *testing.T) {
	r := NewReader(bitmapFrom("1100"), 0, 4)
	if run := r.Next(); run != (Run{0, 2}) {
		t.Fatalf("expected first run {0 2}, got %v", run)
	}
	if run := r.Next(); run.Len != 0 {
		t.Errorf("expected exhausted reader, got %v", run)
	}
	if !r.Done() {
		t.Error("reader should report done")
	}
	if run := r.Next(); run.Len != 0 {
		t.Errorf("reader must not restart, got %v", run)
	}
}

func TestRuns_Iterator(t *testing.T) {
	bm := bitmapFrom("0111001111100001")

	var got []Run
	for pos, n := range Runs(bm, 0, 16) {
		got = append(got, Run{pos, n})
	}
	want := []Run{{1, 3}, {6, 5}, {15, 1}}
	if !equalRuns(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Early break stops iteration.
	var first []Run
	for pos, n := range Runs(bm, 0, 16) {
		first = append(first, Run{pos, n})
		break
	}
	if len(first) != 1 {
		t.Errorf("expected 1 run before break, got %d", len(first))
	}
}

func TestCountSet(t *testing.T) {
	bm := bitmapFrom("1011001110001111")
	for offset := int64(0); offset < 16; offset++ {
		length := 16 - offset
		want := int64(bitutil.CountSetBits(bm, int(offset), int(length)))
		if got := CountSet(bm, offset, length); got != want {
			t.Errorf("offset %d: expected %d, got %d", offset, want, got)
		}
	}
}
