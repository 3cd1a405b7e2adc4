// Package bitrun walks validity bitmaps as runs of set bits.
//
// A validity bitmap marks each row of a column as present (bit set) or null
// (bit clear), least significant bit first, as in the Arrow columnar format.
// Bulk ingestion is cheaper when the consumer sees contiguous ranges of
// valid rows instead of testing every bit, so the Reader hands out maximal
// runs:
//
//	r := bitrun.NewReader(arr.NullBitmapBytes(), int64(arr.Data().Offset()), int64(arr.Len()))
//	for run := r.Next(); run.Len > 0; run = r.Next() {
//	    for i := run.Pos; i < run.Pos+run.Len; i++ {
//	        use(values[i])
//	    }
//	}
package bitrun
