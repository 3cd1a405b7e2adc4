package aggregate

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/tdigest"
)

// Encoded partial state:
//
//	message State {
//	  int32  type_id   = 1;
//	  int64  count     = 2;
//	  bool   all_valid = 3;
//	  bytes  digest    = 4;
//	}
const (
	fieldTypeID   protowire.Number = 1
	fieldCount    protowire.Number = 2
	fieldAllValid protowire.Number = 3
	fieldDigest   protowire.Number = 4
)

func (a *tdigestAgg[T]) MarshalState() ([]byte, error) {
	digest, err := a.digest.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "encode digest")
	}

	var b []byte
	b = protowire.AppendTag(b, fieldTypeID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.dtype.ID()))
	b = protowire.AppendTag(b, fieldCount, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.count))
	b = protowire.AppendTag(b, fieldAllValid, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(a.allValid))
	b = protowire.AppendTag(b, fieldDigest, protowire.BytesType)
	b = protowire.AppendBytes(b, digest)
	return b, nil
}

func (a *tdigestAgg[T]) UnmarshalState(data []byte) error {
	st, err := decodeState(data)
	if err != nil {
		return err
	}
	if st.typeID != a.dtype.ID() {
		return fmt.Errorf("state for %s decoded into %s aggregator: %w",
			st.typeID, a.dtype, errors.ErrIncompatibleState)
	}

	a.digest = st.digest
	a.count = st.count
	a.allValid = st.allValid
	return nil
}

// DecodeState builds an aggregator from an encoded partial state. The
// input type is taken from the state.
func DecodeState(data []byte, opts *Options) (Aggregator, error) {
	st, err := decodeState(data)
	if err != nil {
		return nil, err
	}

	dt, ok := numericTypes[st.typeID]
	if !ok {
		return nil, errors.NewUnsupportedType(st.typeID.String())
	}

	agg, err := New(dt, opts)
	if err != nil {
		return nil, err
	}
	if err := agg.UnmarshalState(data); err != nil {
		return nil, err
	}
	return agg, nil
}

type state struct {
	typeID   arrow.Type
	count    int64
	allValid bool
	digest   *tdigest.Digest
}

func decodeState(data []byte) (*state, error) {
	st := &state{allValid: true}
	var (
		haveType   bool
		haveDigest bool
	)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("decode state tag: %v: %w", protowire.ParseError(n), errors.ErrCorruptState)
		}
		data = data[n:]

		var v uint64
		switch {
		case num == fieldTypeID && typ == protowire.VarintType:
			v, n = protowire.ConsumeVarint(data)
			st.typeID = arrow.Type(v)
			haveType = true
		case num == fieldCount && typ == protowire.VarintType:
			v, n = protowire.ConsumeVarint(data)
			st.count = int64(v)
		case num == fieldAllValid && typ == protowire.VarintType:
			v, n = protowire.ConsumeVarint(data)
			st.allValid = protowire.DecodeBool(v)
		case num == fieldDigest && typ == protowire.BytesType:
			var raw []byte
			raw, n = protowire.ConsumeBytes(data)
			if n >= 0 {
				st.digest = new(tdigest.Digest)
				if err := st.digest.UnmarshalBinary(raw); err != nil {
					return nil, err
				}
				haveDigest = true
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return nil, fmt.Errorf("decode state field %d: %v: %w", num, protowire.ParseError(n), errors.ErrCorruptState)
		}
		data = data[n:]
	}

	if !haveType || !haveDigest {
		return nil, fmt.Errorf("state is missing type or digest: %w", errors.ErrCorruptState)
	}
	if st.count < 0 {
		return nil, fmt.Errorf("negative count %d: %w", st.count, errors.ErrCorruptState)
	}
	return st, nil
}
