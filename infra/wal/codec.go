package wal

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// Mutation is the payload of add and remove records: side, price ticks,
// quantity. Encoded in protobuf wire format so the log survives field
// additions without a version bump.
type Mutation struct {
	Side  uint8
	Price int64
	Qty   int64
}

// Field numbers are part of the on-disk format. Never renumber.
const (
	mutFieldSide  = 1
	mutFieldPrice = 2
	mutFieldQty   = 3
)

var ErrCorruptPayload = errors.New("corrupt wal payload")

func AppendMutation(b []byte, m Mutation) []byte {
	b = protowire.AppendTag(b, mutFieldSide, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Side))
	b = protowire.AppendTag(b, mutFieldPrice, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Price))
	b = protowire.AppendTag(b, mutFieldQty, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Qty))
	return b
}

func ParseMutation(b []byte) (Mutation, error) {
	var m Mutation
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Mutation{}, ErrCorruptPayload
		}
		b = b[n:]

		if typ != protowire.VarintType {
			// Unknown field from a newer writer: skip it.
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Mutation{}, ErrCorruptPayload
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return Mutation{}, ErrCorruptPayload
		}
		b = b[n:]

		switch num {
		case mutFieldSide:
			m.Side = uint8(v)
		case mutFieldPrice:
			m.Price = int64(v)
		case mutFieldQty:
			m.Qty = int64(v)
		}
	}
	return m, nil
}
