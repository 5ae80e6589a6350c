package eventlog

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// TradeEvent is the published form of one execution. Encoded in protobuf
// wire format; consumers decode by field number.
type TradeEvent struct {
	Seq   uint64
	Price int64
	Qty   int64
	Time  int64
}

// Field numbers are part of the published format. Never renumber.
const (
	tradeFieldSeq   = 1
	tradeFieldPrice = 2
	tradeFieldQty   = 3
	tradeFieldTime  = 4
)

var ErrCorruptEvent = errors.New("corrupt trade event")

func AppendTradeEvent(b []byte, e TradeEvent) []byte {
	b = protowire.AppendTag(b, tradeFieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, e.Seq)
	b = protowire.AppendTag(b, tradeFieldPrice, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Price))
	b = protowire.AppendTag(b, tradeFieldQty, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Qty))
	b = protowire.AppendTag(b, tradeFieldTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Time))
	return b
}

func ParseTradeEvent(b []byte) (TradeEvent, error) {
	var e TradeEvent
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return TradeEvent{}, ErrCorruptEvent
		}
		b = b[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return TradeEvent{}, ErrCorruptEvent
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return TradeEvent{}, ErrCorruptEvent
		}
		b = b[n:]

		switch num {
		case tradeFieldSeq:
			e.Seq = v
		case tradeFieldPrice:
			e.Price = int64(v)
		case tradeFieldQty:
			e.Qty = int64(v)
		case tradeFieldTime:
			e.Time = int64(v)
		}
	}
	return e, nil
}
