// Package pricing converts between decimal prices on the wire and the int64
// ticks the book trades in. The domain never sees a float.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrBadTickSize  = errors.New("tick size must be positive")
	ErrBadPrice     = errors.New("price must be positive")
	ErrOffTickPrice = errors.New("price not aligned to tick size")
)

// Converter maps decimal prices onto a tick grid. A tick size of "0.01"
// makes "100.05" tick 10005.
type Converter struct {
	tick decimal.Decimal
}

func NewConverter(tickSize string) (Converter, error) {
	tick, err := decimal.NewFromString(tickSize)
	if err != nil {
		return Converter{}, fmt.Errorf("parse tick size %q: %w", tickSize, err)
	}
	if tick.Sign() <= 0 {
		return Converter{}, ErrBadTickSize
	}
	return Converter{tick: tick}, nil
}

// ToTicks parses a decimal price string and returns its tick count.
func (c Converter) ToTicks(price string) (int64, error) {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", price, err)
	}
	if d.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrBadPrice, price)
	}
	q := d.Div(c.tick)
	if !q.IsInteger() {
		return 0, fmt.Errorf("%w: %s (tick %s)", ErrOffTickPrice, price, c.tick)
	}
	return q.IntPart(), nil
}

// FromTicks renders a tick count back to its decimal price string.
func (c Converter) FromTicks(ticks int64) string {
	return decimal.NewFromInt(ticks).Mul(c.tick).String()
}
