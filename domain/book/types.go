package book

import "fmt"

type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Ask {
		return "ask"
	}
	return "bid"
}

// ParseSide maps the wire spelling of a side onto the domain constant.
func ParseSide(s string) (Side, error) {
	switch s {
	case "bid", "buy":
		return Bid, nil
	case "ask", "sell":
		return Ask, nil
	default:
		return Bid, fmt.Errorf("%w: side %q", ErrInvalidArgument, s)
	}
}

// Trade is one execution produced by the matching loop. Price is the resting
// ask level's price.
type Trade struct {
	Price int64
	Qty   int64
}

// LevelView is a read-only copy of one price level.
type LevelView struct {
	Price  int64 `json:"price"`
	Qty    int64 `json:"qty"`
	Orders int   `json:"orders"`
}

// DepthView holds up to n levels per side, best price first.
type DepthView struct {
	Bids []LevelView `json:"bids"`
	Asks []LevelView `json:"asks"`
}
