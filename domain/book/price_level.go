package book

import "fmt"

// PriceLevel aggregates all resting quantity at one price on one side.
// Orders are fungible here: only the total quantity and the number of adds
// that built it are tracked, not individual order identity.
//
// A level never rests with TotalQty <= 0; it is erased the moment its
// quantity reaches zero.
type PriceLevel struct {
	Price      int64
	TotalQty   int64
	OrderCount int
}

func (lvl *PriceLevel) view() LevelView {
	return LevelView{Price: lvl.Price, Qty: lvl.TotalQty, Orders: lvl.OrderCount}
}

func (lvl *PriceLevel) reset() {
	lvl.Price = 0
	lvl.TotalQty = 0
	lvl.OrderCount = 0
}

func (lvl *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%d, TotalQty=%d, Orders=%d}",
		lvl.Price, lvl.TotalQty, lvl.OrderCount)
}
