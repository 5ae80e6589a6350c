package book

import (
	"fmt"

	"matchbook/infra/memory"
)

// Book is a price-level limit order book. Bids and asks live on separate
// ladders; levels aggregate quantity and are erased the moment they empty.
//
// The book is single-writer and deterministic: callers serialize all
// mutations (the service layer holds one lock around it).
type Book struct {
	bids *Ladder
	asks *Ladder
}

func NewBook() *Book {
	pool := memory.NewPool(func() *PriceLevel {
		return &PriceLevel{}
	})
	return &Book{
		bids: NewLadder(pool),
		asks: NewLadder(pool),
	}
}

func (b *Book) ladder(side Side) *Ladder {
	if side == Ask {
		return b.asks
	}
	return b.bids
}

// Sizes returns the number of resting levels per side.
func (b *Book) Sizes() (bids, asks int) {
	return b.bids.Size(), b.asks.Size()
}

func validate(price, qty int64) error {
	if price <= 0 {
		return fmt.Errorf("%w: price %d must be positive", ErrInvalidArgument, price)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity %d must be positive", ErrInvalidArgument, qty)
	}
	return nil
}

// ValidateOrder checks add/remove arguments without touching the book.
func ValidateOrder(price, qty int64) error {
	return validate(price, qty)
}

// Add rests qty at price on side. An existing level grows and counts one
// more order; a fresh level starts with OrderCount = 1.
func (b *Book) Add(side Side, price, qty int64) error {
	if err := validate(price, qty); err != nil {
		return err
	}
	lvl := b.ladder(side).UpsertLevel(price)
	lvl.TotalQty += qty
	lvl.OrderCount++
	return nil
}

// CanRemove reports whether Remove(side, price, qty) would succeed, without
// mutating the book. The service checks this before writing the WAL record.
func (b *Book) CanRemove(side Side, price, qty int64) error {
	if err := validate(price, qty); err != nil {
		return err
	}
	lvl := b.ladder(side).FindLevel(price)
	if lvl == nil {
		return fmt.Errorf("%w: %s %d", ErrLevelNotFound, side, price)
	}
	if qty > lvl.TotalQty {
		return fmt.Errorf("%w: %d > %d at %s %d",
			ErrOverRemove, qty, lvl.TotalQty, side, price)
	}
	return nil
}

// Remove takes qty off the level at price. Removing the full quantity erases
// the level; removing more than rests is rejected with ErrOverRemove and
// leaves the book unchanged.
func (b *Book) Remove(side Side, price, qty int64) error {
	if err := b.CanRemove(side, price, qty); err != nil {
		return err
	}
	b.reduce(side, b.ladder(side).FindLevel(price), qty)
	return nil
}

// reduce is the single mutation path shared by Remove and Match. It erases
// the level at zero and panics on negative inventory.
func (b *Book) reduce(side Side, lvl *PriceLevel, qty int64) {
	lvl.TotalQty -= qty
	if lvl.TotalQty < 0 {
		invariantf("negative quantity %d at %s %d", lvl.TotalQty, side, lvl.Price)
	}
	if lvl.TotalQty == 0 {
		price := lvl.Price
		if !b.ladder(side).DeleteLevel(price) {
			invariantf("level %s %d missing during erase", side, price)
		}
		return
	}
	if lvl.OrderCount > 1 {
		lvl.OrderCount--
	}
}

// BestBid returns the highest resting bid level, ok=false when bids are empty.
func (b *Book) BestBid() (LevelView, bool) {
	lvl := b.bids.MaxLevel()
	if lvl == nil {
		return LevelView{}, false
	}
	return lvl.view(), true
}

// BestAsk returns the lowest resting ask level, ok=false when asks are empty.
func (b *Book) BestAsk() (LevelView, bool) {
	lvl := b.asks.MinLevel()
	if lvl == nil {
		return LevelView{}, false
	}
	return lvl.view(), true
}

// Spread is bestAsk - bestBid; ok=false when either side is empty.
func (b *Book) Spread() (int64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Depth copies up to n levels per side, best price first. n larger than the
// book simply returns what rests; n below one returns empty views.
func (b *Book) Depth(n int) DepthView {
	if n < 0 {
		n = 0
	}
	d := DepthView{
		Bids: make([]LevelView, 0, min(n, b.bids.Size())),
		Asks: make([]LevelView, 0, min(n, b.asks.Size())),
	}
	b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
		if len(d.Bids) >= n {
			return false
		}
		d.Bids = append(d.Bids, lvl.view())
		return true
	})
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		if len(d.Asks) >= n {
			return false
		}
		d.Asks = append(d.Asks, lvl.view())
		return true
	})
	return d
}

// Match crosses best bid against best ask while bestBid >= bestAsk, trading
// min of the two level quantities each round. Each trade reduces both levels
// through the same path Remove uses, so fully consumed levels are erased.
// On return the book is uncrossed or one side is empty.
func (b *Book) Match() []Trade {
	var trades []Trade
	for {
		bid := b.bids.MaxLevel()
		ask := b.asks.MinLevel()
		if bid == nil || ask == nil || bid.Price < ask.Price {
			return trades
		}
		// Capture before reduce: a fully consumed level is recycled.
		execPrice := ask.Price
		qty := bid.TotalQty
		if ask.TotalQty < qty {
			qty = ask.TotalQty
		}
		b.reduce(Bid, bid, qty)
		b.reduce(Ask, ask, qty)
		trades = append(trades, Trade{Price: execPrice, Qty: qty})
	}
}

// Restore places a level directly, including its order count. Only the
// snapshot loader uses this; the level must not already exist.
func (b *Book) Restore(side Side, price, qty int64, count int) error {
	if err := validate(price, qty); err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("%w: order count %d must be positive", ErrInvalidArgument, count)
	}
	if b.ladder(side).FindLevel(price) != nil {
		return fmt.Errorf("%w: level %s %d already present", ErrInvalidArgument, side, price)
	}
	lvl := b.ladder(side).UpsertLevel(price)
	lvl.TotalQty = qty
	lvl.OrderCount = count
	return nil
}

// CheckInvariants walks both sides verifying ordering and positive
// quantities. Test and replay helper; a violation is a bug in the book.
func (b *Book) CheckInvariants() error {
	var err error
	last := int64(0)
	b.bids.ForEachAscending(func(lvl *PriceLevel) bool {
		if lvl.TotalQty <= 0 || lvl.OrderCount < 1 {
			err = fmt.Errorf("bid level %d: qty=%d count=%d", lvl.Price, lvl.TotalQty, lvl.OrderCount)
			return false
		}
		if last != 0 && lvl.Price <= last {
			err = fmt.Errorf("bid ordering broken at %d", lvl.Price)
			return false
		}
		last = lvl.Price
		return true
	})
	if err != nil {
		return err
	}
	last = 0
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		if lvl.TotalQty <= 0 || lvl.OrderCount < 1 {
			err = fmt.Errorf("ask level %d: qty=%d count=%d", lvl.Price, lvl.TotalQty, lvl.OrderCount)
			return false
		}
		if last != 0 && lvl.Price <= last {
			err = fmt.Errorf("ask ordering broken at %d", lvl.Price)
			return false
		}
		last = lvl.Price
		return true
	})
	return err
}
