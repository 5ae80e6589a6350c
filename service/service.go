// Package service coordinates the engine. BookService is the only write
// entry point: domain (book), durability (wal, outbox), sequencing, and
// egress (ticks, depth listeners) all meet here, under one lock.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"matchbook/domain/book"
	"matchbook/infra/eventlog"
	"matchbook/infra/kafka"
	"matchbook/infra/sequence"
	"matchbook/infra/wal"
	"matchbook/monitoring"
)

type BookService struct {
	mu      sync.Mutex
	book    *book.Book
	seqGen  *sequence.Sequencer
	wal     *wal.WAL
	outbox  *eventlog.Outbox
	ticks   *kafka.Producer
	log     *slog.Logger
	onDepth func(seq uint64, d book.DepthView)

	depthLevels int
}

// New wires all dependencies. wal, outbox, and ticks may be nil; a nil
// dependency disables that path (tests run the bare book this way).
func New(
	b *book.Book,
	seqGen *sequence.Sequencer,
	w *wal.WAL,
	outbox *eventlog.Outbox,
	ticks *kafka.Producer,
	log *slog.Logger,
) *BookService {
	if log == nil {
		log = slog.Default()
	}
	return &BookService{
		book:        b,
		seqGen:      seqGen,
		wal:         w,
		outbox:      outbox,
		ticks:       ticks,
		log:         log,
		depthLevels: 10,
	}
}

// OnDepth registers a listener invoked with a fresh depth view after every
// mutation. Set once during wiring, before traffic. Publication happens
// outside the lock, so views can arrive out of order; seq lets listeners
// discard stale ones.
func (s *BookService) OnDepth(fn func(seq uint64, d book.DepthView)) {
	s.onDepth = fn
}

// Tick is the market-data message published after each mutation.
type Tick struct {
	Seq      uint64 `json:"seq"`
	BidPrice int64  `json:"bid_price,omitempty"`
	BidQty   int64  `json:"bid_qty,omitempty"`
	AskPrice int64  `json:"ask_price,omitempty"`
	AskQty   int64  `json:"ask_qty,omitempty"`
	Spread   int64  `json:"spread,omitempty"`
	HasBid   bool   `json:"has_bid"`
	HasAsk   bool   `json:"has_ask"`
}

//
// Commands
//

// Add rests quantity at a price. Returns the assigned sequence number.
// The WAL record is written before the book mutates; a WAL failure rejects
// the operation.
func (s *BookService) Add(side book.Side, price, qty int64) (uint64, error) {
	if err := book.ValidateOrder(price, qty); err != nil {
		return 0, err
	}

	start := time.Now()
	s.mu.Lock()

	seq := s.seqGen.Next()
	if err := s.appendWAL(wal.RecordAdd, seq, side, price, qty); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if err := s.book.Add(side, price, qty); err != nil {
		// Arguments were validated above; this is a bug, not user error.
		s.mu.Unlock()
		return 0, err
	}
	s.updateGauges()
	tick, depth := s.marketState(seq)
	s.mu.Unlock()

	monitoring.OrdersAdded.Inc()
	monitoring.OpLatency.Observe(time.Since(start).Seconds())
	s.publish(tick, depth)
	return seq, nil
}

// Remove takes quantity off a resting level. Missing level and over-removal
// are rejected before anything is logged.
func (s *BookService) Remove(side book.Side, price, qty int64) (uint64, error) {
	start := time.Now()
	s.mu.Lock()

	if err := s.book.CanRemove(side, price, qty); err != nil {
		s.mu.Unlock()
		return 0, err
	}

	seq := s.seqGen.Next()
	if err := s.appendWAL(wal.RecordRemove, seq, side, price, qty); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if err := s.book.Remove(side, price, qty); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.updateGauges()
	tick, depth := s.marketState(seq)
	s.mu.Unlock()

	monitoring.OrdersRemoved.Inc()
	monitoring.OpLatency.Observe(time.Since(start).Seconds())
	s.publish(tick, depth)
	return seq, nil
}

// Match runs the matching loop. Each execution is stamped with its own
// sequence number and lands in the outbox before the broadcaster publishes
// it. The WAL logs only the trigger; matching is deterministic, so replay
// re-runs the loop.
func (s *BookService) Match() ([]book.Trade, error) {
	start := time.Now()
	s.mu.Lock()

	seq := s.seqGen.Next()
	if err := s.appendWAL(wal.RecordMatch, seq, 0, 0, 0); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	trades := s.book.Match()
	now := time.Now().UnixNano()
	for _, tr := range trades {
		tradeSeq := s.seqGen.Next()
		if s.outbox != nil {
			payload := eventlog.AppendTradeEvent(nil, eventlog.TradeEvent{
				Seq:   tradeSeq,
				Price: tr.Price,
				Qty:   tr.Qty,
				Time:  now,
			})
			if err := s.outbox.Put(tradeSeq, payload); err != nil {
				s.log.Error("outbox put failed", "seq", tradeSeq, "err", err)
			}
		}
		monitoring.TradesMatched.Inc()
		monitoring.TradeVolume.Add(float64(tr.Qty))
	}
	s.updateGauges()
	tick, depth := s.marketState(seq)
	s.mu.Unlock()

	monitoring.OpLatency.Observe(time.Since(start).Seconds())
	if len(trades) > 0 {
		s.log.Info("matched", "trades", len(trades), "seq", seq)
		s.publish(tick, depth)
	}
	return trades, nil
}

//
// Queries
//

func (s *BookService) BestBid() (book.LevelView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.BestBid()
}

func (s *BookService) BestAsk() (book.LevelView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.BestAsk()
}

func (s *BookService) Spread() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Spread()
}

func (s *BookService) Depth(n int) book.DepthView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Depth(n)
}

//
// Internals
//

func (s *BookService) appendWAL(t wal.RecordType, seq uint64, side book.Side, price, qty int64) error {
	if s.wal == nil {
		return nil
	}
	var payload []byte
	if t != wal.RecordMatch {
		payload = wal.AppendMutation(nil, wal.Mutation{
			Side:  uint8(side),
			Price: price,
			Qty:   qty,
		})
	}
	return s.wal.Append(wal.NewRecord(t, seq, payload))
}

// marketState builds the post-mutation tick and depth view. Caller holds the
// lock.
func (s *BookService) marketState(seq uint64) (Tick, book.DepthView) {
	tick := Tick{Seq: seq}
	if bid, ok := s.book.BestBid(); ok {
		tick.HasBid = true
		tick.BidPrice = bid.Price
		tick.BidQty = bid.Qty
	}
	if ask, ok := s.book.BestAsk(); ok {
		tick.HasAsk = true
		tick.AskPrice = ask.Price
		tick.AskQty = ask.Qty
	}
	if tick.HasBid && tick.HasAsk {
		tick.Spread = tick.AskPrice - tick.BidPrice
	}

	var depth book.DepthView
	if s.onDepth != nil {
		depth = s.book.Depth(s.depthLevels)
	}
	return tick, depth
}

// publish runs outside the lock: the tick feed and depth listeners must not
// stall the matching path.
func (s *BookService) publish(tick Tick, depth book.DepthView) {
	if s.onDepth != nil {
		s.onDepth(tick.Seq, depth)
	}
	if s.ticks == nil {
		return
	}
	value, err := json.Marshal(tick)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.ticks.Send(ctx, nil, value); err != nil {
		s.log.Warn("tick publish failed", "err", err)
	}
}

func (s *BookService) updateGauges() {
	bids, asks := s.book.Sizes()
	monitoring.BidLevels.Set(float64(bids))
	monitoring.AskLevels.Set(float64(asks))
}
