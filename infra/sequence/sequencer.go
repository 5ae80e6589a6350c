// Package sequence issues the global mutation sequence. Every accepted
// add, remove, and match gets exactly one number, and WAL replay depends on
// them being strictly monotonic.
package sequence

import "sync/atomic"

type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer. Fresh start uses 0; after replay, pass the last
// replayed sequence.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset jumps the sequencer forward. Only WAL replay calls this.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
