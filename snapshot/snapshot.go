// Package snapshot persists the aggregate book state so WAL replay can start
// from the last checkpoint instead of the beginning of time.
package snapshot

import "time"

type Snapshot struct {
	Seq     uint64
	Created time.Time
	Bids    []LevelEntry
	Asks    []LevelEntry
}

// LevelEntry is one resting price level. Order counts are preserved exactly
// so a restored book reports the same depth it did before the checkpoint.
type LevelEntry struct {
	Price int64
	Qty   int64
	Count int
}
