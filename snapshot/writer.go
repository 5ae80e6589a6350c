package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"matchbook/domain/book"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write dumps every resting level plus the sequence the snapshot covers.
// The file is written to a temp path and renamed, so a crash mid-write
// leaves the previous snapshot intact.
func (w *Writer) Write(seq uint64, b *book.Book) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	bidCount, askCount := b.Sizes()
	depth := b.Depth(max(bidCount, askCount))

	s := Snapshot{
		Seq:     seq,
		Created: time.Now(),
		Bids:    make([]LevelEntry, 0, bidCount),
		Asks:    make([]LevelEntry, 0, askCount),
	}
	for _, lv := range depth.Bids {
		s.Bids = append(s.Bids, LevelEntry{Price: lv.Price, Qty: lv.Qty, Count: lv.Orders})
	}
	for _, lv := range depth.Asks {
		s.Asks = append(s.Asks, LevelEntry{Price: lv.Price, Qty: lv.Qty, Count: lv.Orders})
	}

	tmp := filepath.Join(w.Dir, fileName+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, filepath.Join(w.Dir, fileName))
}
