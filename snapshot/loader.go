package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"matchbook/domain/book"
)

// Load restores levels from the snapshot in dir and returns the sequence it
// covers. A missing snapshot is not an error; replay just starts from zero.
func Load(dir string, b *book.Book) (uint64, error) {
	f, err := os.Open(filepath.Join(dir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return 0, err
	}

	for _, e := range s.Bids {
		if err := b.Restore(book.Bid, e.Price, e.Qty, e.Count); err != nil {
			return 0, err
		}
	}
	for _, e := range s.Asks {
		if err := b.Restore(book.Ask, e.Price, e.Qty, e.Count); err != nil {
			return 0, err
		}
	}

	return s.Seq, nil
}
