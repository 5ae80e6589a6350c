package service

import (
	"context"
	"time"

	"matchbook/snapshot"
)

// StartSnapshotJob checkpoints the book on an interval, then truncates the
// entry WAL and the acked portion of the outbox. Runs until ctx is done.
func (s *BookService) StartSnapshotJob(ctx context.Context, dir string, interval time.Duration) {
	w := &snapshot.Writer{Dir: dir}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.checkpoint(w)
			}
		}
	}()
}

func (s *BookService) checkpoint(w *snapshot.Writer) {
	s.mu.Lock()
	seq := s.seqGen.Current()
	err := w.Write(seq, s.book)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("snapshot write failed", "seq", seq, "err", err)
		return
	}

	if s.wal != nil {
		if err := s.wal.TruncateBefore(seq); err != nil {
			s.log.Warn("wal truncate failed", "seq", seq, "err", err)
		}
	}
	if s.outbox != nil {
		if err := s.outbox.TruncateAckedUpTo(seq); err != nil {
			s.log.Warn("outbox truncate failed", "seq", seq, "err", err)
		}
	}
	s.log.Info("snapshot written", "seq", seq)
}
