package service

import (
	"fmt"
	"log/slog"

	"matchbook/domain/book"
	"matchbook/infra/sequence"
	"matchbook/infra/wal"
	"matchbook/snapshot"
)

// Recover rebuilds the book before the engine accepts traffic: load the
// latest snapshot, then replay entry WAL records past the snapshot's
// sequence. Match records re-run the deterministic matching loop, and the
// sequencer is advanced past every number issued before the restart so new
// operations never collide with logged ones.
func Recover(
	snapDir string,
	walDir string,
	b *book.Book,
	seqGen *sequence.Sequencer,
	log *slog.Logger,
) error {
	snapSeq, err := snapshot.Load(snapDir, b)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	// high tracks the last issued sequence including per-trade numbers,
	// which the WAL records only implicitly (they follow a match record).
	high := snapSeq

	lastSeq, err := wal.Replay(walDir, func(rec *wal.Record) error {
		if rec.Seq <= snapSeq {
			return nil // covered by the snapshot
		}
		if rec.Seq > high {
			high = rec.Seq
		}

		switch rec.Type {
		case wal.RecordAdd, wal.RecordRemove:
			m, err := wal.ParseMutation(rec.Data)
			if err != nil {
				return err
			}
			side := book.Side(m.Side)
			if rec.Type == wal.RecordAdd {
				return b.Add(side, m.Price, m.Qty)
			}
			return b.Remove(side, m.Price, m.Qty)

		case wal.RecordMatch:
			trades := b.Match()
			high = rec.Seq + uint64(len(trades))
			return nil

		default:
			return fmt.Errorf("unknown record type %d at seq %d", rec.Type, rec.Seq)
		}
	})
	if err != nil {
		return fmt.Errorf("wal replay: %w", err)
	}

	if lastSeq > high {
		high = lastSeq
	}
	seqGen.Reset(high)

	if err := b.CheckInvariants(); err != nil {
		return fmt.Errorf("book corrupt after replay: %w", err)
	}

	if log != nil {
		log.Info("recovery complete", "snapshot_seq", snapSeq, "resume_seq", high)
	}
	return nil
}
