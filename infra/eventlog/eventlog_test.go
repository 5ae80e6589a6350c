package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestOutbox(t *testing.T) *Outbox {
	t.Helper()
	o, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o
}

func TestPutGetLifecycle(t *testing.T) {
	o := openTestOutbox(t)

	payload := AppendTradeEvent(nil, TradeEvent{Seq: 1, Price: 10000, Qty: 50, Time: 42})
	require.NoError(t, o.Put(1, payload))

	rec, err := o.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateNew, rec.State)
	assert.Zero(t, rec.Retries)

	ev, err := ParseTradeEvent(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), ev.Price)
	assert.Equal(t, int64(50), ev.Qty)

	require.NoError(t, o.MarkSent(1))
	rec, err = o.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateSent, rec.State)
	assert.Equal(t, uint32(1), rec.Retries)
	assert.NotZero(t, rec.LastAttempt)

	require.NoError(t, o.MarkAcked(1))
	rec, err = o.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, rec.State)
}

func TestScanPendingOrderAndStates(t *testing.T) {
	o := openTestOutbox(t)

	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, o.Put(seq, []byte{byte(seq)}))
	}
	require.NoError(t, o.MarkSent(2))
	require.NoError(t, o.MarkAcked(3))

	var seqs []uint64
	err := o.ScanPending(func(seq uint64, rec Record) error {
		seqs = append(seqs, seq)
		return nil
	})
	require.NoError(t, err)

	// SENT records are revisited, ACKED records are not.
	assert.Equal(t, []uint64{1, 2, 4, 5}, seqs)
}

func TestScanPendingKeyOrderSurvivesWideSeqs(t *testing.T) {
	o := openTestOutbox(t)

	// Zero-padded keys keep lexicographic order equal to numeric order.
	for _, seq := range []uint64{3, 1000000, 7, 99} {
		require.NoError(t, o.Put(seq, nil))
	}

	var seqs []uint64
	require.NoError(t, o.ScanPending(func(seq uint64, rec Record) error {
		seqs = append(seqs, seq)
		return nil
	}))
	assert.Equal(t, []uint64{3, 7, 99, 1000000}, seqs)
}

func TestTruncateAckedUpTo(t *testing.T) {
	o := openTestOutbox(t)

	for seq := uint64(1); seq <= 4; seq++ {
		require.NoError(t, o.Put(seq, nil))
	}
	require.NoError(t, o.MarkAcked(1))
	require.NoError(t, o.MarkAcked(2))
	require.NoError(t, o.MarkAcked(4))

	require.NoError(t, o.TruncateAckedUpTo(3))

	// Acked 1 and 2 are gone; acked 4 is above the bound and kept.
	_, err := o.Get(1)
	assert.Error(t, err)
	_, err = o.Get(2)
	assert.Error(t, err)

	rec, err := o.Get(3)
	require.NoError(t, err)
	assert.Equal(t, StateNew, rec.State)

	rec, err = o.Get(4)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, rec.State)
}

func TestTradeEventCodecUnknownField(t *testing.T) {
	e := TradeEvent{Seq: 9, Price: 10010, Qty: 3, Time: 1234567890}
	b := AppendTradeEvent(nil, e)

	// Length-delimited field 8 from a future writer.
	b = append(b, 0x42, 0x02, 'h', 'i')

	got, err := ParseTradeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = ParseTradeEvent([]byte{0xFF})
	assert.ErrorIs(t, err, ErrCorruptEvent)
}

func TestRecordEncodingRejectsShortValue(t *testing.T) {
	_, err := decodeRecord([]byte{0x00, 0x01})
	assert.ErrorIs(t, err, ErrCorruptRecord)
}
