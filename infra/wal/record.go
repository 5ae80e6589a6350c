package wal

import "time"

type RecordType uint8

const (
	RecordAdd RecordType = iota
	RecordRemove
	RecordMatch
)

// Record is one logged mutation. Payload is opaque to the WAL; mutations are
// framed with the codec in this package, match triggers carry no payload.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
