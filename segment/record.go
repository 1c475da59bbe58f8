package segment

import (
	"encoding/binary"
	"errors"
)

// Binary record layout, used when segments travel outside a full credential:
//
//	kind     1 byte
//	position 4 bytes big-endian
//	paylen   4 bytes big-endian
//	payload  paylen bytes
//	commit   32 bytes
const recordHeaderSize = 1 + 4 + 4

var (
	ErrRecordTruncated = errors.New("segment: record truncated")
	ErrRecordKind      = errors.New("segment: record has invalid kind")
	ErrRecordTampered  = errors.New("segment: record commitment mismatch")
)

// EncodeRecord serializes a segment into the fixed binary record layout.
func EncodeRecord(s Segment) []byte {
	out := make([]byte, 0, recordHeaderSize+len(s.Payload)+CommitmentSize)
	out = append(out, byte(s.Kind))
	out = binary.BigEndian.AppendUint32(out, s.Position)
	out = binary.BigEndian.AppendUint32(out, uint32(len(s.Payload)))
	out = append(out, s.Payload...)
	out = append(out, s.Commitment...)
	return out
}

// DecodeRecord parses a binary record and verifies its commitment.
func DecodeRecord(b []byte) (Segment, error) {
	if len(b) < recordHeaderSize+CommitmentSize {
		return Segment{}, ErrRecordTruncated
	}
	kind := Kind(b[0])
	if !kind.Valid() {
		return Segment{}, ErrRecordKind
	}
	position := binary.BigEndian.Uint32(b[1:5])
	paylen := int(binary.BigEndian.Uint32(b[5:9]))
	if len(b) != recordHeaderSize+paylen+CommitmentSize {
		return Segment{}, ErrRecordTruncated
	}
	s := Segment{
		Position:   position,
		Kind:       kind,
		Payload:    append([]byte(nil), b[recordHeaderSize:recordHeaderSize+paylen]...),
		Commitment: append([]byte(nil), b[recordHeaderSize+paylen:]...),
	}
	if !s.VerifyCommitment() {
		return Segment{}, ErrRecordTampered
	}
	return s, nil
}
