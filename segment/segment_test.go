package segment

import (
	"bytes"
	"testing"
)

func TestCommitmentBindsKindPositionPayload(t *testing.T) {
	base := New(KindCapability, 7, []byte("cap-payload"))
	if !base.VerifyCommitment() {
		t.Fatalf("fresh segment failed commitment verification")
	}

	otherKind := New(KindMetadata, 7, []byte("cap-payload"))
	if bytes.Equal(base.Commitment, otherKind.Commitment) {
		t.Fatalf("commitment did not bind kind")
	}
	otherPos := New(KindCapability, 8, []byte("cap-payload"))
	if bytes.Equal(base.Commitment, otherPos.Commitment) {
		t.Fatalf("commitment did not bind position")
	}
	otherPayload := New(KindCapability, 7, []byte("cap-payloae"))
	if bytes.Equal(base.Commitment, otherPayload.Commitment) {
		t.Fatalf("commitment did not bind payload")
	}
}

func TestVerifyCommitmentRejectsMutation(t *testing.T) {
	s := New(KindRandomEntropy, 3, []byte{1, 2, 3, 4})
	s.Payload[2] ^= 0x01
	if s.VerifyCommitment() {
		t.Fatalf("mutated payload passed commitment verification")
	}
}

func TestVerifyCommitmentRejectsInvalidKind(t *testing.T) {
	s := New(KindTemporal, 0, []byte("t"))
	s.Kind = Kind(0)
	if s.VerifyCommitment() {
		t.Fatalf("zero kind passed commitment verification")
	}
}

func TestLayerMappingCoversAllKindsAndLayers(t *testing.T) {
	seen := map[int]bool{}
	for _, k := range Kinds {
		l := k.Layer()
		if l < 1 || l > LayerCount {
			t.Fatalf("kind %s mapped to layer %d outside 1..%d", k, l, LayerCount)
		}
		seen[l] = true
	}
	for l := 1; l <= LayerCount; l++ {
		if !seen[l] {
			t.Fatalf("no kind maps to layer %d", l)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	in := New(KindIdentityHash, 42, []byte("identity-slice"))
	out, err := DecodeRecord(EncodeRecord(in))
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if out.Kind != in.Kind || out.Position != in.Position {
		t.Fatalf("record header round-trip mismatch")
	}
	if !bytes.Equal(out.Payload, in.Payload) || !bytes.Equal(out.Commitment, in.Commitment) {
		t.Fatalf("record body round-trip mismatch")
	}
}

func TestDecodeRecordRejectsTamper(t *testing.T) {
	rec := EncodeRecord(New(KindPolicy, 1, []byte("policy")))
	rec[len(rec)-1] ^= 0xFF
	if _, err := DecodeRecord(rec); err != ErrRecordTampered {
		t.Fatalf("expected ErrRecordTampered, got %v", err)
	}

	if _, err := DecodeRecord(rec[:4]); err != ErrRecordTruncated {
		t.Fatalf("expected ErrRecordTruncated, got %v", err)
	}

	rec2 := EncodeRecord(New(KindPolicy, 1, []byte("policy")))
	rec2[0] = 0xEE
	if _, err := DecodeRecord(rec2); err != ErrRecordKind {
		t.Fatalf("expected ErrRecordKind, got %v", err)
	}
}
