package revocation

import (
	"bytes"
	"testing"
	"time"
)

func TestRevokeThenIsRevoked(t *testing.T) {
	reg := NewRegistry()

	if reg.IsRevoked("dna-test-1") {
		t.Fatalf("fresh registry reports revoked id")
	}
	if _, err := reg.Revoke("dna-test-1", ReasonKeyCompromise, "admin", "compromised hsm"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !reg.IsRevoked("dna-test-1") {
		t.Fatalf("IsRevoked false after revoke")
	}
	if reg.Version() != 1 {
		t.Fatalf("version %d after one revoke", reg.Version())
	}
}

func TestDoubleRevokeRejected(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Revoke("dna-test-1", ReasonKeyCompromise, "admin", ""); err != nil {
		t.Fatalf("first Revoke: %v", err)
	}
	_, err := reg.Revoke("dna-test-1", ReasonSuperseded, "admin", "")
	if !IsAlreadyRevoked(err) {
		t.Fatalf("second Revoke: got %v, want ErrAlreadyRevoked", err)
	}
	if reg.Version() != 1 {
		t.Fatalf("failed revoke bumped version to %d", reg.Version())
	}
	if !reg.IsRevoked("dna-test-1") {
		t.Fatalf("id no longer revoked after rejected second revoke")
	}
}

func TestCRLHashDeterministicAcrossInsertionOrder(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	a := NewRegistry()
	a.Now = clock
	b := NewRegistry()
	b.Now = clock

	ids := []string{"dna-3", "dna-1", "dna-2"}
	for _, id := range ids {
		if _, err := a.Revoke(id, ReasonUnspecified, "admin", ""); err != nil {
			t.Fatalf("Revoke a: %v", err)
		}
	}
	for i := len(ids) - 1; i >= 0; i-- {
		if _, err := b.Revoke(ids[i], ReasonUnspecified, "admin", ""); err != nil {
			t.Fatalf("Revoke b: %v", err)
		}
	}

	la, lb := a.List(), b.List()
	if !bytes.Equal(la.CRLHash, lb.CRLHash) {
		t.Fatalf("crl hash depends on insertion order")
	}
	if la.Version != lb.Version {
		t.Fatalf("version mismatch: %d vs %d", la.Version, lb.Version)
	}
	for i := 1; i < len(la.Entries); i++ {
		if la.Entries[i-1].CredentialID >= la.Entries[i].CredentialID {
			t.Fatalf("list entries not ordered by credential id")
		}
	}
}

func TestVersionMonotonicAndHashChanges(t *testing.T) {
	reg := NewRegistry()

	var lastHash []byte
	for i, id := range []string{"dna-a", "dna-b", "dna-c"} {
		if _, err := reg.Revoke(id, ReasonPrivilegeWithdrawn, "admin", ""); err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		l := reg.List()
		if l.Version != uint64(i+1) {
			t.Fatalf("version %d after %d revokes", l.Version, i+1)
		}
		if bytes.Equal(l.CRLHash, lastHash) {
			t.Fatalf("crl hash unchanged after insertion")
		}
		lastHash = l.CRLHash
	}
}

func TestRevokeEmptyIDRejected(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Revoke("", ReasonUnspecified, "admin", ""); err == nil {
		t.Fatalf("expected error for empty credential id")
	}
}
