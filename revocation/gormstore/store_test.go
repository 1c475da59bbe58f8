package gormstore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"dnalock.io/dnalock/revocation"
)

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestAppendAndLoadAll(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t)

	in := revocation.Entry{
		CredentialID: "dna-journal-1",
		RevokedAt:    time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC),
		Reason:       revocation.ReasonKeyCompromise,
		RevokedBy:    "admin",
		Notes:        "hsm breach",
	}
	if err := s.Append(ctx, in); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("loaded %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.CredentialID != in.CredentialID || got.Reason != in.Reason || got.RevokedBy != in.RevokedBy || got.Notes != in.Notes {
		t.Fatalf("entry round-trip mismatch: %+v", got)
	}
	if !got.RevokedAt.Equal(in.RevokedAt) {
		t.Fatalf("revoked_at round-trip mismatch: %v vs %v", got.RevokedAt, in.RevokedAt)
	}
}

func TestAppendRejectsDuplicateCredentialID(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t)

	e := revocation.Entry{CredentialID: "dna-dup", RevokedAt: time.Now().UTC(), Reason: revocation.ReasonUnspecified, RevokedBy: "admin"}
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("first Append: %v", err)
	}
	if err := s.Append(ctx, e); err == nil {
		t.Fatalf("duplicate Append succeeded; unique index missing")
	}
}

func TestNewRegistryRehydrates(t *testing.T) {
	ctx := context.Background()
	s := mustStore(t)

	live := revocation.NewRegistry()
	for _, id := range []string{"dna-r1", "dna-r2", "dna-r3"} {
		e, err := live.Revoke(id, revocation.ReasonSuperseded, "admin", "")
		if err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	restored, err := s.NewRegistry(ctx)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	for _, id := range []string{"dna-r1", "dna-r2", "dna-r3"} {
		if !restored.IsRevoked(id) {
			t.Fatalf("restored registry missing %s", id)
		}
	}

	liveList, restoredList := live.List(), restored.List()
	if liveList.Version != restoredList.Version {
		t.Fatalf("version mismatch after rehydration: %d vs %d", liveList.Version, restoredList.Version)
	}
	if !bytes.Equal(liveList.CRLHash, restoredList.CRLHash) {
		t.Fatalf("crl hash mismatch after rehydration")
	}
}
