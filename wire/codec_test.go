package wire

import (
	"bytes"
	"crypto/rand"
	"testing"

	"dnalock.io/dnalock/credential"
	"dnalock.io/dnalock/keys"
)

func mustCredential(t *testing.T) *credential.Credential {
	t.Helper()
	signer, err := keys.GenerateEd25519Signer(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateEd25519Signer: %v", err)
	}
	g := credential.NewGenerator(signer, "dnalock-test-org")
	cred, err := g.Generate("user@example.com", credential.LevelStandard, credential.PolicyBinding{PolicyID: "policy-default", Version: 1}, 365)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return cred
}

func TestRoundTripPreservesCredential(t *testing.T) {
	in := mustCredential(t)

	b, err := MarshalCredential(in)
	if err != nil {
		t.Fatalf("MarshalCredential: %v", err)
	}
	out, err := UnmarshalCredential(b)
	if err != nil {
		t.Fatalf("UnmarshalCredential: %v", err)
	}

	if out.ID != in.ID {
		t.Fatalf("id round-trip mismatch: %q vs %q", out.ID, in.ID)
	}
	if !bytes.Equal(out.HelixChecksum, in.HelixChecksum) {
		t.Fatalf("helix checksum round-trip mismatch")
	}
	if !bytes.Equal(out.Subject.SubjectIDHash, in.Subject.SubjectIDHash) {
		t.Fatalf("subject hash round-trip mismatch")
	}
	if out.Policy.PolicyID != in.Policy.PolicyID || out.Policy.Version != in.Policy.Version {
		t.Fatalf("policy round-trip mismatch")
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("timestamp round-trip mismatch")
	}
	if len(out.Segments) != len(in.Segments) {
		t.Fatalf("segment count round-trip mismatch")
	}
	for i := range in.Segments {
		if out.Segments[i].Kind != in.Segments[i].Kind ||
			out.Segments[i].Position != in.Segments[i].Position ||
			!bytes.Equal(out.Segments[i].Payload, in.Segments[i].Payload) ||
			!bytes.Equal(out.Segments[i].Commitment, in.Segments[i].Commitment) {
			t.Fatalf("segment %d round-trip mismatch", i)
		}
	}
	if !out.VerifyChecksum() {
		t.Fatalf("decoded credential failed checksum verification")
	}
}

func TestMarshalIsByteStable(t *testing.T) {
	cred := mustCredential(t)

	var golden []byte
	for i := 0; i < 10; i++ {
		b, err := MarshalCredential(cred)
		if err != nil {
			t.Fatalf("MarshalCredential: %v", err)
		}
		if golden == nil {
			golden = b
			continue
		}
		if !bytes.Equal(b, golden) {
			t.Fatalf("canonical encoding changed across runs")
		}
	}

	// Re-encoding a decoded credential must reproduce the same bytes.
	decoded, err := UnmarshalCredential(golden)
	if err != nil {
		t.Fatalf("UnmarshalCredential: %v", err)
	}
	again, err := MarshalCredential(decoded)
	if err != nil {
		t.Fatalf("MarshalCredential(decoded): %v", err)
	}
	if !bytes.Equal(again, golden) {
		t.Fatalf("re-encoded credential differs from original canonical bytes")
	}
}

func TestCredentialCIDStable(t *testing.T) {
	cred := mustCredential(t)

	a, err := CredentialCID(cred)
	if err != nil {
		t.Fatalf("CredentialCID: %v", err)
	}
	b, err := CredentialCID(cred)
	if err != nil {
		t.Fatalf("CredentialCID: %v", err)
	}
	if a == "" || a != b {
		t.Fatalf("credential CID not stable: %q vs %q", a, b)
	}

	other := mustCredential(t)
	c, err := CredentialCID(other)
	if err != nil {
		t.Fatalf("CredentialCID(other): %v", err)
	}
	if c == a {
		t.Fatalf("distinct credentials share a CID")
	}
}
