package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

func TestEd25519SignerRoundTrip(t *testing.T) {
	s, err := GenerateEd25519Signer(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateEd25519Signer: %v", err)
	}
	msg := []byte("issuer binding tuple")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := Verify(AlgEd25519, s.PublicKey(), msg, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("signature did not verify")
	}

	sig[0] ^= 0xFF
	ok, err = Verify(AlgEd25519, s.PublicKey(), msg, sig)
	if err != nil {
		t.Fatalf("Verify mutated: %v", err)
	}
	if ok {
		t.Fatalf("mutated signature verified")
	}
}

func TestDilithium3SignerRoundTrip(t *testing.T) {
	s, err := GenerateDilithium3Signer(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateDilithium3Signer: %v", err)
	}
	msg := []byte("post-quantum issuer binding")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := Verify(AlgDilithium3, s.PublicKey(), msg, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("dilithium3 signature did not verify")
	}

	msg[0] ^= 0x01
	ok, err = Verify(AlgDilithium3, s.PublicKey(), msg, sig)
	if err != nil {
		t.Fatalf("Verify mutated: %v", err)
	}
	if ok {
		t.Fatalf("signature verified over mutated message")
	}
}

func TestSignerSizesMatchAlgorithms(t *testing.T) {
	for _, alg := range []string{AlgEd25519, AlgDilithium3} {
		if _, err := SignatureSize(alg); err != nil {
			t.Fatalf("SignatureSize(%s): %v", alg, err)
		}
		if _, err := PublicKeySize(alg); err != nil {
			t.Fatalf("PublicKeySize(%s): %v", alg, err)
		}
	}
	if _, err := SignatureSize("rsa"); err == nil {
		t.Fatalf("expected error for unsupported algorithm")
	}
}

func TestDeriveComponentSeedDeterministic(t *testing.T) {
	root := make([]byte, ed25519.SeedSize)
	for i := range root {
		root[i] = byte(i)
	}

	a, err := DeriveComponentSeed(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveComponentSeed: %v", err)
	}
	b, err := DeriveComponentSeed(root, "issuer")
	if err != nil {
		t.Fatalf("DeriveComponentSeed: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected deterministic derivation")
	}

	c, err := DeriveComponentSeed(root, "registry")
	if err != nil {
		t.Fatalf("DeriveComponentSeed: %v", err)
	}
	if string(a) == string(c) {
		t.Fatalf("expected different components to derive different seeds")
	}

	if _, err := DeriveComponentSeed(root, "Bad Component!"); err == nil {
		t.Fatalf("expected error for invalid component name")
	}
	if _, err := DeriveComponentSeed(root[:16], "issuer"); err == nil {
		t.Fatalf("expected error for short root seed")
	}
}
