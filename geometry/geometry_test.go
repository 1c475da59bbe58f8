package geometry

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

func TestBuildDeterministic(t *testing.T) {
	cred := mustCredential(t)

	a, err := Build(cred, DoubleHelix, DefaultMaxPoints)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := Build(cred, DoubleHelix, DefaultMaxPoints)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !bytes.Equal(a.ModelChecksum, b.ModelChecksum) {
		t.Fatalf("model checksum changed across builds")
	}
	if a.ModelID != b.ModelID {
		t.Fatalf("model id changed across builds: %q vs %q", a.ModelID, b.ModelID)
	}
	if len(a.Points) != len(b.Points) || len(a.Edges) != len(b.Edges) {
		t.Fatalf("structure size changed across builds")
	}
	for i := range a.Points {
		if a.Points[i].X != b.Points[i].X || !bytes.Equal(a.Points[i].PositionHash, b.Points[i].PositionHash) {
			t.Fatalf("point %d changed across builds", i)
		}
	}
	if len(a.SampleIndices) != SampleIndexCount {
		t.Fatalf("sample indices: got %d want %d", len(a.SampleIndices), SampleIndexCount)
	}
	for i := range a.SampleIndices {
		if a.SampleIndices[i] != b.SampleIndices[i] {
			t.Fatalf("sample index %d changed across builds", i)
		}
	}
}

func TestBuildShapeChangesStructure(t *testing.T) {
	cred := mustCredential(t)

	double, err := Build(cred, DoubleHelix, DefaultMaxPoints)
	if err != nil {
		t.Fatalf("Build double: %v", err)
	}
	triple, err := Build(cred, TripleHelix, DefaultMaxPoints)
	if err != nil {
		t.Fatalf("Build triple: %v", err)
	}
	if bytes.Equal(double.ModelChecksum, triple.ModelChecksum) {
		t.Fatalf("different shapes produced identical checksums")
	}
	if len(triple.Points) != 3*int(triple.PointsPerStrand) {
		t.Fatalf("triple helix point count %d != 3*%d", len(triple.Points), triple.PointsPerStrand)
	}
}

func TestBuildRespectsMaxPoints(t *testing.T) {
	cred := mustCredential(t)

	m, err := Build(cred, DoubleHelix, 100)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Points) > 100 {
		t.Fatalf("points %d exceed max 100", len(m.Points))
	}

	if _, err := Build(cred, DoubleHelix, 1); err == nil {
		t.Fatalf("expected error for unusable max points")
	}
	if _, err := Build(cred, Shape("spiral"), 100); err != ErrUnknownShape {
		t.Fatalf("expected ErrUnknownShape, got %v", err)
	}
}

func TestVerifyIntegrityDetectsMutation(t *testing.T) {
	cred := mustCredential(t)

	m, err := Build(cred, DoubleHelix, 2_000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !m.VerifyIntegrity() {
		t.Fatalf("fresh commitment failed integrity verification")
	}

	m.Points[3].X += 0.5
	if m.VerifyIntegrity() {
		t.Fatalf("mutated coordinate passed integrity verification")
	}
	m.Points[3].X -= 0.5
	if !m.VerifyIntegrity() {
		t.Fatalf("restored commitment failed integrity verification")
	}

	m.Edges[0].BondHash[0] ^= 0x01
	if m.VerifyIntegrity() {
		t.Fatalf("mutated bond hash passed integrity verification")
	}
	m.Edges[0].BondHash[0] ^= 0x01

	m.ModelChecksum[0] ^= 0x01
	if m.VerifyIntegrity() {
		t.Fatalf("mutated model checksum passed integrity verification")
	}
}

func TestBasePairEdgesCrossStrands(t *testing.T) {
	cred := mustCredential(t)

	m, err := Build(cred, DoubleHelix, 2_000)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var backbone, basePair int
	for _, e := range m.Edges {
		switch e.Kind {
		case EdgeBackbone:
			backbone++
			if e.A/m.PointsPerStrand != e.B/m.PointsPerStrand {
				t.Fatalf("backbone edge %d-%d crosses strands", e.A, e.B)
			}
		case EdgeBasePair:
			basePair++
			if e.A/m.PointsPerStrand == e.B/m.PointsPerStrand {
				t.Fatalf("base-pair edge %d-%d stays within a strand", e.A, e.B)
			}
		}
	}
	if backbone == 0 || basePair == 0 {
		t.Fatalf("expected both edge kinds, got backbone=%d basePair=%d", backbone, basePair)
	}
}

func TestHashStreamDeterministicAndDistinct(t *testing.T) {
	a := newHashStream([]byte("seed"))
	b := newHashStream([]byte("seed"))
	for i := 0; i < 100; i++ {
		if a.uint64() != b.uint64() {
			t.Fatalf("hash stream diverged at draw %d", i)
		}
	}

	idx := newHashStream([]byte("seed")).distinctIndices(16, 64)
	seen := map[uint32]bool{}
	for _, v := range idx {
		if v >= 64 {
			t.Fatalf("index %d out of range", v)
		}
		if seen[v] {
			t.Fatalf("duplicate sampled index %d", v)
		}
		seen[v] = true
	}
}
