// Package credential implements generation and in-memory representation of
// DNALock credentials: large, typed, shuffled segment collections with
// layered tamper-evident checksums.
package credential

import (
	"crypto/subtle"
	"sort"
	"time"

	"dnalock.io/dnalock/segment"
)

// FormatVersion is the current credential format version.
const FormatVersion = "1.0"

// SupportedFormatVersions enumerates versions the verifier accepts.
var SupportedFormatVersions = []string{"1.0"}

// IDPrefix starts every credential identifier.
const IDPrefix = "dna-"

// SecurityLevel selects the credential's segment count.
type SecurityLevel string

const (
	LevelStandard SecurityLevel = "standard"
	LevelElevated SecurityLevel = "elevated"
	LevelHigh     SecurityLevel = "high"
	LevelCritical SecurityLevel = "critical"
	LevelMaximum  SecurityLevel = "maximum"
)

// Levels lists all security levels in ascending order.
var Levels = []SecurityLevel{LevelStandard, LevelElevated, LevelHigh, LevelCritical, LevelMaximum}

// SegmentCount returns the fixed segment count for a level, or 0 for an
// unknown level.
func (l SecurityLevel) SegmentCount() int {
	switch l {
	case LevelStandard:
		return 1_024
	case LevelElevated:
		return 16_384
	case LevelHigh:
		return 65_536
	case LevelCritical:
		return 262_144
	case LevelMaximum:
		return 1_048_576
	}
	return 0
}

// Issuer identifies the credential issuer and carries its signature over the
// canonical binding tuple.
type Issuer struct {
	OrgID     string `cbor:"orgId"`
	PublicKey []byte `cbor:"publicKey"`
	Signature []byte `cbor:"signature,omitempty"`
	Algorithm string `cbor:"algorithm"`
}

// Subject carries only hashes of subject identifying material.
type Subject struct {
	SubjectIDHash  []byte `cbor:"subjectIdHash"`
	SubjectType    string `cbor:"subjectType"`
	AttributesHash []byte `cbor:"attributesHash"`
}

// CryptoMaterial describes the keying material bound into the credential.
type CryptoMaterial struct {
	Algorithm string `cbor:"algorithm"`
	PublicKey []byte `cbor:"publicKey"`
	Salt      []byte `cbor:"salt"`
}

// PolicyBinding binds the credential to an issuance policy.
type PolicyBinding struct {
	PolicyID string   `cbor:"policyId"`
	Version  uint32   `cbor:"version"`
	Hash     []byte   `cbor:"hash"`
	Flags    []string `cbor:"flags,omitempty"`
}

// LayerChecksum is the checksum over one non-empty security layer.
type LayerChecksum struct {
	Layer        int    `cbor:"layer"`
	Algorithm    string `cbor:"algorithm"`
	Checksum     []byte `cbor:"checksum"`
	SegmentCount uint32 `cbor:"segmentCount"`
}

// Credential is the generated structured authentication artifact.
//
// A credential is created once by the Generator and never mutated afterwards
// except to attach the issuer signature, layer checksums and security score.
// Revocation never mutates a credential; it mutates the registry.
type Credential struct {
	ID             string            `cbor:"id"`
	FormatVersion  string            `cbor:"formatVersion"`
	CreatedAt      time.Time         `cbor:"createdAt"`
	ExpiresAt      time.Time         `cbor:"expiresAt"`
	Issuer         Issuer            `cbor:"issuer"`
	Subject        Subject           `cbor:"subject"`
	Segments       []segment.Segment `cbor:"segments"`
	HelixChecksum  []byte            `cbor:"helixChecksum"`
	CryptoMaterial CryptoMaterial    `cbor:"cryptoMaterial"`
	Policy         PolicyBinding     `cbor:"policy"`
	LayerChecksums []LayerChecksum   `cbor:"layerChecksums"`
	SecurityScore  float64           `cbor:"securityScore"`
}

// SegmentsByPosition returns the segments sorted by position. The generator
// emits them in position order already; this copes with re-decoded input.
func (c *Credential) SegmentsByPosition() []segment.Segment {
	out := append([]segment.Segment(nil), c.Segments...)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// VerifyChecksum recomputes the helix checksum over the position-sorted
// segments and compares it in constant time.
func (c *Credential) VerifyChecksum() bool {
	if len(c.Segments) == 0 || len(c.HelixChecksum) == 0 {
		return false
	}
	want := helixChecksum(c.SegmentsByPosition())
	return subtle.ConstantTimeCompare(c.HelixChecksum, want) == 1
}

// Expired reports whether the credential is past its expiry at now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
