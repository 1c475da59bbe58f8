// Package geometry builds deterministic 3-D commitments over a credential's
// segments. The point/edge structure is the authentication surface: each
// point hash binds a coordinate to a segment commitment, so an opening
// reveals a committed coordinate without revealing the segment payload.
package geometry

import (
	"errors"
	"fmt"
)

// Shape selects the strand layout of the commitment.
type Shape string

const (
	DoubleHelix Shape = "double-helix"
	TripleHelix Shape = "triple-helix"
	QuadHelix   Shape = "quad-helix"
)

// Strands returns the strand count for a shape, or 0 for an unknown shape.
func (s Shape) Strands() int {
	switch s {
	case DoubleHelix:
		return 2
	case TripleHelix:
		return 3
	case QuadHelix:
		return 4
	}
	return 0
}

// EdgeKind distinguishes intra-strand backbone edges from cross-strand
// base-pair edges.
type EdgeKind string

const (
	EdgeBackbone EdgeKind = "backbone"
	EdgeBasePair EdgeKind = "base-pair"
)

// Point is one hash-committed coordinate of the commitment.
type Point struct {
	X              float64 `cbor:"x"`
	Y              float64 `cbor:"y"`
	Z              float64 `cbor:"z"`
	PositionHash   []byte  `cbor:"positionHash"`
	LayerIndex     int     `cbor:"layerIndex"`
	SegmentBinding []byte  `cbor:"segmentBinding"`
}

// Edge links two points; BondHash binds both endpoint hashes.
type Edge struct {
	A        uint32   `cbor:"a"`
	B        uint32   `cbor:"b"`
	Kind     EdgeKind `cbor:"kind"`
	BondHash []byte   `cbor:"bondHash"`
}

// GeometricCommitment is the deterministic 3-D embedding of a credential.
//
// For a fixed (credential id, helix checksum, shape) the structure is
// byte-identical on every build; ModelID is content-derived, so regeneration
// is idempotent. Commitments are cached by the issuer and never mutated; any
// mutation invalidates ModelChecksum and is caught by VerifyIntegrity.
type GeometricCommitment struct {
	ModelID         string   `cbor:"modelId"`
	CredentialID    string   `cbor:"credentialId"`
	Shape           Shape    `cbor:"shape"`
	Points          []Point  `cbor:"points"`
	Edges           []Edge   `cbor:"edges"`
	ModelChecksum   []byte   `cbor:"modelChecksum"`
	SampleIndices   []uint32 `cbor:"sampleIndices"`
	Turns           uint32   `cbor:"turns"`
	PointsPerStrand uint32   `cbor:"pointsPerStrand"`
}

var (
	ErrUnknownShape  = errors.New("geometry: unknown shape")
	ErrEmptySegments = errors.New("geometry: credential has no segments")
)

// ErrMaxPoints reports an unusable point budget.
type ErrMaxPoints struct {
	MaxPoints int
	Strands   int
}

func (e *ErrMaxPoints) Error() string {
	return fmt.Sprintf("geometry: max points %d cannot cover %d strands", e.MaxPoints, e.Strands)
}
