package geometry

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/sha3"

	"dnalock.io/dnalock/cidutil"
	"dnalock.io/dnalock/credential"
)

const (
	// DefaultMaxPoints bounds the commitment size when callers pass 0.
	DefaultMaxPoints = 50_000

	// SampleIndexCount is the number of precomputed sample indices stored on
	// a commitment.
	SampleIndexCount = 16

	basePairStride = 4
	helixRadius    = 10.0
	helixHeight    = 100.0
)

// Build derives the geometric commitment for a credential. It is a pure
// function of (credential id, helix checksum, shape): the same inputs always
// produce byte-identical output.
func Build(cred *credential.Credential, shape Shape, maxPoints int) (*GeometricCommitment, error) {
	strands := shape.Strands()
	if strands == 0 {
		return nil, ErrUnknownShape
	}
	if len(cred.Segments) == 0 {
		return nil, ErrEmptySegments
	}
	if maxPoints == 0 {
		maxPoints = DefaultMaxPoints
	}
	if maxPoints < strands {
		return nil, &ErrMaxPoints{MaxPoints: maxPoints, Strands: strands}
	}

	segments := cred.SegmentsByPosition()
	stream := newHashStream(buildSeed(cred.ID, cred.HelixChecksum, shape))

	pointsPerStrand := maxPoints / strands
	if pointsPerStrand > len(segments) {
		pointsPerStrand = len(segments)
	}
	turns := uint32(6 + stream.intn(5))

	points := make([]Point, 0, strands*pointsPerStrand)
	for s := 0; s < strands; s++ {
		phase := 2 * math.Pi * float64(s) / float64(strands)
		for t := 0; t < pointsPerStrand; t++ {
			frac := 0.0
			if pointsPerStrand > 1 {
				frac = float64(t) / float64(pointsPerStrand-1)
			}
			angle := frac*float64(turns)*2*math.Pi + phase
			x := helixRadius * math.Cos(angle)
			y := helixRadius * math.Sin(angle)
			z := frac * helixHeight

			seg := segments[(s*pointsPerStrand+t)%len(segments)]
			points = append(points, Point{
				X:              x,
				Y:              y,
				Z:              z,
				PositionHash:   positionHash(x, y, z, seg.Commitment),
				LayerIndex:     seg.Kind.Layer(),
				SegmentBinding: append([]byte(nil), seg.Commitment...),
			})
		}
	}

	var edges []Edge
	// Backbone edges link consecutive points within a strand.
	for s := 0; s < strands; s++ {
		base := s * pointsPerStrand
		for t := 0; t < pointsPerStrand-1; t++ {
			a, b := uint32(base+t), uint32(base+t+1)
			edges = append(edges, Edge{
				A:        a,
				B:        b,
				Kind:     EdgeBackbone,
				BondHash: bondHash(points[a].PositionHash, points[b].PositionHash, false),
			})
		}
	}
	// Base-pair edges link strands at a fixed stride.
	if strands >= 2 {
		for s := 0; s < strands; s++ {
			if strands == 2 && s == 1 {
				// The second strand's partner edge would duplicate the first's.
				continue
			}
			partner := (s + 1) % strands
			for t := 0; t < pointsPerStrand; t += basePairStride {
				a, b := uint32(s*pointsPerStrand+t), uint32(partner*pointsPerStrand+t)
				edges = append(edges, Edge{
					A:        a,
					B:        b,
					Kind:     EdgeBasePair,
					BondHash: bondHash(points[a].PositionHash, points[b].PositionHash, true),
				})
			}
		}
	}

	m := &GeometricCommitment{
		CredentialID:    cred.ID,
		Shape:           shape,
		Points:          points,
		Edges:           edges,
		Turns:           turns,
		PointsPerStrand: uint32(pointsPerStrand),
	}
	m.ModelChecksum = modelChecksum(m)
	m.ModelID = cidutil.CIDv1RawSHA256(m.ModelChecksum)
	m.SampleIndices = stream.distinctIndices(SampleIndexCount, len(points))
	return m, nil
}

func buildSeed(credentialID string, helixChecksum []byte, shape Shape) []byte {
	h := sha3.New256()
	_, _ = h.Write([]byte("dnalock-geometry-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(credentialID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(helixChecksum)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(shape))
	return h.Sum(nil)
}

// positionHash binds a coordinate to its source segment's commitment.
// Coordinates enter the hash as IEEE-754 bit patterns, never via decimal
// formatting, so hashing is exact and platform-independent.
func positionHash(x, y, z float64, segmentCommitment []byte) []byte {
	h := sha3.New256()
	var b [8]byte
	for _, f := range []float64{x, y, z} {
		binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
		_, _ = h.Write(b[:])
	}
	_, _ = h.Write(segmentCommitment)
	return h.Sum(nil)
}

func bondHash(a, b []byte, cross bool) []byte {
	h := sha3.New256()
	_, _ = h.Write(a)
	_, _ = h.Write(b)
	if cross {
		_, _ = h.Write([]byte("cross"))
	}
	return h.Sum(nil)
}

// modelChecksum folds shape parameters and every point and edge hash.
func modelChecksum(m *GeometricCommitment) []byte {
	h := sha3.New256()
	_, _ = h.Write([]byte(m.CredentialID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(m.Shape))
	var b [4]byte
	for _, v := range []uint32{uint32(m.Shape.Strands()), m.PointsPerStrand, m.Turns, uint32(len(m.Points)), uint32(len(m.Edges))} {
		binary.BigEndian.PutUint32(b[:], v)
		_, _ = h.Write(b[:])
	}
	for i := range m.Points {
		_, _ = h.Write(m.Points[i].PositionHash)
	}
	for i := range m.Edges {
		_, _ = h.Write(m.Edges[i].BondHash)
	}
	return h.Sum(nil)
}
