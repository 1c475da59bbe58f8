// Package segment implements the typed, hash-committed units a DNALock
// credential is assembled from.
package segment

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Kind is the closed set of segment types. The zero value is invalid so an
// uninitialized segment can never pass commitment verification.
type Kind uint8

const (
	KindRandomEntropy Kind = iota + 1
	KindCapability
	KindPolicy
	KindSignature
	KindMetadata
	KindIdentityHash
	KindTemporal
)

// Kinds lists all valid kinds in declaration order.
var Kinds = []Kind{
	KindRandomEntropy,
	KindCapability,
	KindPolicy,
	KindSignature,
	KindMetadata,
	KindIdentityHash,
	KindTemporal,
}

func (k Kind) Valid() bool {
	return k >= KindRandomEntropy && k <= KindTemporal
}

func (k Kind) String() string {
	switch k {
	case KindRandomEntropy:
		return "random-entropy"
	case KindCapability:
		return "capability"
	case KindPolicy:
		return "policy"
	case KindSignature:
		return "signature"
	case KindMetadata:
		return "metadata"
	case KindIdentityHash:
		return "identity-hash"
	case KindTemporal:
		return "temporal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// LayerCount is the number of security layers segments are grouped into.
const LayerCount = 5

// Layer maps a kind to its fixed security layer (1..5).
//
// The mapping is exhaustive over valid kinds; there is no fallback layer.
// Callers must not pass an invalid kind (Layer panics to surface the bug).
func (k Kind) Layer() int {
	switch k {
	case KindIdentityHash:
		return 1
	case KindRandomEntropy:
		return 2
	case KindCapability, KindMetadata:
		return 3
	case KindPolicy, KindTemporal:
		return 4
	case KindSignature:
		return 5
	default:
		panic("segment: invalid kind has no layer")
	}
}

// CommitmentSize is the byte length of a segment commitment (SHA3-256).
const CommitmentSize = 32

// Segment is one typed, hash-committed unit of a credential.
//
// Segments are immutable once created: Commitment binds kind, position and
// payload together, so any later mutation is detectable.
type Segment struct {
	Position   uint32 `cbor:"position"`
	Kind       Kind   `cbor:"kind"`
	Payload    []byte `cbor:"payload"`
	Commitment []byte `cbor:"commitment"`
}

// New builds a segment and computes its commitment.
func New(kind Kind, position uint32, payload []byte) Segment {
	s := Segment{
		Position: position,
		Kind:     kind,
		Payload:  append([]byte(nil), payload...),
	}
	s.Commitment = commitment(kind, position, s.Payload)
	return s
}

// VerifyCommitment recomputes the commitment and compares in constant time.
func (s *Segment) VerifyCommitment() bool {
	if !s.Kind.Valid() || len(s.Commitment) != CommitmentSize {
		return false
	}
	want := commitment(s.Kind, s.Position, s.Payload)
	return subtle.ConstantTimeCompare(s.Commitment, want) == 1
}

func commitment(kind Kind, position uint32, payload []byte) []byte {
	h := sha3.New256()
	_, _ = h.Write([]byte{byte(kind)})
	var pos [4]byte
	binary.BigEndian.PutUint32(pos[:], position)
	_, _ = h.Write(pos[:])
	_, _ = h.Write(payload)
	return h.Sum(nil)
}
