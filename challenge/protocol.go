// Package challenge implements the knowledge-proof protocol: randomized
// index challenges against a geometric commitment and verification of the
// holder's openings.
//
// The protocol is an anti-replay commitment-opening scheme, not a
// zero-knowledge proof: each challenge samples fresh indices, so an attacker
// who observed a few prior openings cannot answer the next challenge without
// knowing the full hash-committed structure.
package challenge

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"dnalock.io/dnalock/geometry"
)

const (
	// DefaultTTL is the challenge validity window.
	DefaultTTL = 60 * time.Second

	// PointChallengeCount and EdgeChallengeCount size each challenge.
	PointChallengeCount = 10
	EdgeChallengeCount  = 5

	// minEdgesForChallenge: edge openings are only requested when the
	// commitment has at least this many edges.
	minEdgesForChallenge = 5

	// CoordinateTolerance is the per-axis float tolerance for point
	// openings. Hashes are always compared exactly.
	CoordinateTolerance = 1e-3

	nonceSize = 16
)

// Challenge is a one-shot, time-boxed request for commitment openings.
type Challenge struct {
	ChallengeID           string    `cbor:"challengeId"`
	CredentialID          string    `cbor:"credentialId"`
	RequestedPointIndices []uint32  `cbor:"requestedPointIndices"`
	RequestedEdgeIndices  []uint32  `cbor:"requestedEdgeIndices"`
	Nonce                 []byte    `cbor:"nonce"`
	IssuedAt              time.Time `cbor:"issuedAt"`
	ExpiresAt             time.Time `cbor:"expiresAt"`
}

// PointOpening is the holder's response for one requested point index.
type PointOpening struct {
	Index        uint32  `cbor:"index"`
	X            float64 `cbor:"x"`
	Y            float64 `cbor:"y"`
	Z            float64 `cbor:"z"`
	PositionHash []byte  `cbor:"positionHash"`
}

// EdgeOpening is the holder's response for one requested edge index.
type EdgeOpening struct {
	Index    uint32 `cbor:"index"`
	BondHash []byte `cbor:"bondHash"`
}

// Response is the holder's full answer to a challenge.
type Response struct {
	ModelChecksum []byte         `cbor:"modelChecksum"`
	Points        []PointOpening `cbor:"points"`
	Edges         []EdgeOpening  `cbor:"edges"`
}

// Result is the verification outcome. Reason carries the first failing
// check; it is generic by construction and safe to return to callers.
type Result struct {
	Verified bool   `cbor:"verified"`
	Reason   string `cbor:"reason"`
}

type challengeState struct {
	challenge  Challenge
	commitment *geometry.GeometricCommitment
	consumed   bool
}

// Protocol issues and verifies challenges. The store is the only shared
// mutable state; a single mutex serializes it.
type Protocol struct {
	mu     sync.Mutex
	active map[string]*challengeState

	// TTL is the challenge validity window; defaults to DefaultTTL.
	TTL time.Duration

	// Now supplies protocol time; defaults to time.Now. Injectable for tests.
	Now func() time.Time

	// Rand draws challenge indices and nonces; defaults to crypto/rand.
	Rand io.Reader
}

// NewProtocol constructs a protocol instance with production defaults.
func NewProtocol() *Protocol {
	return &Protocol{active: make(map[string]*challengeState), TTL: DefaultTTL}
}

func (p *Protocol) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Protocol) rand() io.Reader {
	if p.Rand != nil {
		return p.Rand
	}
	return rand.Reader
}

func (p *Protocol) ttl() time.Duration {
	if p.TTL > 0 {
		return p.TTL
	}
	return DefaultTTL
}

// IssueChallenge samples fresh point and edge indices against a commitment
// and stores the pending challenge keyed by its id.
func (p *Protocol) IssueChallenge(m *geometry.GeometricCommitment) (*Challenge, error) {
	if m == nil || len(m.Points) == 0 {
		return nil, geometry.ErrEmptySegments
	}

	points, err := p.sampleIndices(PointChallengeCount, len(m.Points))
	if err != nil {
		return nil, err
	}
	var edges []uint32
	if len(m.Edges) >= minEdgesForChallenge {
		edges, err = p.sampleIndices(EdgeChallengeCount, len(m.Edges))
		if err != nil {
			return nil, err
		}
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(p.rand(), nonce); err != nil {
		return nil, err
	}

	now := p.now()
	ch := Challenge{
		ChallengeID:           uuid.NewString(),
		CredentialID:          m.CredentialID,
		RequestedPointIndices: points,
		RequestedEdgeIndices:  edges,
		Nonce:                 nonce,
		IssuedAt:              now,
		ExpiresAt:             now.Add(p.ttl()),
	}

	p.mu.Lock()
	if p.active == nil {
		p.active = make(map[string]*challengeState)
	}
	p.active[ch.ChallengeID] = &challengeState{challenge: ch, commitment: m}
	p.mu.Unlock()

	return &ch, nil
}

// VerifyResponse checks a holder's openings against the stored commitment.
//
// The challenge is consumed on the first attempt regardless of outcome:
// a second call with the same id always fails with ErrAlreadyUsed. Expiry
// is checked here synchronously, so an expired-but-unswept challenge is
// still rejected.
func (p *Protocol) VerifyResponse(challengeID string, resp *Response) (*Result, error) {
	p.mu.Lock()
	st, ok := p.active[challengeID]
	if !ok {
		p.mu.Unlock()
		return nil, ErrNotFound
	}
	if st.consumed {
		p.mu.Unlock()
		return nil, ErrAlreadyUsed
	}
	if p.now().After(st.challenge.ExpiresAt) {
		st.consumed = true
		p.mu.Unlock()
		return nil, ErrExpired
	}
	st.consumed = true
	p.mu.Unlock()

	return checkResponse(&st.challenge, st.commitment, resp), nil
}

func checkResponse(ch *Challenge, m *geometry.GeometricCommitment, resp *Response) *Result {
	if resp == nil {
		return &Result{Verified: false, Reason: "missing response"}
	}
	if subtle.ConstantTimeCompare(resp.ModelChecksum, m.ModelChecksum) != 1 {
		return &Result{Verified: false, Reason: "model checksum mismatch"}
	}

	points := make(map[uint32]PointOpening, len(resp.Points))
	for _, o := range resp.Points {
		points[o.Index] = o
	}
	for _, idx := range ch.RequestedPointIndices {
		o, ok := points[idx]
		if !ok {
			return &Result{Verified: false, Reason: "missing point opening"}
		}
		if int(idx) >= len(m.Points) {
			return &Result{Verified: false, Reason: "invalid point index"}
		}
		want := &m.Points[idx]
		if subtle.ConstantTimeCompare(o.PositionHash, want.PositionHash) != 1 {
			return &Result{Verified: false, Reason: "point hash mismatch"}
		}
		if math.Abs(o.X-want.X) > CoordinateTolerance ||
			math.Abs(o.Y-want.Y) > CoordinateTolerance ||
			math.Abs(o.Z-want.Z) > CoordinateTolerance {
			return &Result{Verified: false, Reason: "coordinate mismatch"}
		}
	}

	edges := make(map[uint32]EdgeOpening, len(resp.Edges))
	for _, o := range resp.Edges {
		edges[o.Index] = o
	}
	for _, idx := range ch.RequestedEdgeIndices {
		o, ok := edges[idx]
		if !ok {
			return &Result{Verified: false, Reason: "missing edge opening"}
		}
		if int(idx) >= len(m.Edges) {
			return &Result{Verified: false, Reason: "invalid edge index"}
		}
		if subtle.ConstantTimeCompare(o.BondHash, m.Edges[idx].BondHash) != 1 {
			return &Result{Verified: false, Reason: "bond hash mismatch"}
		}
	}

	return &Result{Verified: true, Reason: "verified"}
}

// Sweep drops consumed and expired challenges to reclaim memory. It is an
// optional optimization: correctness never depends on it because
// VerifyResponse checks expiry synchronously.
func (p *Protocol) Sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for id, st := range p.active {
		if st.consumed || now.After(st.challenge.ExpiresAt) {
			delete(p.active, id)
			removed++
		}
	}
	return removed
}

// Pending returns the number of stored challenges, for observability.
func (p *Protocol) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

func (p *Protocol) sampleIndices(count, n int) ([]uint32, error) {
	if count > n {
		count = n
	}
	out := make([]uint32, 0, count)
	seen := make(map[uint32]bool, count)
	for len(out) < count {
		j, err := rand.Int(p.rand(), big.NewInt(int64(n)))
		if err != nil {
			return nil, err
		}
		idx := uint32(j.Int64())
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out, nil
}

// BuildResponse constructs an honest holder's response to a challenge from
// the full commitment.
func BuildResponse(m *geometry.GeometricCommitment, ch *Challenge) *Response {
	resp := &Response{ModelChecksum: append([]byte(nil), m.ModelChecksum...)}
	for _, idx := range ch.RequestedPointIndices {
		if int(idx) >= len(m.Points) {
			continue
		}
		pt := m.Points[idx]
		resp.Points = append(resp.Points, PointOpening{
			Index:        idx,
			X:            pt.X,
			Y:            pt.Y,
			Z:            pt.Z,
			PositionHash: append([]byte(nil), pt.PositionHash...),
		})
	}
	for _, idx := range ch.RequestedEdgeIndices {
		if int(idx) >= len(m.Edges) {
			continue
		}
		resp.Edges = append(resp.Edges, EdgeOpening{
			Index:    idx,
			BondHash: append([]byte(nil), m.Edges[idx].BondHash...),
		})
	}
	return resp
}
