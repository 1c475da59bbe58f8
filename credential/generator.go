package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"dnalock.io/dnalock/keys"
	"dnalock.io/dnalock/segment"
)

const (
	// MaxSubjectIDLength bounds subject identifiers accepted by Generate.
	MaxSubjectIDLength = 512

	// Validity bounds in days.
	MinValidityDays = 1
	MaxValidityDays = 3650

	entropyPayloadSize   = 64
	signaturePayloadSize = 48
	identitySliceSize    = 8
)

// ratio is one entry of the fixed kind-distribution table.
type ratio struct {
	Kind  segment.Kind
	Share float64
}

// TargetRatios is the fixed segment distribution. The final entry absorbs the
// integer-rounding remainder so counts always sum to the exact segment count.
var TargetRatios = []ratio{
	{segment.KindRandomEntropy, 0.40},
	{segment.KindCapability, 0.20},
	{segment.KindPolicy, 0.10},
	{segment.KindSignature, 0.10},
	{segment.KindMetadata, 0.10},
	{segment.KindIdentityHash, 0.05},
	{segment.KindTemporal, 0.05},
}

// TargetShare returns the target share for a kind.
func TargetShare(k segment.Kind) float64 {
	for _, r := range TargetRatios {
		if r.Kind == k {
			return r.Share
		}
	}
	return 0
}

// Generator builds credentials. It holds no mutable state; a single Generator
// may serve concurrent calls.
type Generator struct {
	// Signer is the issuer signing capability. Key custody is external.
	Signer keys.Signer

	// OrgID identifies the issuing organization.
	OrgID string

	// Rand is the CSPRNG used for entropy segments, salts and the shuffle.
	// Defaults to crypto/rand.
	Rand io.Reader

	// Now supplies issuance time; defaults to time.Now. Injectable for tests.
	Now func() time.Time
}

// NewGenerator constructs a Generator with production defaults.
func NewGenerator(signer keys.Signer, orgID string) *Generator {
	return &Generator{Signer: signer, OrgID: orgID, Rand: rand.Reader, Now: time.Now}
}

func (g *Generator) rand() io.Reader {
	if g.Rand != nil {
		return g.Rand
	}
	return rand.Reader
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC().Truncate(time.Second)
	}
	return time.Now().UTC().Truncate(time.Second)
}

// Generate builds a complete credential for subjectID at the given security
// level. Validation failures return a structured error and no partial
// credential.
func (g *Generator) Generate(subjectID string, level SecurityLevel, policy PolicyBinding, validityDays int) (*Credential, error) {
	if subjectID == "" {
		return nil, newError(KindValidation, "DNA-VAL-001", "subject id cannot be empty")
	}
	if len(subjectID) > MaxSubjectIDLength {
		return nil, newError(KindValidation, "DNA-VAL-002", fmt.Sprintf("subject id exceeds %d bytes", MaxSubjectIDLength))
	}
	if validityDays < MinValidityDays || validityDays > MaxValidityDays {
		return nil, newError(KindValidation, "DNA-VAL-003", fmt.Sprintf("validity days must be in [%d, %d]", MinValidityDays, MaxValidityDays))
	}
	if policy.PolicyID == "" {
		return nil, newError(KindValidation, "DNA-VAL-004", "policy id cannot be empty")
	}
	n := level.SegmentCount()
	if n == 0 {
		return nil, newError(KindValidation, "DNA-VAL-005", fmt.Sprintf("unknown security level %q", level))
	}
	if g.Signer == nil {
		return nil, newError(KindValidation, "DNA-VAL-006", "missing issuer signer")
	}

	createdAt := g.now()
	expiresAt := createdAt.AddDate(0, 0, validityDays)
	id, err := newCredentialID(g.rand(), createdAt)
	if err != nil {
		return nil, wrapError(KindInternal, "DNA-INT-001", "credential id generation failed", err)
	}

	subjectHash := sha3.Sum256([]byte(subjectID))
	attrHash := attributesHash(subjectHash[:], policy)

	protos, err := g.materializeSegments(n, subjectID)
	if err != nil {
		return nil, err
	}

	// Shuffle the assembled list and only then assign positions, so physical
	// order never leaks segment type.
	if err := shuffle(g.rand(), protos); err != nil {
		return nil, wrapError(KindInternal, "DNA-INT-002", "segment shuffle failed", err)
	}
	segments := make([]segment.Segment, len(protos))
	for i, p := range protos {
		segments[i] = segment.New(p.kind, uint32(i), p.payload)
	}

	helix := helixChecksum(segments)
	layers := layerChecksums(segments)

	salt := make([]byte, 16)
	if _, err := io.ReadFull(g.rand(), salt); err != nil {
		return nil, wrapError(KindInternal, "DNA-INT-003", "salt generation failed", err)
	}

	cred := &Credential{
		ID:            id,
		FormatVersion: FormatVersion,
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
		Issuer: Issuer{
			OrgID:     g.OrgID,
			PublicKey: g.Signer.PublicKey(),
			Algorithm: g.Signer.Algorithm(),
		},
		Subject: Subject{
			SubjectIDHash:  subjectHash[:],
			SubjectType:    "user",
			AttributesHash: attrHash,
		},
		Segments:      segments,
		HelixChecksum: helix,
		CryptoMaterial: CryptoMaterial{
			Algorithm: g.Signer.Algorithm(),
			PublicKey: g.Signer.PublicKey(),
			Salt:      salt,
		},
		Policy:         policy,
		LayerChecksums: layers,
		SecurityScore:  Score(n, len(layers)),
	}

	sig, err := g.Signer.Sign(SigningMessage(cred.ID, cred.CreatedAt, cred.Subject.SubjectIDHash, cred.HelixChecksum))
	if err != nil {
		return nil, wrapError(KindCrypto, "DNA-CRYPTO-001", "issuer signing failed", err)
	}
	cred.Issuer.Signature = sig
	return cred, nil
}

// SigningMessage builds the canonical issuer-signed tuple. Fields are
// length-prefixed so no two distinct tuples share an encoding.
func SigningMessage(id string, createdAt time.Time, subjectIDHash, helixChecksum []byte) []byte {
	var out []byte
	appendField := func(b []byte) {
		out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
		out = append(out, b...)
	}
	out = append(out, []byte("dnalock-issuer-v1")...)
	appendField([]byte(id))
	appendField(binary.BigEndian.AppendUint64(nil, uint64(createdAt.Unix())))
	appendField(subjectIDHash)
	appendField(helixChecksum)
	return out
}

// VerifyIssuerSignature checks the issuer signature over the canonical tuple.
func VerifyIssuerSignature(c *Credential) (bool, error) {
	msg := SigningMessage(c.ID, c.CreatedAt, c.Subject.SubjectIDHash, c.HelixChecksum)
	return keys.Verify(c.Issuer.Algorithm, c.Issuer.PublicKey, msg, c.Issuer.Signature)
}

type protoSegment struct {
	kind    segment.Kind
	payload []byte
}

// PartitionCounts splits n across the target ratios; the final category
// absorbs the rounding remainder so the total is exact.
func PartitionCounts(n int) map[segment.Kind]int {
	counts := make(map[segment.Kind]int, len(TargetRatios))
	assigned := 0
	for i, r := range TargetRatios {
		if i == len(TargetRatios)-1 {
			counts[r.Kind] = n - assigned
			break
		}
		c := int(float64(n) * r.Share)
		counts[r.Kind] = c
		assigned += c
	}
	return counts
}

func (g *Generator) materializeSegments(n int, subjectID string) ([]protoSegment, error) {
	counts := PartitionCounts(n)

	// Signature segments sign per-index messages with an ephemeral key; the
	// key is discarded after generation.
	_, ephemeral, err := ed25519.GenerateKey(g.rand())
	if err != nil {
		return nil, wrapError(KindInternal, "DNA-INT-004", "ephemeral key generation failed", err)
	}

	identityDigest := sha3.Sum512([]byte(subjectID))

	protos := make([]protoSegment, 0, n)
	for _, r := range TargetRatios {
		count := counts[r.Kind]
		for i := 0; i < count; i++ {
			payload, err := g.payloadFor(r.Kind, i, identityDigest[:], ephemeral)
			if err != nil {
				return nil, err
			}
			protos = append(protos, protoSegment{kind: r.Kind, payload: payload})
		}
	}
	return protos, nil
}

func (g *Generator) payloadFor(kind segment.Kind, index int, identityDigest []byte, ephemeral ed25519.PrivateKey) ([]byte, error) {
	switch kind {
	case segment.KindRandomEntropy:
		b := make([]byte, entropyPayloadSize)
		if _, err := io.ReadFull(g.rand(), b); err != nil {
			return nil, wrapError(KindInternal, "DNA-INT-005", "entropy draw failed", err)
		}
		return b, nil
	case segment.KindIdentityHash:
		// Contiguous slices of the subject identity digest, cycling.
		off := (index * identitySliceSize) % len(identityDigest)
		end := off + identitySliceSize
		if end > len(identityDigest) {
			end = len(identityDigest)
		}
		return append([]byte(nil), identityDigest[off:end]...), nil
	case segment.KindSignature:
		msg := []byte("dnalock-seg-" + strconv.Itoa(index))
		sig := ed25519.Sign(ephemeral, msg)
		return sig[:signaturePayloadSize], nil
	case segment.KindTemporal:
		b := binary.BigEndian.AppendUint64(nil, uint64(g.now().Unix()))
		return binary.BigEndian.AppendUint32(b, uint32(index)), nil
	case segment.KindCapability, segment.KindPolicy, segment.KindMetadata:
		// Deterministic-shape payload plus index tag.
		h := sha3.Sum256([]byte(kind.String() + "-" + strconv.Itoa(index)))
		return binary.BigEndian.AppendUint32(h[:], uint32(index)), nil
	default:
		return nil, newError(KindInternal, "DNA-INT-006", "unhandled segment kind")
	}
}

// shuffle is a CSPRNG Fisher-Yates over the assembled segment list.
func shuffle(r io.Reader, protos []protoSegment) error {
	for i := len(protos) - 1; i > 0; i-- {
		jBig, err := rand.Int(r, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := int(jBig.Int64())
		protos[i], protos[j] = protos[j], protos[i]
	}
	return nil
}

func newCredentialID(r io.Reader, createdAt time.Time) (string, error) {
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", err
	}
	u, err := uuid.FromBytes(buf[:])
	if err != nil {
		return "", err
	}
	return IDPrefix + strconv.FormatInt(createdAt.Unix(), 10) + "-" + u.String(), nil
}

func attributesHash(subjectIDHash []byte, policy PolicyBinding) []byte {
	h := sha3.New256()
	_, _ = h.Write(subjectIDHash)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(policy.PolicyID))
	return h.Sum(nil)
}
