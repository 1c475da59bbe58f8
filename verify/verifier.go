package verify

import (
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
	"time"

	"dnalock.io/dnalock/credential"
	"dnalock.io/dnalock/keys"
	"dnalock.io/dnalock/segment"
)

const (
	// ClockSkewTolerance is how far in the future created_at may sit before
	// the time-bounds check fails.
	ClockSkewTolerance = 5 * time.Minute

	// EntropyThreshold is the minimum pooled Shannon entropy (bits/byte)
	// for sampled entropy segments.
	EntropyThreshold = 7.0

	// entropySampleCount bounds the entropy-segment sample.
	entropySampleCount = 32

	// DistributionTolerance is the allowed absolute deviation from each
	// kind's target share.
	DistributionTolerance = 0.03

	// duplicateScanPrefix bounds the duplicate-position scan in the
	// cross-reference check.
	duplicateScanPrefix = 1024
)

// RevocationChecker answers whether a credential id has been revoked.
type RevocationChecker interface {
	IsRevoked(credentialID string) bool
}

// Verifier runs the integrity pipeline. All twelve checks always run; the
// pipeline never short-circuits, so a report shows every defect at once.
type Verifier struct {
	// Revocations is consulted by the revocation check. Nil degrades that
	// check to a warning.
	Revocations RevocationChecker

	// Now supplies verification time; defaults to time.Now.
	Now func() time.Time

	// Rand drives entropy-segment sampling; defaults to crypto/rand.
	Rand io.Reader

	// Strict keeps warnings visible in the overall status instead of
	// promoting them to Passed.
	Strict bool

	// VerifySignatures upgrades the issuer-signature check from a length
	// check to full cryptographic verification.
	VerifySignatures bool
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Verifier) rand() io.Reader {
	if v.Rand != nil {
		return v.Rand
	}
	return rand.Reader
}

// Verify runs the full pipeline over a credential.
func (v *Verifier) Verify(c *credential.Credential) *Report {
	r := &Report{CredentialID: c.ID, Strict: v.Strict}
	r.Checks = append(r.Checks,
		v.checkStructure(c),
		v.checkFormatVersion(c),
		v.checkTimeBounds(c),
		v.checkIssuerSignature(c),
		v.checkHelixChecksum(c),
		v.checkEntropy(c),
		v.checkPolicyBinding(c),
		v.checkSignatureSegments(c),
		v.checkRevocation(c),
		v.checkLayerCoverage(c),
		v.checkKindDistribution(c),
		v.checkCrossReference(c),
	)
	return r
}

func pass(name string) CheckResult {
	return CheckResult{Name: name, Status: Passed, Detail: "ok"}
}

func fail(name, detail string) CheckResult {
	return CheckResult{Name: name, Status: Failed, Detail: detail}
}

func warn(name, detail string) CheckResult {
	return CheckResult{Name: name, Status: Warning, Detail: detail}
}

func (v *Verifier) checkStructure(c *credential.Credential) CheckResult {
	const name = "structure"
	if !strings.HasPrefix(c.ID, credential.IDPrefix) {
		return fail(name, fmt.Sprintf("credential id %q missing prefix %q", c.ID, credential.IDPrefix))
	}
	if len(c.Segments) == 0 {
		return fail(name, "credential has no segments")
	}
	return pass(name)
}

func (v *Verifier) checkFormatVersion(c *credential.Credential) CheckResult {
	const name = "format-version"
	for _, fv := range credential.SupportedFormatVersions {
		if c.FormatVersion == fv {
			return pass(name)
		}
	}
	return fail(name, fmt.Sprintf("unsupported format version %q", c.FormatVersion))
}

func (v *Verifier) checkTimeBounds(c *credential.Credential) CheckResult {
	const name = "time-bounds"
	now := v.now()
	if c.CreatedAt.After(now.Add(ClockSkewTolerance)) {
		return fail(name, fmt.Sprintf("created_at %v beyond clock-skew tolerance", c.CreatedAt))
	}
	if c.Expired(now) {
		return fail(name, fmt.Sprintf("credential expired at %v", c.ExpiresAt))
	}
	return pass(name)
}

func (v *Verifier) checkIssuerSignature(c *credential.Credential) CheckResult {
	const name = "issuer-signature"
	if len(c.Issuer.Signature) == 0 {
		return warn(name, "issuer signature absent")
	}
	want, err := keys.SignatureSize(c.Issuer.Algorithm)
	if err != nil {
		return fail(name, fmt.Sprintf("unknown issuer algorithm %q", c.Issuer.Algorithm))
	}
	if len(c.Issuer.Signature) != want {
		return fail(name, fmt.Sprintf("issuer signature length %d, want %d", len(c.Issuer.Signature), want))
	}
	if v.VerifySignatures {
		ok, err := credential.VerifyIssuerSignature(c)
		if err != nil {
			return fail(name, fmt.Sprintf("issuer signature verification error: %v", err))
		}
		if !ok {
			return fail(name, "issuer signature invalid")
		}
	}
	return pass(name)
}

func (v *Verifier) checkHelixChecksum(c *credential.Credential) CheckResult {
	const name = "helix-checksum"
	if !c.VerifyChecksum() {
		return fail(name, "helix checksum mismatch")
	}
	return pass(name)
}

func (v *Verifier) checkEntropy(c *credential.Credential) CheckResult {
	const name = "entropy"
	var entropySegments []segment.Segment
	for _, s := range c.Segments {
		if s.Kind == segment.KindRandomEntropy {
			entropySegments = append(entropySegments, s)
		}
	}
	if len(entropySegments) == 0 {
		return fail(name, "credential has no entropy segments")
	}

	sampled := v.sampleSegments(entropySegments, entropySampleCount)
	var pool []byte
	for _, s := range sampled {
		pool = append(pool, s.Payload...)
	}
	got := shannonBitsPerByte(pool)
	if got < EntropyThreshold {
		return fail(name, fmt.Sprintf("pooled entropy %.2f bits/byte below threshold %.2f", got, EntropyThreshold))
	}
	return pass(name)
}

func (v *Verifier) checkPolicyBinding(c *credential.Credential) CheckResult {
	const name = "policy-binding"
	if c.Policy.PolicyID == "" {
		return warn(name, "no policy binding")
	}
	if len(c.Policy.Hash) == 0 {
		return warn(name, "policy binding carries no hash")
	}
	return pass(name)
}

func (v *Verifier) checkSignatureSegments(c *credential.Credential) CheckResult {
	const name = "signature-segments"
	for _, s := range c.Segments {
		if s.Kind != segment.KindSignature {
			continue
		}
		if len(s.Commitment) == 0 {
			return fail(name, fmt.Sprintf("signature segment at position %d has empty commitment", s.Position))
		}
	}
	return pass(name)
}

func (v *Verifier) checkRevocation(c *credential.Credential) CheckResult {
	const name = "revocation"
	if v.Revocations == nil {
		return warn(name, "no revocation registry configured")
	}
	if v.Revocations.IsRevoked(c.ID) {
		return fail(name, "credential is revoked")
	}
	return pass(name)
}

func (v *Verifier) checkLayerCoverage(c *credential.Credential) CheckResult {
	const name = "layer-coverage"
	seen := map[int]bool{}
	var total uint32
	for _, lc := range c.LayerChecksums {
		seen[lc.Layer] = true
		total += lc.SegmentCount
	}
	for layer := 1; layer <= segment.LayerCount; layer++ {
		if !seen[layer] {
			return fail(name, fmt.Sprintf("layer %d missing from layer checksums", layer))
		}
	}
	if int(total) != len(c.Segments) {
		return fail(name, fmt.Sprintf("layer coverage %d does not match segment count %d", total, len(c.Segments)))
	}
	return pass(name)
}

func (v *Verifier) checkKindDistribution(c *credential.Credential) CheckResult {
	const name = "kind-distribution"
	counts := map[segment.Kind]int{}
	for _, s := range c.Segments {
		counts[s.Kind]++
	}
	total := float64(len(c.Segments))
	for _, k := range segment.Kinds {
		observed := float64(counts[k]) / total
		target := credential.TargetShare(k)
		if math.Abs(observed-target) > DistributionTolerance {
			return fail(name, fmt.Sprintf("kind %s share %.3f outside tolerance of target %.3f", k, observed, target))
		}
	}
	return pass(name)
}

func (v *Verifier) checkCrossReference(c *credential.Credential) CheckResult {
	const name = "cross-reference"
	want, err := keys.PublicKeySize(c.CryptoMaterial.Algorithm)
	if err != nil {
		return fail(name, fmt.Sprintf("unknown crypto material algorithm %q", c.CryptoMaterial.Algorithm))
	}
	if len(c.CryptoMaterial.PublicKey) != want {
		return fail(name, fmt.Sprintf("public key length %d, want %d", len(c.CryptoMaterial.PublicKey), want))
	}

	hasIdentity := false
	for _, s := range c.Segments {
		if s.Kind == segment.KindIdentityHash {
			hasIdentity = true
			break
		}
	}
	if !hasIdentity {
		return fail(name, "no identity-hash segment present")
	}

	limit := len(c.Segments)
	if limit > duplicateScanPrefix {
		limit = duplicateScanPrefix
	}
	seen := make(map[uint32]bool, limit)
	for _, s := range c.Segments[:limit] {
		if seen[s.Position] {
			return fail(name, fmt.Sprintf("duplicate position %d", s.Position))
		}
		seen[s.Position] = true
	}
	return pass(name)
}

// sampleSegments draws up to count segments without replacement.
func (v *Verifier) sampleSegments(in []segment.Segment, count int) []segment.Segment {
	if len(in) <= count {
		return in
	}
	out := make([]segment.Segment, 0, count)
	picked := make(map[int]bool, count)
	for len(out) < count {
		j, err := rand.Int(v.rand(), big.NewInt(int64(len(in))))
		if err != nil {
			// Fall back to a prefix sample; the check stays meaningful.
			return in[:count]
		}
		i := int(j.Int64())
		if picked[i] {
			continue
		}
		picked[i] = true
		out = append(out, in[i])
	}
	return out
}
